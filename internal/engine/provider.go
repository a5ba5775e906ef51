package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/fetcher"
	"github.com/tidwall/gjson"
)

// AladhanProvider computes prayer times with the Aladhan timings API.
type AladhanProvider struct {
	BaseURL string
	Fetcher fetcher.Fetcher
}

// NewAladhanProvider creates a provider for baseURL (without trailing slash).
func NewAladhanProvider(baseURL string, f fetcher.Fetcher) *AladhanProvider {
	return &AladhanProvider{BaseURL: strings.TrimRight(baseURL, "/"), Fetcher: f}
}

// ComputeTimes implements TimeProvider.
func (p *AladhanProvider) ComputeTimes(ctx context.Context, req TimesRequest) (PrayerTimeTable, error) {
	body, err := p.Fetcher.Fetch(ctx, p.timingsURL(req))
	if err != nil {
		return PrayerTimeTable{}, err
	}
	return parseTimings(body)
}

// timingsURL builds GET {base}/timings/{DD-MM-YYYY}?latitude=..&longitude=..&method=..&school=..
// Custom twilight angles switch to the custom method with
// methodSettings "fajr,maghrib,isha" where null keeps the method value.
func (p *AladhanProvider) timingsURL(req TimesRequest) string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(req.Location.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(req.Location.Lng, 'f', -1, 64))
	q.Set("school", strconv.Itoa(req.Config.School))

	method := req.Config.Method
	if req.Config.HasCustomAngles() {
		method = config.CustomMethodID
		q.Set("methodSettings", strings.Join([]string{
			formatAngle(req.Config.FajrAngle),
			config.AngleUnset,
			formatAngle(req.Config.IshaAngle),
		}, ","))
	}
	q.Set("method", strconv.Itoa(method))

	return p.BaseURL + "/timings/" + req.Date.Format(config.AladhanDateFormat) + "?" + q.Encode()
}

// parseTimings extracts the table from an Aladhan envelope:
// {"code":200,"data":{"timings":{...},"date":{"hijri":{...}},"meta":{"timezone":".."}}}
func parseTimings(body []byte) (PrayerTimeTable, error) {
	if !gjson.ValidBytes(body) {
		return PrayerTimeTable{}, fmt.Errorf("%w: invalid JSON", ErrProviderResponse)
	}

	root := gjson.ParseBytes(body)
	if code := root.Get("code"); code.Exists() && code.Int() != 200 {
		return PrayerTimeTable{}, fmt.Errorf("%w: code %d: %s", ErrProviderResponse, code.Int(), root.Get("status").String())
	}

	timings := root.Get("data.timings")
	if !timings.IsObject() {
		return PrayerTimeTable{}, fmt.Errorf("%w: missing timings", ErrProviderResponse)
	}

	table := PrayerTimeTable{Times: make(map[Prayer]TimeOfDay, len(AllPrayers))}
	for _, prayer := range AllPrayers {
		raw := timings.Get(string(prayer))
		if !raw.Exists() {
			continue
		}
		t, err := ParseTimeOfDay(raw.String())
		if err != nil {
			slog.Debug("Skipping unparsable timing",
				config.LogKeyComponent, config.CompProvider,
				config.LogKeyPrayer, string(prayer),
				config.LogKeyValue, raw.String())
			continue
		}
		table.Times[prayer] = t
	}

	if !table.Complete() {
		return PrayerTimeTable{}, fmt.Errorf("%w: %w", ErrProviderResponse, ErrIncompleteTable)
	}

	hijri := root.Get("data.date.hijri")
	if hijri.Exists() {
		table.HijriDay = int(hijri.Get("day").Int())
		table.HijriMonth = int(hijri.Get("month.number").Int())

		month := hijri.Get("month.en").String()
		if month == "" {
			month = HijriMonthName(table.HijriMonth)
		}
		table.HijriDate = fmt.Sprintf(config.HijriFormat,
			hijri.Get("day").String(),
			month,
			hijri.Get("year").String())
	}
	table.Timezone = root.Get("data.meta.timezone").String()

	return table, nil
}
