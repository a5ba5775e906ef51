// Package scripture downloads surahs from the Quran provider and keeps
// them available offline.
package scripture

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/fetcher"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidSurah = errors.New(config.ErrInvalidSurah)

	// ErrProviderResponse means the provider answered with an unusable body.
	ErrProviderResponse = errors.New(config.ErrProviderResponse)
)

// Surah is one entry of the surah index.
type Surah struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"englishName"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
	RevelationType         string `json:"revelationType"`
	IsDownloaded           bool   `json:"isDownloaded"`
}

// Ayah is one verse with its recitation and translation.
type Ayah struct {
	Number        int    `json:"number"`
	NumberInSurah int    `json:"numberInSurah"`
	Juz           int    `json:"juz"`
	Text          string `json:"text"`
	Translation   string `json:"translation"`
	Audio         string `json:"audio"`
}

// Client talks to an alquran.cloud compatible API.
type Client struct {
	BaseURL     string
	Fetcher     fetcher.Fetcher
	Reciter     string
	Translation string
}

// NewClient uses the default reciter and translation editions.
func NewClient(baseURL string, f fetcher.Fetcher) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Fetcher:     f,
		Reciter:     config.DefaultReciter,
		Translation: config.DefaultTranslation,
	}
}

// ValidSurah reports whether n names a surah.
func ValidSurah(n int) bool {
	return n >= 1 && n <= config.SurahCount
}

// FetchSurahs downloads the surah index.
func (c *Client) FetchSurahs(ctx context.Context) ([]Surah, error) {
	body, err := c.Fetcher.Fetch(ctx, c.BaseURL+"/surah")
	if err != nil {
		return nil, err
	}

	data, err := envelope(body)
	if err != nil {
		return nil, err
	}
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: surah list is not an array", ErrProviderResponse)
	}

	var out []Surah
	data.ForEach(func(_, s gjson.Result) bool {
		out = append(out, Surah{
			Number:                 int(s.Get("number").Int()),
			Name:                   s.Get("name").String(),
			EnglishName:            s.Get("englishName").String(),
			EnglishNameTranslation: s.Get("englishNameTranslation").String(),
			NumberOfAyahs:          int(s.Get("numberOfAyahs").Int()),
			RevelationType:         s.Get("revelationType").String(),
		})
		return true
	})
	return out, nil
}

// FetchAyahs downloads the recitation and the translation of surah n in
// parallel and merges them verse by verse.
func (c *Client) FetchAyahs(ctx context.Context, n int) ([]Ayah, error) {
	if !ValidSurah(n) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSurah, n)
	}

	var recited, translated gjson.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recited, err = c.edition(gctx, n, c.Reciter)
		return err
	})
	g.Go(func() error {
		var err error
		translated, err = c.edition(gctx, n, c.Translation)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	verses := recited.Array()
	translations := translated.Array()
	if len(verses) != len(translations) {
		return nil, fmt.Errorf("%w: %s (%d/%d)", ErrProviderResponse, config.ErrVerseMismatch, len(verses), len(translations))
	}

	out := make([]Ayah, len(verses))
	for i, v := range verses {
		out[i] = Ayah{
			Number:        int(v.Get("number").Int()),
			NumberInSurah: int(v.Get("numberInSurah").Int()),
			Juz:           int(v.Get("juz").Int()),
			Text:          v.Get("text").String(),
			Translation:   translations[i].Get("text").String(),
			Audio:         v.Get("audio").String(),
		}
	}
	return out, nil
}

// edition returns the ayahs array of GET {base}/surah/{n}/{edition}.
func (c *Client) edition(ctx context.Context, n int, edition string) (gjson.Result, error) {
	body, err := c.Fetcher.Fetch(ctx, c.BaseURL+"/surah/"+strconv.Itoa(n)+"/"+edition)
	if err != nil {
		return gjson.Result{}, err
	}
	data, err := envelope(body)
	if err != nil {
		return gjson.Result{}, err
	}
	ayahs := data.Get("ayahs")
	if !ayahs.IsArray() {
		return gjson.Result{}, fmt.Errorf("%w: missing ayahs for %s", ErrProviderResponse, edition)
	}
	return ayahs, nil
}

// envelope unwraps {"code":200,"status":"OK","data":...}.
func envelope(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrProviderResponse)
	}
	root := gjson.ParseBytes(body)
	if code := root.Get("code"); code.Exists() && code.Int() != 200 {
		return gjson.Result{}, fmt.Errorf("%w: code %d: %s", ErrProviderResponse, code.Int(), root.Get("status").String())
	}
	data := root.Get("data")
	if !data.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: missing data", ErrProviderResponse)
	}
	return data, nil
}
