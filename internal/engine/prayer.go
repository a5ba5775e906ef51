package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
)

// Prayer names a daily prayer or an auxiliary solar event.
type Prayer string

const (
	Fajr     Prayer = "Fajr"
	Sunrise  Prayer = "Sunrise"
	Dhuhr    Prayer = "Dhuhr"
	Asr      Prayer = "Asr"
	Sunset   Prayer = "Sunset"
	Maghrib  Prayer = "Maghrib"
	Isha     Prayer = "Isha"
	Imsak    Prayer = "Imsak"
	Midnight Prayer = "Midnight"
)

// ScheduleOrder is the fixed order used to find the next prayer.
var ScheduleOrder = []Prayer{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// NotifiablePrayers are the prayers the dispatcher may fire for.
// Sunrise marks the end of Fajr and never triggers a dispatch.
var NotifiablePrayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

// AllPrayers lists every entry a provider table may carry.
var AllPrayers = []Prayer{Imsak, Fajr, Sunrise, Dhuhr, Asr, Sunset, Maghrib, Isha, Midnight}

// Notifiable reports whether p can trigger a dispatch.
func (p Prayer) Notifiable() bool {
	for _, n := range NotifiablePrayers {
		if n == p {
			return true
		}
	}
	return false
}

// TimeOfDay is a civil wall-clock time with minute precision,
// stored as minutes since local midnight.
type TimeOfDay int

var errBadTimeOfDay = errors.New(config.ErrBadTimeOfDay)

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay reads "HH:MM", ignoring anything after the first space
// (providers append zone hints such as "05:10 (BST)").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", errBadTimeOfDay, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", errBadTimeOfDay, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", errBadTimeOfDay, s)
	}
	return NewTimeOfDay(h, m), nil
}

// MinuteOf truncates t to its wall-clock minute.
func MinuteOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders the zero-padded "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf(config.TimeOfDayFormat, t.Hour(), t.Minute())
}

// On places t on the civil date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, day.Location())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Location is a point on Earth with an optional display name.
type Location struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name,omitempty"`
}

// Valid reports whether the coordinates are in range.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180 &&
		!math.IsNaN(l.Lat) && !math.IsNaN(l.Lng)
}

// DisplayName falls back to the generic label when the location is unnamed.
func (l Location) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return config.FallbackLocationName
}

// CalculationConfig selects how the provider computes a table.
// A zero angle means "use the method's own value".
type CalculationConfig struct {
	Method    int     `json:"method"`
	School    int     `json:"school"`
	FajrAngle float64 `json:"fajr_angle,omitempty"`
	IshaAngle float64 `json:"isha_angle,omitempty"`
}

// DefaultCalculationConfig returns the configuration used when none is set.
func DefaultCalculationConfig() CalculationConfig {
	return CalculationConfig{Method: config.DefaultMethod, School: config.DefaultSchool}
}

// HasCustomAngles reports whether either twilight angle is overridden.
func (c CalculationConfig) HasCustomAngles() bool {
	return c.FajrAngle != 0 || c.IshaAngle != 0
}

// TableKey identifies a cached table: civil date, coordinates rounded to two
// decimals, and every calculation parameter.
type TableKey string

// NewTableKey derives the cache key for the table of date at loc under cfg.
func NewTableKey(date time.Time, loc Location, cfg CalculationConfig) TableKey {
	return TableKey(fmt.Sprintf(config.TableKeyFormat,
		CivilDate(date),
		roundCoord(loc.Lat), roundCoord(loc.Lng),
		cfg.Method, cfg.School,
		formatAngle(cfg.FajrAngle), formatAngle(cfg.IshaAngle),
	))
}

func roundCoord(v float64) float64 {
	p := math.Pow10(config.CoordinatePrecision)
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // drop the sign of -0
	}
	return r
}

func formatAngle(a float64) string {
	if a == 0 {
		return config.AngleUnset
	}
	return fmt.Sprintf(config.AngleFormat, a)
}

// PrayerTimeTable is the set of prayer times for one civil date and location.
// Tables are treated as immutable once built.
type PrayerTimeTable struct {
	Key       TableKey             `json:"key"`
	Date      string               `json:"date"`
	Location  Location             `json:"location"`
	Config    CalculationConfig    `json:"config"`
	Times     map[Prayer]TimeOfDay `json:"times"`
	HijriDate string               `json:"hijri_date,omitempty"`
	Timezone  string               `json:"timezone,omitempty"`
	FetchedAt time.Time            `json:"fetched_at"`

	HijriDay   int `json:"hijri_day,omitempty"`
	HijriMonth int `json:"hijri_month,omitempty"`

	// Stale is set when the table comes from the cache after a failed refresh.
	Stale bool `json:"-"`
}

// Time returns the time of p, if the table has it.
func (t PrayerTimeTable) Time(p Prayer) (TimeOfDay, bool) {
	v, ok := t.Times[p]
	return v, ok
}

// Complete reports whether every notifiable prayer is present.
// Sunrise is informational and may be missing.
func (t PrayerTimeTable) Complete() bool {
	for _, p := range NotifiablePrayers {
		if _, ok := t.Times[p]; !ok {
			return false
		}
	}
	return true
}

// ZoneLocation resolves the table's IANA zone, falling back to fallback.
func (t PrayerTimeTable) ZoneLocation(fallback *time.Location) *time.Location {
	if t.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
