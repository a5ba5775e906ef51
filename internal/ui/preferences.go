package ui

import (
	"errors"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"github.com/tartampluch/go-noor/internal/audio"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/engine"
)

// Overrides are command-line values written over the stored preferences.
type Overrides struct {
	Location *engine.Location
	Method   *int
	School   *int
	VoiceID  string
}

// ApplyOverrides writes the set fields of o to p.
func ApplyOverrides(p fyne.Preferences, o Overrides) {
	if o.Location != nil {
		storeLocation(p, *o.Location)
	}
	if o.Method != nil {
		p.SetInt(config.PrefMethod, *o.Method)
	}
	if o.School != nil {
		p.SetInt(config.PrefSchool, *o.School)
	}
	if o.VoiceID != "" {
		p.SetString(config.PrefVoice, o.VoiceID)
	}
}

func storeLocation(p fyne.Preferences, loc engine.Location) {
	p.SetFloat(config.PrefLat, loc.Lat)
	p.SetFloat(config.PrefLng, loc.Lng)
	p.SetString(config.PrefLocationName, loc.Name)
	p.SetBool(config.PrefHasLocation, true)
}

// SettingsFromPreferences builds engine settings from p. Unknown voices
// and invalid coordinates fall back to the defaults.
func SettingsFromPreferences(p fyne.Preferences) engine.Settings {
	s := engine.DefaultSettings()

	if p.Bool(config.PrefHasLocation) {
		loc := engine.Location{
			Lat:  p.Float(config.PrefLat),
			Lng:  p.Float(config.PrefLng),
			Name: p.String(config.PrefLocationName),
		}
		if loc.Valid() {
			s.Location = &loc
		}
	}

	s.Config = engine.CalculationConfig{
		Method:    p.IntWithFallback(config.PrefMethod, config.DefaultMethod),
		School:    p.IntWithFallback(config.PrefSchool, config.DefaultSchool),
		FajrAngle: p.Float(config.PrefFajrAngle),
		IshaAngle: p.Float(config.PrefIshaAngle),
	}

	if voice := p.String(config.PrefVoice); voice != "" {
		if _, ok := audio.DefaultCatalog.Lookup(voice); ok {
			s.VoiceID = voice
		}
	}

	for _, prayer := range engine.NotifiablePrayers {
		s.Notifications[prayer] = p.BoolWithFallback(notifyKey(prayer), true)
	}
	return s
}

// StorePreferences is the inverse of SettingsFromPreferences.
func StorePreferences(p fyne.Preferences, s engine.Settings) {
	if s.Location != nil {
		storeLocation(p, *s.Location)
	} else {
		p.SetBool(config.PrefHasLocation, false)
	}
	p.SetInt(config.PrefMethod, s.Config.Method)
	p.SetInt(config.PrefSchool, s.Config.School)
	p.SetFloat(config.PrefFajrAngle, s.Config.FajrAngle)
	p.SetFloat(config.PrefIshaAngle, s.Config.IshaAngle)
	p.SetString(config.PrefVoice, s.VoiceID)
	for _, prayer := range engine.NotifiablePrayers {
		p.SetBool(notifyKey(prayer), s.Enabled(prayer))
	}
}

func notifyKey(p engine.Prayer) string {
	return config.PrefNotifyPrefix + strings.ToLower(string(p))
}

// -----------------------------------------------------------------------------
// Field validation
// -----------------------------------------------------------------------------

var (
	errPortRequired = errors.New(config.TKeyErrPortReq)
	errPortNumeric  = errors.New(config.TKeyErrPortNum)
	errPortRange    = errors.New(config.TKeyErrPortRange)
	errLatitude     = errors.New(config.TKeyErrLatitude)
	errLongitude    = errors.New(config.TKeyErrLongitude)
	errAngle        = errors.New(config.TKeyErrAngle)
)

// The errors above carry translation keys; the window localizes them.

func validatePort(s string) error {
	if s == "" {
		return errPortRequired
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return errPortNumeric
	}
	if port < config.MinPort || port > config.MaxPort {
		return errPortRange
	}
	return nil
}

func parseCoordinate(s string, limit float64, rangeErr error) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < -limit || v > limit {
		return 0, rangeErr
	}
	return v, nil
}

func parseLatitude(s string) (float64, error)  { return parseCoordinate(s, 90, errLatitude) }
func parseLongitude(s string) (float64, error) { return parseCoordinate(s, 180, errLongitude) }

// parseAngle accepts an empty string as "use the method's angle".
func parseAngle(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > config.MaxAngleDeg {
		return 0, errAngle
	}
	return v, nil
}

func formatAngle(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
