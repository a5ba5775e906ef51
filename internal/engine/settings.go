package engine

import (
	"maps"

	"github.com/tartampluch/go-noor/internal/config"
)

// Settings is the user configuration the engine schedules against.
type Settings struct {
	Location      *Location         `json:"location,omitempty"`
	Config        CalculationConfig `json:"config"`
	VoiceID       string            `json:"voice_id"`
	Notifications map[Prayer]bool   `json:"notifications"`
}

// DefaultSettings enables every notifiable prayer with the default voice.
func DefaultSettings() Settings {
	n := make(map[Prayer]bool, len(NotifiablePrayers))
	for _, p := range NotifiablePrayers {
		n[p] = true
	}
	return Settings{
		Config:        DefaultCalculationConfig(),
		VoiceID:       config.DefaultVoiceID,
		Notifications: n,
	}
}

// Enabled reports whether a dispatch should fire for p.
func (s Settings) Enabled(p Prayer) bool {
	return p.Notifiable() && s.Notifications[p]
}

// SameSchedule reports whether s and o produce the same tables.
// Only a location or calculation change invalidates the dedup ledger.
func (s Settings) SameSchedule(o Settings) bool {
	if s.Config != o.Config {
		return false
	}
	switch {
	case s.Location == nil && o.Location == nil:
		return true
	case s.Location == nil || o.Location == nil:
		return false
	}
	return *s.Location == *o.Location
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s Settings) Clone() Settings {
	out := s
	if s.Location != nil {
		loc := *s.Location
		out.Location = &loc
	}
	out.Notifications = maps.Clone(s.Notifications)
	return out
}
