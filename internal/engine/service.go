package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-noor/internal/audio"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/store"
)

// ErrInvalidLocation is returned for out-of-range coordinates.
var ErrInvalidLocation = errors.New(config.ErrInvalidCoordinates)

// Service is the facade the UI talks to. It owns the active settings and
// coordinates the time source, the dispatcher and the audio manager.
type Service struct {
	Store      *store.Store
	Source     *TimeSource
	Dispatcher *Dispatcher
	Audio      *audio.Manager
	Clock      Clock

	// CountdownInterval overrides config.CountdownInterval when positive.
	CountdownInterval time.Duration

	settings atomic.Pointer[Settings]
}

// NewService wires the engine components together.
func NewService(st *store.Store, src *TimeSource, d *Dispatcher, a *audio.Manager, c Clock) *Service {
	s := &Service{Store: st, Source: src, Dispatcher: d, Audio: a, Clock: c}
	def := DefaultSettings()
	s.settings.Store(&def)
	return s
}

// Settings returns a copy of the active settings.
func (s *Service) Settings() Settings {
	if p := s.settings.Load(); p != nil {
		return p.Clone()
	}
	return DefaultSettings()
}

// LoadSettings restores the last applied settings from the offline store.
// Missing or unreadable data leaves the defaults in place.
func (s *Service) LoadSettings(ctx context.Context) Settings {
	if s.Store == nil {
		return s.Settings()
	}

	var saved Settings
	found, err := s.Store.GetJSON(ctx, config.CollSettings, config.KeyActiveSettings, &saved)
	if err != nil {
		slog.Warn(config.ErrStoreRead, config.LogKeyComponent, config.CompStore, config.LogKeyError, err)
		return s.Settings()
	}
	if !found {
		return s.Settings()
	}
	if saved.Notifications == nil {
		saved.Notifications = DefaultSettings().Notifications
	}
	if saved.VoiceID == "" {
		saved.VoiceID = config.DefaultVoiceID
	}
	s.settings.Store(&saved)
	return saved.Clone()
}

// ApplySettings makes next the active settings, persists them and forwards
// them to the dispatcher, which applies them before its next tick.
// A persistence failure is logged and does not undo the change.
func (s *Service) ApplySettings(ctx context.Context, next Settings) error {
	if next.Location != nil && !next.Location.Valid() {
		return fmt.Errorf("%w: %f,%f", ErrInvalidLocation, next.Location.Lat, next.Location.Lng)
	}

	next = next.Clone()
	s.settings.Store(&next)

	if s.Store != nil {
		if err := s.Store.PutJSON(ctx, config.CollSettings, config.KeyActiveSettings, next); err != nil {
			slog.Warn(config.ErrSettingsPersist, config.LogKeyComponent, config.CompStore, config.LogKeyError, err)
		}
	}

	if s.Dispatcher != nil {
		s.Dispatcher.Reconfigure(next)
	}

	slog.Debug(config.MsgSettingsApplied,
		config.LogKeyComponent, config.CompDispatcher,
		config.LogKeyMethod, next.Config.Method,
		config.LogKeySchool, next.Config.School,
		config.LogKeyVoice, next.VoiceID)
	return nil
}

// ArmDispatcher sets the location and calculation config and starts
// automatic dispatch.
func (s *Service) ArmDispatcher(ctx context.Context, loc Location, cfg CalculationConfig) error {
	next := s.Settings()
	next.Location = &loc
	next.Config = cfg
	if err := s.ApplySettings(ctx, next); err != nil {
		return err
	}
	return s.Dispatcher.Arm(ctx, s.Settings())
}

// ArmWithSettings starts dispatch with the active settings.
func (s *Service) ArmWithSettings(ctx context.Context) error {
	return s.Dispatcher.Arm(ctx, s.Settings())
}

// DisarmDispatcher stops automatic dispatch.
func (s *Service) DisarmDispatcher() {
	s.Dispatcher.Disarm()
}

// GetCachedTimes reads a table from the offline cache without any network access.
func (s *Service) GetCachedTimes(ctx context.Context, date time.Time, loc Location, cfg CalculationConfig) (PrayerTimeTable, bool) {
	return s.Source.CachedTimes(ctx, loc, cfg, date)
}

// Refresh fetches today's table for the active settings.
func (s *Service) Refresh(ctx context.Context) (PrayerTimeTable, error) {
	set := s.Settings()
	if set.Location == nil {
		return PrayerTimeTable{}, ErrNoLocation
	}
	return s.Source.GetPrayerTimes(ctx, *set.Location, set.Config, s.now())
}

// Timetable returns the tables for the next days, starting today. Days that
// cannot be resolved are skipped; an error is returned only if none could.
func (s *Service) Timetable(ctx context.Context, days int) ([]PrayerTimeTable, error) {
	set := s.Settings()
	if set.Location == nil {
		return nil, ErrNoLocation
	}

	now := s.now()
	var (
		tables   []PrayerTimeTable
		firstErr error
	)
	for i := 0; i < days; i++ {
		t, err := s.Source.GetPrayerTimes(ctx, *set.Location, set.Config, now.AddDate(0, 0, i))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return tables, nil
}

// PreviewVoice plays voiceID in the preview slot, releasing any earlier preview.
func (s *Service) PreviewVoice(ctx context.Context, voiceID string) (*audio.Handle, error) {
	slog.Debug(config.MsgPreviewVoice, config.LogKeyComponent, config.CompAudio, config.LogKeyVoice, voiceID)
	return s.Audio.Preview(ctx, voiceID)
}

// RetryPermissions asks for notification permission again.
func (s *Service) RetryPermissions(ctx context.Context) error {
	slog.Info(config.MsgRetryRequested, config.LogKeyComponent, config.CompDispatcher)
	return s.Dispatcher.RetryPermissions(ctx)
}

// QiblahBearing returns the bearing to the Kaaba from the active location.
func (s *Service) QiblahBearing() (float64, error) {
	set := s.Settings()
	if set.Location == nil {
		return 0, ErrNoLocation
	}
	return QiblahBearing(*set.Location), nil
}

// Close stops dispatch and releases every playback handle.
func (s *Service) Close() {
	if s.Dispatcher != nil {
		s.Dispatcher.Disarm()
	}
	if s.Audio != nil {
		s.Audio.Close()
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
