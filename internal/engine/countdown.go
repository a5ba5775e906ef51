package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
)

// NextPrayerUpdate is one tick of the next-prayer stream.
type NextPrayerUpdate struct {
	Prayer      Prayer
	Time        TimeOfDay
	At          time.Time
	Remaining   time.Duration
	HijriDate   string
	Stale       bool
	Approximate bool

	// Err is set when no table could be obtained; the other fields are zero.
	Err error
}

// SubscribeNextPrayer streams the next prayer and the time remaining until
// it, once per CountdownInterval, until ctx is cancelled. The channel holds
// only the latest update: a slow reader skips intermediate values.
// Settings changes are picked up on the following update.
func (s *Service) SubscribeNextPrayer(ctx context.Context) <-chan NextPrayerUpdate {
	out := make(chan NextPrayerUpdate, config.ChannelBufferSize)
	go s.countdown(ctx, out)
	return out
}

func (s *Service) countdown(ctx context.Context, out chan NextPrayerUpdate) {
	defer close(out)

	current := s.Settings()
	tracker := newTableTracker(s.Source, current)
	tracker.failBackoff = config.DispatchInterval

	interval := s.CountdownInterval
	if interval <= 0 {
		interval = config.CountdownInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		latest := s.Settings()
		if !latest.SameSchedule(current) {
			tracker.reset(latest)
		}
		current = latest

		update := s.nextUpdate(ctx, tracker)
		if ctx.Err() != nil {
			return
		}
		publish(out, update)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) nextUpdate(ctx context.Context, tracker *tableTracker) NextPrayerUpdate {
	now := s.now()

	fetchCtx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
	defer cancel()

	up, today, err := tracker.next(fetchCtx, now)
	if err != nil {
		slog.Debug(config.MsgTickSkipped, config.LogKeyComponent, config.CompCountdown, config.LogKeyError, err)
		return NextPrayerUpdate{Err: err}
	}

	return NextPrayerUpdate{
		Prayer:      up.Prayer,
		Time:        up.Time,
		At:          up.At,
		Remaining:   up.Remaining(now),
		HijriDate:   today.HijriDate,
		Stale:       today.Stale,
		Approximate: up.Approximate,
	}
}

// publish replaces any unread update with u.
func publish(out chan NextPrayerUpdate, u NextPrayerUpdate) {
	select {
	case out <- u:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- u:
	default:
	}
}
