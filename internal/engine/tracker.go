package engine

import (
	"context"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
)

// TableSource is what the trackers need from the Time Source.
type TableSource interface {
	GetPrayerTimes(ctx context.Context, loc Location, cfg CalculationConfig, date time.Time) (PrayerTimeTable, error)
}

// tableTracker keeps today's (and after Isha, tomorrow's) table for one
// consumer loop. It refreshes when the civil date changes and when reset.
// Dates and minutes are read in the location's zone once a table has
// reported it, so a searched city abroad runs on its own wall clock.
// A stale table is re-fetched at most every StaleRetryInterval; with no
// table at all, failures are retried after failBackoff. It is owned by a
// single goroutine.
type tableTracker struct {
	source      TableSource
	failBackoff time.Duration

	loc  *Location
	cfg  CalculationConfig
	zone *time.Location

	current  *PrayerTimeTable
	tomorrow *PrayerTimeTable

	retryAt         time.Time
	tomorrowRetryAt time.Time
	lastErr         error
}

func newTableTracker(src TableSource, s Settings) *tableTracker {
	t := &tableTracker{source: src}
	t.reset(s)
	return t
}

// reset drops every held table so the next call refreshes.
func (t *tableTracker) reset(s Settings) {
	t.loc = nil
	if s.Location != nil {
		loc := *s.Location
		t.loc = &loc
	}
	t.cfg = s.Config
	t.zone = nil
	t.current = nil
	t.tomorrow = nil
	t.retryAt = time.Time{}
	t.tomorrowRetryAt = time.Time{}
	t.lastErr = nil
}

func (t *tableTracker) today(ctx context.Context, now time.Time) (PrayerTimeTable, error) {
	if t.loc == nil {
		return PrayerTimeTable{}, ErrNoLocation
	}

	now = t.local(now)
	date := CivilDate(now)
	fresh := t.current != nil && t.current.Date == date

	switch {
	case fresh && !t.current.Stale:
		return *t.current, nil
	case fresh && now.Before(t.retryAt):
		return *t.current, nil
	case !fresh && t.lastErr != nil && now.Before(t.retryAt):
		return PrayerTimeTable{}, t.lastErr
	}

	table, err := t.source.GetPrayerTimes(ctx, *t.loc, t.cfg, now)
	if err != nil {
		if fresh {
			t.retryAt = now.Add(config.StaleRetryInterval)
			return *t.current, nil
		}
		t.lastErr = err
		t.retryAt = now.Add(t.failBackoff)
		return PrayerTimeTable{}, err
	}

	t.lastErr = nil
	if table.Stale {
		t.retryAt = now.Add(config.StaleRetryInterval)
	}
	t.current = &table

	// The first table names the zone; if its civil date differs from ours,
	// the table for the location's own date is the one we want.
	if t.zone == nil && table.Timezone != "" {
		t.zone = table.ZoneLocation(now.Location())
		if zoned := now.In(t.zone); CivilDate(zoned) != table.Date {
			return t.today(ctx, zoned)
		}
	}
	return table, nil
}

// local converts now to the location's zone when it is known.
func (t *tableTracker) local(now time.Time) time.Time {
	if t.zone == nil {
		return now
	}
	return now.In(t.zone)
}

// next resolves the upcoming prayer, prefetching tomorrow's table once
// now has reached Isha so the wrap is exact rather than approximate.
func (t *tableTracker) next(ctx context.Context, now time.Time) (Upcoming, PrayerTimeTable, error) {
	today, err := t.today(ctx, now)
	if err != nil {
		return Upcoming{}, PrayerTimeTable{}, err
	}
	now = t.local(now)

	var tomorrow *PrayerTimeTable
	if PastIsha(today, now) {
		tomorrow = t.tomorrowTable(ctx, now)
	}

	up, err := NextPrayerWithTomorrow(today, tomorrow, now)
	return up, today, err
}

func (t *tableTracker) tomorrowTable(ctx context.Context, now time.Time) *PrayerTimeTable {
	nextDay := now.AddDate(0, 0, 1)
	date := CivilDate(nextDay)

	var held *PrayerTimeTable
	if t.tomorrow != nil && t.tomorrow.Date == date {
		held = t.tomorrow
	}
	if held != nil && !held.Stale {
		return held
	}
	if now.Before(t.tomorrowRetryAt) {
		return held
	}

	table, err := t.source.GetPrayerTimes(ctx, *t.loc, t.cfg, nextDay)
	if err != nil {
		t.tomorrowRetryAt = now.Add(config.StaleRetryInterval)
		return held
	}
	if table.Stale {
		t.tomorrowRetryAt = now.Add(config.StaleRetryInterval)
	}
	t.tomorrow = &table
	return t.tomorrow
}
