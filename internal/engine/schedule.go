package engine

import (
	"fmt"
	"time"
)

// Upcoming describes the next prayer relative to a given instant.
type Upcoming struct {
	Prayer Prayer
	Time   TimeOfDay
	At     time.Time

	// Approximate is set when the wrap to tomorrow's Fajr reused today's
	// time because tomorrow's table was not available.
	Approximate bool
}

// Remaining returns the duration from now until the prayer.
func (u Upcoming) Remaining(now time.Time) time.Duration {
	d := u.At.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// NextPrayer returns the first prayer of today strictly after now's minute.
// When now's minute equals a prayer time, that prayer is current and the
// following one is returned.
func NextPrayer(today PrayerTimeTable, now time.Time) (Upcoming, error) {
	return NextPrayerWithTomorrow(today, nil, now)
}

// NextPrayerWithTomorrow is NextPrayer with tomorrow's table available for
// the wrap after Isha. A nil tomorrow yields an approximate Fajr.
func NextPrayerWithTomorrow(today PrayerTimeTable, tomorrow *PrayerTimeTable, now time.Time) (Upcoming, error) {
	if !today.Complete() {
		return Upcoming{}, fmt.Errorf("%w: %s", ErrIncompleteTable, today.Date)
	}

	current := MinuteOf(now)
	for _, p := range ScheduleOrder {
		t, ok := today.Times[p]
		if ok && t > current {
			return Upcoming{Prayer: p, Time: t, At: t.On(now)}, nil
		}
	}

	nextDay := now.AddDate(0, 0, 1)
	if tomorrow != nil {
		if fajr, ok := tomorrow.Times[Fajr]; ok {
			return Upcoming{Prayer: Fajr, Time: fajr, At: fajr.On(nextDay)}, nil
		}
	}

	fajr := today.Times[Fajr]
	return Upcoming{Prayer: Fajr, Time: fajr, At: fajr.On(nextDay), Approximate: true}, nil
}

// PastIsha reports whether now has reached today's Isha, the point after
// which the next prayer belongs to tomorrow.
func PastIsha(today PrayerTimeTable, now time.Time) bool {
	isha, ok := today.Times[Isha]
	return ok && MinuteOf(now) >= isha
}
