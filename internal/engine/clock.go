package engine

import (
	"time"

	"github.com/tartampluch/go-noor/internal/config"
)

// Clock abstracts time.Now() so the scheduler can be driven by tests.
// The dispatcher, the countdown and the time source all read "now" through it.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// CivilDate is the "YYYY-MM-DD" date of t in t's own location. Tables,
// cache keys and dedup keys are all indexed by it.
func CivilDate(t time.Time) string {
	return t.Format(config.TableDateFormat)
}
