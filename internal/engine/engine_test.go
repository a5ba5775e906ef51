package engine_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tartampluch/go-noor/internal/engine"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockClock controls time for deterministic testing.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CurrentTime
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CurrentTime = t
}

// MockProvider simulates the astronomical time provider using `testify/mock`.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) ComputeTimes(ctx context.Context, req engine.TimesRequest) (engine.PrayerTimeTable, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(engine.PrayerTimeTable), args.Error(1)
}

// MockFetcher simulates the network layer.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

var (
	london = engine.Location{Lat: 51.5072, Lng: -0.1276, Name: "London"}
	day    = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
)

func at(hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func tod(hour, minute int) engine.TimeOfDay {
	return engine.NewTimeOfDay(hour, minute)
}

// sampleTable is a complete table with strictly increasing times.
func sampleTable() engine.PrayerTimeTable {
	return engine.PrayerTimeTable{
		Date: day.Format("2006-01-02"),
		Times: map[engine.Prayer]engine.TimeOfDay{
			engine.Fajr:    tod(5, 10),
			engine.Sunrise: tod(6, 30),
			engine.Dhuhr:   tod(12, 15),
			engine.Asr:     tod(15, 40),
			engine.Maghrib: tod(18, 5),
			engine.Isha:    tod(19, 25),
		},
		HijriDate: "26 Rabi al-thani 1448 AH",
		Timezone:  "UTC",
	}
}
