package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
	"golang.org/x/sync/singleflight"
)

// TimesRequest is what a provider needs to compute one day's table.
type TimesRequest struct {
	Date     time.Time
	Location Location
	Config   CalculationConfig
}

// TimeProvider computes prayer times remotely.
type TimeProvider interface {
	ComputeTimes(ctx context.Context, req TimesRequest) (PrayerTimeTable, error)
}

// KeyValueStore is the slice of the offline store the engine relies on.
type KeyValueStore interface {
	Get(ctx context.Context, collection, key string) ([]byte, bool, error)
	Put(ctx context.Context, collection, key string, value []byte) error
}

// TimeSource resolves prayer time tables: live from the provider when
// reachable, from the offline cache otherwise.
type TimeSource struct {
	Provider TimeProvider
	Store    KeyValueStore
	Clock    Clock

	group singleflight.Group
}

// NewTimeSource wires a provider to the offline cache.
func NewTimeSource(p TimeProvider, s KeyValueStore, c Clock) *TimeSource {
	return &TimeSource{Provider: p, Store: s, Clock: c}
}

// GetPrayerTimes returns the table for the civil date of date.
//
// A live fetch is always attempted. On success the table is written through
// to the cache and returned. On failure the cached table is returned with
// Stale set, or ErrTimeSourceUnavailable if nothing was cached. Concurrent
// calls for the same key share one provider request, which runs detached
// from any single caller and is bounded by config.FetchTimeout.
func (ts *TimeSource) GetPrayerTimes(ctx context.Context, loc Location, cfg CalculationConfig, date time.Time) (PrayerTimeTable, error) {
	if err := ctx.Err(); err != nil {
		return PrayerTimeTable{}, err
	}

	key := NewTableKey(date, loc, cfg)
	req := TimesRequest{Date: date, Location: loc, Config: cfg}

	ch := ts.group.DoChan(string(key), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.FetchTimeout)
		defer cancel()
		return ts.fetch(flightCtx, key, req)
	})

	select {
	case <-ctx.Done():
		return PrayerTimeTable{}, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(PrayerTimeTable), nil
		}
		if err := ctx.Err(); err != nil {
			return PrayerTimeTable{}, err
		}
		return ts.fallback(ctx, key, res.Err)
	}
}

// fetch asks the provider and writes a live table through to the cache.
func (ts *TimeSource) fetch(ctx context.Context, key TableKey, req TimesRequest) (PrayerTimeTable, error) {
	live, err := ts.Provider.ComputeTimes(ctx, req)
	if err != nil {
		return PrayerTimeTable{}, err
	}

	live.Key = key
	live.Date = CivilDate(req.Date)
	live.Location = req.Location
	live.Config = req.Config
	live.FetchedAt = ts.now()
	live.Stale = false

	log := slog.With(
		config.LogKeyComponent, config.CompTimeSource,
		config.LogKeyKey, string(key),
	)
	if err := ts.write(ctx, live); err != nil {
		log.Warn(config.MsgWriteThroughErr, config.LogKeyError, err)
	}
	log.Debug(config.MsgLiveFetched)
	return live, nil
}

// fallback serves the cached table for one caller after a failed fetch.
func (ts *TimeSource) fallback(ctx context.Context, key TableKey, fetchErr error) (PrayerTimeTable, error) {
	log := slog.With(
		config.LogKeyComponent, config.CompTimeSource,
		config.LogKeyKey, string(key),
	)

	cached, found := ts.lookup(ctx, key)
	if !found {
		log.Warn(config.MsgCacheMiss, config.LogKeyError, fetchErr)
		return PrayerTimeTable{}, fmt.Errorf("%w: %w", ErrTimeSourceUnavailable, fetchErr)
	}

	log.Warn(config.MsgServingStale, config.LogKeyError, fetchErr)
	cached.Stale = true
	return cached, nil
}

// CachedTimes reads the offline cache only. It never touches the network.
func (ts *TimeSource) CachedTimes(ctx context.Context, loc Location, cfg CalculationConfig, date time.Time) (PrayerTimeTable, bool) {
	return ts.lookup(ctx, NewTableKey(date, loc, cfg))
}

// lookup treats store failures as a miss.
func (ts *TimeSource) lookup(ctx context.Context, key TableKey) (PrayerTimeTable, bool) {
	if ts.Store == nil {
		return PrayerTimeTable{}, false
	}

	raw, found, err := ts.Store.Get(ctx, config.CollReference, string(key))
	if err != nil {
		slog.Warn(config.ErrStoreRead,
			config.LogKeyComponent, config.CompTimeSource,
			config.LogKeyKey, string(key),
			config.LogKeyError, err)
		return PrayerTimeTable{}, false
	}
	if !found {
		return PrayerTimeTable{}, false
	}

	var table PrayerTimeTable
	if err := json.Unmarshal(raw, &table); err != nil {
		slog.Warn(config.ErrDecodeRecord,
			config.LogKeyComponent, config.CompTimeSource,
			config.LogKeyKey, string(key),
			config.LogKeyError, err)
		return PrayerTimeTable{}, false
	}
	slog.Debug(config.MsgCacheHit, config.LogKeyComponent, config.CompTimeSource, config.LogKeyKey, string(key))
	return table, true
}

func (ts *TimeSource) write(ctx context.Context, table PrayerTimeTable) error {
	if ts.Store == nil {
		return nil
	}
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncodeRecord, err)
	}
	return ts.Store.Put(ctx, config.CollReference, string(table.Key), raw)
}

func (ts *TimeSource) now() time.Time {
	if ts.Clock == nil {
		return time.Now()
	}
	return ts.Clock.Now()
}
