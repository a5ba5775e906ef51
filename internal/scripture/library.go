package scripture

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/store"
)

// ErrNotAvailable means the content is neither stored nor reachable.
var ErrNotAvailable = errors.New(config.ErrSurahNotFound)

// Store is the slice of the offline store the library uses.
type Store interface {
	Get(ctx context.Context, collection, key string) ([]byte, bool, error)
	GetAll(ctx context.Context, collection string) ([]store.Record, error)
	Update(ctx context.Context, fn func(store.Tx) error) error
}

// Library serves surahs from the offline store when possible and from the
// provider otherwise. Verse content and the surah's downloaded flag always
// change together.
type Library struct {
	Client *Client
	Store  Store
}

// NewLibrary creates a library over c and st.
func NewLibrary(c *Client, st Store) *Library {
	return &Library{Client: c, Store: st}
}

// Surahs returns the surah index with IsDownloaded set. The live index is
// preferred and refreshes the stored copy; offline, the stored copy is used.
func (l *Library) Surahs(ctx context.Context) ([]Surah, error) {
	remote, err := l.Client.FetchSurahs(ctx)
	if err == nil {
		merged, mergeErr := l.saveIndex(ctx, remote)
		if mergeErr != nil {
			slog.Warn(config.ErrStoreWrite, config.LogKeyComponent, config.CompScripture, config.LogKeyError, mergeErr)
			return remote, nil
		}
		return merged, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cached, cacheErr := l.storedSurahs(ctx)
	if cacheErr != nil || len(cached) == 0 {
		return nil, err
	}
	slog.Info(config.MsgSurahsOffline,
		config.LogKeyComponent, config.CompScripture,
		config.LogKeyCount, len(cached),
		config.LogKeyError, err)
	return cached, nil
}

// saveIndex writes the index and carries over the downloaded flags.
func (l *Library) saveIndex(ctx context.Context, remote []Surah) ([]Surah, error) {
	merged := slices.Clone(remote)
	err := l.Store.Update(ctx, func(tx store.Tx) error {
		for i := range merged {
			var prev Surah
			found, err := store.GetJSONTx(tx, config.CollScripture, surahKey(merged[i].Number), &prev)
			if err != nil {
				return err
			}
			merged[i].IsDownloaded = found && prev.IsDownloaded
			if err := store.PutJSONTx(tx, config.CollScripture, surahKey(merged[i].Number), merged[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (l *Library) storedSurahs(ctx context.Context) ([]Surah, error) {
	records, err := l.Store.GetAll(ctx, config.CollScripture)
	if err != nil {
		return nil, err
	}

	var out []Surah
	for _, r := range records {
		if !strings.HasPrefix(r.Key, config.KeyPrefixSurah) {
			continue
		}
		var s Surah
		if err := json.Unmarshal(r.Value, &s); err != nil {
			slog.Warn(config.ErrDecodeRecord,
				config.LogKeyComponent, config.CompScripture,
				config.LogKeyKey, r.Key,
				config.LogKeyError, err)
			continue
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Surah) int { return cmp.Compare(a.Number, b.Number) })
	return out, nil
}

// Ayahs returns the verses of surah n, downloaded content first.
func (l *Library) Ayahs(ctx context.Context, n int) ([]Ayah, error) {
	if !ValidSurah(n) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSurah, n)
	}

	raw, found, err := l.Store.Get(ctx, config.CollScripture, ayahsKey(n))
	switch {
	case err != nil:
		slog.Warn(config.ErrStoreRead, config.LogKeyComponent, config.CompScripture, config.LogKeySurah, n, config.LogKeyError, err)
	case found:
		var ayahs []Ayah
		if err := json.Unmarshal(raw, &ayahs); err == nil {
			return ayahs, nil
		}
		slog.Warn(config.ErrDecodeRecord, config.LogKeyComponent, config.CompScripture, config.LogKeySurah, n)
	}

	ayahs, err := l.Client.FetchAyahs(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAvailable, err)
	}
	return ayahs, nil
}

// Download stores surah n for offline reading and marks it downloaded.
func (l *Library) Download(ctx context.Context, n int) error {
	ayahs, err := l.Client.FetchAyahs(ctx, n)
	if err != nil {
		return err
	}

	err = l.Store.Update(ctx, func(tx store.Tx) error {
		if err := store.PutJSONTx(tx, config.CollScripture, ayahsKey(n), ayahs); err != nil {
			return err
		}

		var s Surah
		found, err := store.GetJSONTx(tx, config.CollScripture, surahKey(n), &s)
		if err != nil {
			return err
		}
		if !found {
			s = Surah{Number: n, NumberOfAyahs: len(ayahs)}
		}
		s.IsDownloaded = true
		return store.PutJSONTx(tx, config.CollScripture, surahKey(n), s)
	})
	if err != nil {
		return err
	}

	slog.Info(config.MsgSurahDownloaded,
		config.LogKeyComponent, config.CompScripture,
		config.LogKeySurah, n,
		config.LogKeyCount, len(ayahs))
	return nil
}

// Remove deletes the stored verses of surah n and clears its flag.
// The index entry itself is kept.
func (l *Library) Remove(ctx context.Context, n int) error {
	if !ValidSurah(n) {
		return fmt.Errorf("%w: %d", ErrInvalidSurah, n)
	}

	err := l.Store.Update(ctx, func(tx store.Tx) error {
		if err := tx.Delete(config.CollScripture, ayahsKey(n)); err != nil {
			return err
		}

		var s Surah
		found, err := store.GetJSONTx(tx, config.CollScripture, surahKey(n), &s)
		if err != nil || !found {
			return err
		}
		s.IsDownloaded = false
		return store.PutJSONTx(tx, config.CollScripture, surahKey(n), s)
	})
	if err != nil {
		return err
	}

	slog.Info(config.MsgSurahRemoved, config.LogKeyComponent, config.CompScripture, config.LogKeySurah, n)
	return nil
}

// IsDownloaded reports the stored flag of surah n.
func (l *Library) IsDownloaded(ctx context.Context, n int) (bool, error) {
	raw, found, err := l.Store.Get(ctx, config.CollScripture, surahKey(n))
	if err != nil || !found {
		return false, err
	}
	var s Surah
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, err
	}
	return s.IsDownloaded, nil
}

func surahKey(n int) string { return config.KeyPrefixSurah + strconv.Itoa(n) }
func ayahsKey(n int) string { return config.KeyPrefixAyahs + strconv.Itoa(n) }
