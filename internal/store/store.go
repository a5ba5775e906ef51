package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
)

var (
	// ErrStorageUnavailable is returned by Open when the persistent backend
	// cannot be initialized. The store keeps working in memory.
	ErrStorageUnavailable = errors.New(config.ErrStorageUnavailable)

	ErrUnknownCollection = errors.New(config.ErrUnknownCollection)
)

// Collections lists every namespace the store manages.
var Collections = []string{
	config.CollReference,
	config.CollScripture,
	config.CollAudio,
	config.CollSettings,
}

// Record is a stored value together with its last write time.
type Record struct {
	Collection string
	Key        string
	Value      []byte
	UpdatedAt  time.Time
}

// Tx is the view of the store inside an atomic Update.
// Reads observe the transaction's own pending writes.
type Tx interface {
	Get(collection, key string) ([]byte, bool, error)
	Put(collection, key string, value []byte) error
	Delete(collection, key string) error
}

type backend interface {
	get(ctx context.Context, collection, key string) ([]byte, bool, error)
	getAll(ctx context.Context, collection string) ([]Record, error)
	update(ctx context.Context, fn func(Tx) error) error
	collections(ctx context.Context) ([]string, error)
	kind() string
	close() error
}

// Store is the offline key-value store.
// A new Store is immediately usable with a volatile in-memory backend;
// Open swaps in the SQLite file. Reads of absent keys report found=false
// instead of failing, before and after Open.
type Store struct {
	mu   sync.RWMutex
	b    backend
	path string
	now  func() time.Time
}

// New returns a store backed by memory until Open succeeds.
func New() *Store {
	return &Store{b: newMemoryBackend(time.Now), now: time.Now}
}

// Open attaches the SQLite database at path, creating and migrating it as
// needed. Opening the same path twice is a no-op. On failure the current
// backend stays in place and ErrStorageUnavailable is returned.
func (s *Store) Open(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompStore),
		slog.String(config.LogKeyPath, path),
	)

	if path == "" {
		return fmt.Errorf("%w: %s", ErrStorageUnavailable, config.ErrStorePathEmpty)
	}

	if s.path == path {
		return nil
	}

	b, err := openSQLite(ctx, path, s.now)
	if err != nil {
		log.Warn(config.MsgStoreDegraded, slog.Any(config.LogKeyError, err))
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	old := s.b
	s.b = b
	s.path = path
	if err := old.close(); err != nil {
		log.Debug("Previous backend close failed", slog.Any(config.LogKeyError, err))
	}

	log.Info(config.MsgStoreOpened, slog.String(config.LogKeyBackend, b.kind()))
	return nil
}

// Persistent reports whether data survives a restart.
func (s *Store) Persistent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path != ""
}

// Close releases the persistent backend and falls back to an empty memory one.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.b.close()
	s.b = newMemoryBackend(s.now)
	s.path = ""
	return err
}

// Get returns the value stored under key, with found=false when absent.
func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := checkCollection(collection); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.get(ctx, collection, key)
}

// GetAll returns every record of a collection ordered by key.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.getAll(ctx, collection)
}

// Put upserts a single value.
func (s *Store) Put(ctx context.Context, collection, key string, value []byte) error {
	return s.Update(ctx, func(tx Tx) error {
		return tx.Put(collection, key, value)
	})
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	return s.Update(ctx, func(tx Tx) error {
		return tx.Delete(collection, key)
	})
}

// Update runs fn atomically: either every write fn makes is committed or none is.
func (s *Store) Update(ctx context.Context, fn func(Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.update(ctx, func(tx Tx) error {
		return fn(checkedTx{tx})
	})
}

// ListCollections returns the collection names known to the backend.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.collections(ctx)
}

// GetJSON decodes the value under key into v.
func (s *Store) GetJSON(ctx context.Context, collection, key string, v any) (bool, error) {
	raw, found, err := s.Get(ctx, collection, key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%s %s/%s: %w", config.ErrDecodeRecord, collection, key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func (s *Store) PutJSON(ctx context.Context, collection, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", config.ErrEncodeRecord, collection, key, err)
	}
	return s.Put(ctx, collection, key, raw)
}

// GetJSONTx is GetJSON inside a transaction.
func GetJSONTx(tx Tx, collection, key string, v any) (bool, error) {
	raw, found, err := tx.Get(collection, key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%s %s/%s: %w", config.ErrDecodeRecord, collection, key, err)
	}
	return true, nil
}

// PutJSONTx is PutJSON inside a transaction.
func PutJSONTx(tx Tx, collection, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", config.ErrEncodeRecord, collection, key, err)
	}
	return tx.Put(collection, key, raw)
}

func checkCollection(name string) error {
	if !slices.Contains(Collections, name) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return nil
}

// checkedTx validates collection names before they reach the backend.
type checkedTx struct{ tx Tx }

func (c checkedTx) Get(collection, key string) ([]byte, bool, error) {
	if err := checkCollection(collection); err != nil {
		return nil, false, err
	}
	return c.tx.Get(collection, key)
}

func (c checkedTx) Put(collection, key string, value []byte) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	return c.tx.Put(collection, key, value)
}

func (c checkedTx) Delete(collection, key string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	return c.tx.Delete(collection, key)
}
