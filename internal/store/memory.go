package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memRecord struct {
	value     []byte
	updatedAt time.Time
}

type memKey struct{ collection, key string }

// memoryBackend keeps records in process memory. It backs the store until
// a database is opened and whenever the database cannot be.
type memoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]memRecord
	now  func() time.Time
}

func newMemoryBackend(now func() time.Time) *memoryBackend {
	data := make(map[string]map[string]memRecord, len(Collections))
	for _, c := range Collections {
		data[c] = make(map[string]memRecord)
	}
	return &memoryBackend{data: data, now: now}
}

func (m *memoryBackend) kind() string { return "memory" }

func (m *memoryBackend) close() error { return nil }

func (m *memoryBackend) get(_ context.Context, collection, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[collection][key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(rec.value), true, nil
}

func (m *memoryBackend) getAll(_ context.Context, collection string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.data[collection]))
	for k, rec := range m.data[collection] {
		out = append(out, Record{
			Collection: collection,
			Key:        k,
			Value:      slices.Clone(rec.value),
			UpdatedAt:  rec.updatedAt,
		})
	}
	slices.SortFunc(out, func(a, b Record) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *memoryBackend) collections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// update stages writes in an overlay and applies them only if fn succeeds.
func (m *memoryBackend) update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{base: m, writes: make(map[memKey]*[]byte)}
	if err := fn(tx); err != nil {
		return err
	}

	now := m.now()
	for k, v := range tx.writes {
		if v == nil {
			delete(m.data[k.collection], k.key)
			continue
		}
		m.data[k.collection][k.key] = memRecord{value: *v, updatedAt: now}
	}
	return nil
}

type memTx struct {
	base   *memoryBackend
	writes map[memKey]*[]byte
}

func (t *memTx) Get(collection, key string) ([]byte, bool, error) {
	if v, staged := t.writes[memKey{collection, key}]; staged {
		if v == nil {
			return nil, false, nil
		}
		return slices.Clone(*v), true, nil
	}
	rec, ok := t.base.data[collection][key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(rec.value), true, nil
}

func (t *memTx) Put(collection, key string, value []byte) error {
	v := slices.Clone(value)
	t.writes[memKey{collection, key}] = &v
	return nil
}

func (t *memTx) Delete(collection, key string) error {
	t.writes[memKey{collection, key}] = nil
	return nil
}
