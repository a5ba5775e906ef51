package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/store"
)

func openTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s := store.New()
	require.NoError(t, s.Open(context.Background(), path))
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

// backends runs fn against a fresh in-memory store and a fresh SQLite store.
func backends(t *testing.T, fn func(t *testing.T, s *store.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, store.New())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, _ := openTestStore(t)
		fn(t, s)
	})
}

func TestStore_UsableBeforeOpen(t *testing.T) {
	s := store.New()
	ctx := context.Background()

	assert.False(t, s.Persistent())

	v, found, err := s.Get(ctx, config.CollReference, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)

	all, err := s.GetAll(ctx, config.CollAudio)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.Put(ctx, config.CollSettings, "k", []byte("v")))
	v, found, err = s.Get(ctx, config.CollSettings, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", string(v))
}

func TestStore_PutGetDelete(t *testing.T) {
	backends(t, func(t *testing.T, s *store.Store) {
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, config.CollReference, "b", []byte("2")))
		require.NoError(t, s.Put(ctx, config.CollReference, "a", []byte("1")))
		require.NoError(t, s.Put(ctx, config.CollReference, "a", []byte("1bis")))

		v, found, err := s.Get(ctx, config.CollReference, "a")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "1bis", string(v))

		all, err := s.GetAll(ctx, config.CollReference)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "a", all[0].Key)
		assert.Equal(t, "b", all[1].Key)
		assert.False(t, all[0].UpdatedAt.IsZero())

		require.NoError(t, s.Delete(ctx, config.CollReference, "a"))
		require.NoError(t, s.Delete(ctx, config.CollReference, "never-existed"))

		_, found, err = s.Get(ctx, config.CollReference, "a")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	backends(t, func(t *testing.T, s *store.Store) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, config.CollAudio, "x", []byte("audio")))

		_, found, err := s.Get(ctx, config.CollScripture, "x")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestStore_UnknownCollection(t *testing.T) {
	s := store.New()
	ctx := context.Background()

	_, _, err := s.Get(ctx, "contacts", "k")
	assert.ErrorIs(t, err, store.ErrUnknownCollection)

	err = s.Put(ctx, "contacts", "k", []byte("v"))
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
}

// TestStore_UpdateIsAtomic checks that a failing update leaves no partial write.
func TestStore_UpdateIsAtomic(t *testing.T) {
	backends(t, func(t *testing.T, s *store.Store) {
		ctx := context.Background()
		boom := errors.New("boom")

		err := s.Update(ctx, func(tx store.Tx) error {
			if err := tx.Put(config.CollScripture, "ayahs:1", []byte("content")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, found, err := s.Get(ctx, config.CollScripture, "ayahs:1")
		require.NoError(t, err)
		assert.False(t, found, "rolled back write must not be visible")

		err = s.Update(ctx, func(tx store.Tx) error {
			if err := tx.Put(config.CollScripture, "ayahs:1", []byte("content")); err != nil {
				return err
			}
			v, found, err := tx.Get(config.CollScripture, "ayahs:1")
			require.NoError(t, err)
			assert.True(t, found, "transaction must read its own writes")
			assert.Equal(t, "content", string(v))
			return tx.Put(config.CollScripture, "surah:1", []byte(`{"downloaded":true}`))
		})
		require.NoError(t, err)

		all, err := s.GetAll(ctx, config.CollScripture)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestStore_JSONHelpers(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	backends(t, func(t *testing.T, s *store.Store) {
		ctx := context.Background()
		require.NoError(t, s.PutJSON(ctx, config.CollSettings, "p", payload{Name: "noor", Count: 3}))

		var got payload
		found, err := s.GetJSON(ctx, config.CollSettings, "p", &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, payload{Name: "noor", Count: 3}, got)

		found, err = s.GetJSON(ctx, config.CollSettings, "absent", &got)
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, s.Put(ctx, config.CollSettings, "broken", []byte("{")))
		_, err = s.GetJSON(ctx, config.CollSettings, "broken", &got)
		assert.Error(t, err)
	})
}

func TestOpen_CreatesCollections(t *testing.T) {
	s, _ := openTestStore(t)

	assert.True(t, s.Persistent())

	names, err := s.ListCollections(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, store.Collections, names)
}

// TestOpen_Idempotent reopens the same file and checks nothing is duplicated or lost.
func TestOpen_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "noor.db")

	first := store.New()
	require.NoError(t, first.Open(ctx, path))
	require.NoError(t, first.Open(ctx, path), "second Open on the same path is a no-op")
	require.NoError(t, first.Put(ctx, config.CollAudio, "meta:makkah", []byte("{}")))
	require.NoError(t, first.Close())

	second := store.New()
	require.NoError(t, second.Open(ctx, path))
	defer func() { _ = second.Close() }()

	names, err := second.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, names, len(store.Collections))

	v, found, err := second.Get(ctx, config.CollAudio, "meta:makkah")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "{}", string(v))
}

func TestOpen_FailureKeepsMemoryBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// A directory cannot be opened as a database file.
	blocker := filepath.Join(dir, "not-a-file")
	require.NoError(t, os.Mkdir(blocker, 0o700))

	s := store.New()
	require.NoError(t, s.Put(ctx, config.CollSettings, "k", []byte("v")))

	err := s.Open(ctx, blocker)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.False(t, s.Persistent())

	v, found, err := s.Get(ctx, config.CollSettings, "k")
	require.NoError(t, err)
	assert.True(t, found, "memory data survives a failed Open")
	assert.Equal(t, "v", string(v))
}

func TestOpen_EmptyPath(t *testing.T) {
	err := store.New().Open(context.Background(), "")
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
}
