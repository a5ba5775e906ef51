package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/fetcher"
	"github.com/tartampluch/go-noor/internal/store"
)

var (
	// ErrAudioResolutionFailed means the voice has neither a downloaded blob
	// nor a remote URL.
	ErrAudioResolutionFailed = errors.New(config.ErrAudioResolution)

	ErrUnknownVoice = errors.New(config.ErrUnknownVoice)
)

// BlobStore is the slice of the offline store the manager uses.
type BlobStore interface {
	Get(ctx context.Context, collection, key string) ([]byte, bool, error)
	GetAll(ctx context.Context, collection string) ([]store.Record, error)
	Update(ctx context.Context, fn func(store.Tx) error) error
}

// Manager resolves adhan voices to playable handles and owns the two
// playback slots. Dispatch and preview playback are independent: each slot
// releases only its own previous handle.
type Manager struct {
	Store   BlobStore
	Player  Player
	Fetcher fetcher.Fetcher
	Catalog Catalog

	// TempDir receives materialized blobs. Empty means the OS default.
	TempDir string

	dispatch slot
	preview  slot
	wg       sync.WaitGroup
}

// NewManager builds a manager over the default voice catalog.
func NewManager(st BlobStore, p Player, f fetcher.Fetcher) *Manager {
	return &Manager{
		Store:    st,
		Player:   p,
		Fetcher:  f,
		Catalog:  DefaultCatalog,
		dispatch: slot{name: "dispatch"},
		preview:  slot{name: "preview"},
	}
}

// ResolvePlayable returns a handle for voiceID. A downloaded blob is always
// preferred; the remote URL is used only when no blob exists.
func (m *Manager) ResolvePlayable(ctx context.Context, voiceID string) (*Handle, error) {
	log := slog.With(config.LogKeyComponent, config.CompAudio, config.LogKeyVoice, voiceID)

	if m.Store != nil {
		blob, found, err := m.Store.Get(ctx, config.CollAudio, blobKey(voiceID))
		switch {
		case err != nil:
			log.Warn(config.ErrStoreRead, config.LogKeyError, err)
		case found && len(blob) > 0:
			h, err := m.materialize(voiceID, blob)
			if err == nil {
				return h, nil
			}
			log.Warn(config.ErrTempFile, config.LogKeyError, err)
		}
	}

	if v, ok := m.Catalog.Lookup(voiceID); ok && v.URL != "" {
		return newHandle(voiceID, v.URL, false, nil), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAudioResolutionFailed, voiceID)
}

// materialize writes blob to a private temporary file owned by the handle.
func (m *Manager) materialize(voiceID string, blob []byte) (*Handle, error) {
	f, err := os.CreateTemp(m.TempDir, config.TempAudioPattern)
	if err != nil {
		return nil, err
	}
	path := f.Name()

	if _, err := f.Write(blob); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return newHandle(voiceID, path, true, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}), nil
}

// PlayDispatch plays voiceID in the dispatch slot and returns once playback
// has started. Errors are resolution errors; playback failures are logged.
func (m *Manager) PlayDispatch(ctx context.Context, voiceID string) error {
	_, err := m.play(ctx, &m.dispatch, voiceID)
	return err
}

// Preview plays voiceID in the preview slot.
func (m *Manager) Preview(ctx context.Context, voiceID string) (*Handle, error) {
	return m.play(ctx, &m.preview, voiceID)
}

// StopPreview releases the preview handle, if any.
func (m *Manager) StopPreview() {
	m.preview.clear()
}

// DispatchHandle returns the handle playing in the dispatch slot.
func (m *Manager) DispatchHandle() *Handle { return m.dispatch.active() }

// PreviewHandle returns the handle playing in the preview slot.
func (m *Manager) PreviewHandle() *Handle { return m.preview.active() }

func (m *Manager) play(ctx context.Context, s *slot, voiceID string) (*Handle, error) {
	h, err := m.ResolvePlayable(ctx, voiceID)
	if err != nil {
		return nil, err
	}

	s.acquire(h)

	if m.Player == nil {
		s.finish(h)
		return nil, ErrPlayerUnavailable
	}

	playCtx, cancel := context.WithCancel(ctx)
	h.bind(cancel)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer s.finish(h)

		start := time.Now()
		err := m.Player.Play(playCtx, h)
		if err != nil && playCtx.Err() == nil {
			slog.Error(config.MsgAudioFailed,
				config.LogKeyComponent, config.CompAudio,
				config.LogKeySlot, s.name,
				config.LogKeyVoice, voiceID,
				config.LogKeyError, err)
			return
		}
		slog.Debug("Playback finished",
			config.LogKeyComponent, config.CompAudio,
			config.LogKeySlot, s.name,
			config.LogKeyDuration, time.Since(start).Milliseconds())
	}()

	return h, nil
}

// Close releases both slots and waits for playback goroutines to exit.
func (m *Manager) Close() {
	m.dispatch.clear()
	m.preview.clear()
	m.wg.Wait()
}

func blobKey(voiceID string) string { return config.KeyPrefixAudioBlob + voiceID }
func metaKey(voiceID string) string { return config.KeyPrefixAudioMeta + voiceID }

func voiceFromMetaKey(key string) (string, bool) {
	return strings.CutPrefix(key, config.KeyPrefixAudioMeta)
}
