package audio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tartampluch/go-noor/internal/config"
)

// Handle is a playable reference to an adhan: a temporary file materialized
// from a downloaded blob, or the remote URL. Releasing it stops playback
// and removes any temporary file. Release is idempotent.
type Handle struct {
	ID      string
	VoiceID string
	Source  string
	Local   bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	cleanup  func() error
	once     sync.Once
	released chan struct{}
	err      error
}

func newHandle(voiceID, source string, local bool, cleanup func() error) *Handle {
	return &Handle{
		ID:       uuid.NewString(),
		VoiceID:  voiceID,
		Source:   source,
		Local:    local,
		cleanup:  cleanup,
		released: make(chan struct{}),
	}
}

// Release stops playback and frees the handle's resources.
func (h *Handle) Release() error {
	h.once.Do(func() {
		h.mu.Lock()
		cancel := h.cancel
		close(h.released)
		h.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if h.cleanup != nil {
			h.err = h.cleanup()
		}

		slog.Debug(config.MsgHandleReleased,
			config.LogKeyComponent, config.CompAudio,
			config.LogKeyHandle, h.ID,
			config.LogKeyVoice, h.VoiceID)
	})
	return h.err
}

// Released is closed once the handle has been released.
func (h *Handle) Released() <-chan struct{} {
	return h.released
}

// IsReleased reports whether Release has been called.
func (h *Handle) IsReleased() bool {
	select {
	case <-h.released:
		return true
	default:
		return false
	}
}

// bind attaches the playback cancel func. A handle released before playback
// started cancels immediately.
func (h *Handle) bind(cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.IsReleased() {
		cancel()
		return
	}
	h.cancel = cancel
}

// slot holds at most one active handle. Acquiring a new handle releases the
// previous one whether or not it finished playing.
type slot struct {
	name    string
	mu      sync.Mutex
	current *Handle
}

func (s *slot) acquire(h *Handle) {
	s.mu.Lock()
	prev := s.current
	s.current = h
	s.mu.Unlock()

	if prev != nil && prev != h {
		s.release(prev)
	}
	slog.Debug(config.MsgHandleAcquired,
		config.LogKeyComponent, config.CompAudio,
		config.LogKeySlot, s.name,
		config.LogKeyHandle, h.ID,
		config.LogKeyLocal, h.Local)
}

// finish releases h and empties the slot if h is still its occupant.
func (s *slot) finish(h *Handle) {
	s.mu.Lock()
	if s.current == h {
		s.current = nil
	}
	s.mu.Unlock()
	s.release(h)
}

func (s *slot) clear() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()
	if prev != nil {
		s.release(prev)
	}
}

func (s *slot) active() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *slot) release(h *Handle) {
	if err := h.Release(); err != nil {
		slog.Warn("Handle cleanup failed",
			config.LogKeyComponent, config.CompAudio,
			config.LogKeySlot, s.name,
			config.LogKeyHandle, h.ID,
			config.LogKeyError, err)
	}
}
