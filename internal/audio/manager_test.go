package audio_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-noor/internal/audio"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/store"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

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

// blockingPlayer plays until its context is cancelled and reports every
// handle it starts.
type blockingPlayer struct {
	started chan *audio.Handle
}

func newBlockingPlayer() *blockingPlayer {
	return &blockingPlayer{started: make(chan *audio.Handle, 8)}
}

func (p *blockingPlayer) Play(ctx context.Context, h *audio.Handle) error {
	p.started <- h
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingPlayer) next(t *testing.T) *audio.Handle {
	t.Helper()
	select {
	case h := <-p.started:
		return h
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not start")
		return nil
	}
}

func waitReleased(t *testing.T, h *audio.Handle) {
	t.Helper()
	select {
	case <-h.Released():
	case <-time.After(2 * time.Second):
		t.Fatalf("handle %s was not released", h.ID)
	}
}

func newTestManager(t *testing.T, p audio.Player, f *MockFetcher) (*audio.Manager, *store.Store) {
	t.Helper()
	st := store.New()
	m := audio.NewManager(st, p, f)
	m.TempDir = t.TempDir()
	t.Cleanup(m.Close)
	return m, st
}

// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

func TestResolvePlayable_PrefersDownloadedBlob(t *testing.T) {
	f := new(MockFetcher)
	m, st := newTestManager(t, newBlockingPlayer(), f)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, config.CollAudio, "blob:makkah", []byte("ID3-audio")))

	h, err := m.ResolvePlayable(ctx, "makkah")
	require.NoError(t, err)

	assert.True(t, h.Local)
	assert.NotContains(t, h.Source, "islamcan.com", "remote URL must not be used when a blob exists")
	data, err := os.ReadFile(h.Source)
	require.NoError(t, err)
	assert.Equal(t, "ID3-audio", string(data))

	require.NoError(t, h.Release())
	_, err = os.Stat(h.Source)
	assert.True(t, os.IsNotExist(err), "release removes the temporary file")
	assert.NoError(t, h.Release(), "release is idempotent")

	f.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestResolvePlayable_FallsBackToRemote(t *testing.T) {
	m, _ := newTestManager(t, newBlockingPlayer(), new(MockFetcher))

	h, err := m.ResolvePlayable(context.Background(), "madinah")
	require.NoError(t, err)
	defer func() { _ = h.Release() }()

	assert.False(t, h.Local)
	assert.Equal(t, "https://www.islamcan.com/audio/adhan/azan2.mp3", h.Source)
	assert.NotEmpty(t, h.ID)
}

func TestResolvePlayable_UnknownVoice(t *testing.T) {
	m, _ := newTestManager(t, newBlockingPlayer(), new(MockFetcher))

	_, err := m.ResolvePlayable(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, audio.ErrAudioResolutionFailed)
}

// -----------------------------------------------------------------------------
// Slots
// -----------------------------------------------------------------------------

func TestPlayDispatch_ReleasesPreviousHandle(t *testing.T) {
	p := newBlockingPlayer()
	m, _ := newTestManager(t, p, new(MockFetcher))
	ctx := context.Background()

	require.NoError(t, m.PlayDispatch(ctx, "makkah"))
	first := p.next(t)

	require.NoError(t, m.PlayDispatch(ctx, "egypt"))
	second := p.next(t)

	waitReleased(t, first)
	assert.False(t, second.IsReleased())
	assert.Same(t, second, m.DispatchHandle())
}

func TestPreviewAndDispatch_AreIndependent(t *testing.T) {
	p := newBlockingPlayer()
	m, _ := newTestManager(t, p, new(MockFetcher))
	ctx := context.Background()

	require.NoError(t, m.PlayDispatch(ctx, "makkah"))
	dispatch := p.next(t)

	preview, err := m.Preview(ctx, "mishary")
	require.NoError(t, err)
	assert.Same(t, preview, p.next(t))

	assert.False(t, dispatch.IsReleased(), "a preview must not stop the dispatch adhan")

	_, err = m.Preview(ctx, "alaqsa")
	require.NoError(t, err)
	p.next(t)

	waitReleased(t, preview)
	assert.False(t, dispatch.IsReleased())

	m.StopPreview()
	assert.Nil(t, m.PreviewHandle())
	assert.Same(t, dispatch, m.DispatchHandle())
}

func TestPlayback_CompletionReleasesHandle(t *testing.T) {
	done := make(chan struct{})
	player := playerFunc(func(ctx context.Context, h *audio.Handle) error {
		<-done
		return nil
	})
	m, _ := newTestManager(t, player, new(MockFetcher))

	h, err := m.Preview(context.Background(), "makkah")
	require.NoError(t, err)
	close(done)

	waitReleased(t, h)
	assert.Eventually(t, func() bool { return m.PreviewHandle() == nil }, time.Second, 10*time.Millisecond)
}

func TestPlayback_FailureStillReleases(t *testing.T) {
	player := playerFunc(func(ctx context.Context, h *audio.Handle) error {
		return errors.New("device busy")
	})
	m, _ := newTestManager(t, player, new(MockFetcher))

	h, err := m.Preview(context.Background(), "makkah")
	require.NoError(t, err)
	waitReleased(t, h)
}

func TestClose_ReleasesBothSlots(t *testing.T) {
	p := newBlockingPlayer()
	st := store.New()
	m := audio.NewManager(st, p, new(MockFetcher))
	ctx := context.Background()

	require.NoError(t, m.PlayDispatch(ctx, "makkah"))
	d := p.next(t)
	_, err := m.Preview(ctx, "egypt")
	require.NoError(t, err)
	pv := p.next(t)

	m.Close()

	assert.True(t, d.IsReleased())
	assert.True(t, pv.IsReleased())
}

func TestPlay_WithoutPlayer(t *testing.T) {
	m := audio.NewManager(store.New(), nil, new(MockFetcher))
	err := m.PlayDispatch(context.Background(), "makkah")
	assert.ErrorIs(t, err, audio.ErrPlayerUnavailable)
}

type playerFunc func(ctx context.Context, h *audio.Handle) error

func (f playerFunc) Play(ctx context.Context, h *audio.Handle) error { return f(ctx, h) }
