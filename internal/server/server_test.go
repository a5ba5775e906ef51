package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-noor/internal/config"
)

var feedTime = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newTestServer() *FeedServer {
	srv := NewFeedServer("0")
	srv.Now = func() time.Time { return feedTime }
	return srv
}

func serve(srv *FeedServer, req *http.Request) *http.Response {
	w := httptest.NewRecorder()
	srv.handleFeed(w, req)
	return w.Result()
}

func TestHandler_ServingContent(t *testing.T) {
	srv := newTestServer()
	expectedICS := []byte(config.StubVCalendar)
	srv.Update(expectedICS, 0)

	resp := serve(srv, httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.Equal(t, feedTime.Format(http.TimeFormat), resp.Header.Get(config.HeaderLastModified))
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, expectedICS, body)
}

func TestHandler_Head(t *testing.T) {
	srv := newTestServer()
	srv.Update([]byte("BEGIN:VCALENDAR"), 3)

	resp := serve(srv, httptest.NewRequest(http.MethodHead, config.RouteFeed, nil))
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
	assert.Equal(t, 3, srv.Events())
}

func TestHandler_Caching(t *testing.T) {
	srv := newTestServer()
	srv.Update([]byte("DATA_VERSION_1"), 1)

	first := serve(srv, httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))
	etag := first.Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	t.Run("IfNoneMatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
		req.Header.Set(config.HeaderIfNoneMatch, etag)
		resp := serve(srv, req)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Empty(t, body, "Body must be empty on 304 Not Modified")
	})

	t.Run("StaleETagWinsOverDate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
		req.Header.Set(config.HeaderIfNoneMatch, `"old"`)
		req.Header.Set(config.HeaderIfModifiedSince, feedTime.Add(time.Hour).Format(http.TimeFormat))
		assert.Equal(t, http.StatusOK, serve(srv, req).StatusCode)
	})

	t.Run("IfModifiedSince", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
		req.Header.Set(config.HeaderIfModifiedSince, feedTime.Format(http.TimeFormat))
		assert.Equal(t, http.StatusNotModified, serve(srv, req).StatusCode)

		req = httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
		req.Header.Set(config.HeaderIfModifiedSince, feedTime.Add(-time.Hour).Format(http.TimeFormat))
		assert.Equal(t, http.StatusOK, serve(srv, req).StatusCode)
	})
}

func TestUpdate_SameContentKeepsValidators(t *testing.T) {
	srv := newTestServer()
	srv.Update([]byte("A"), 1)
	first := serve(srv, httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))

	srv.Now = func() time.Time { return feedTime.Add(time.Hour) }
	srv.Update([]byte("A"), 1)
	second := serve(srv, httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))

	assert.Equal(t, first.Header.Get(config.HeaderLastModified), second.Header.Get(config.HeaderLastModified))

	srv.Update([]byte("B"), 2)
	third := serve(srv, httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))
	assert.NotEqual(t, first.Header.Get(config.HeaderETag), third.Header.Get(config.HeaderETag))
	assert.Equal(t, feedTime.Add(time.Hour).Format(http.TimeFormat), third.Header.Get(config.HeaderLastModified))
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	resp := serve(newTestServer(), httptest.NewRequest(http.MethodPost, config.RouteFeed, nil))
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, config.AllowedMethods, resp.Header.Get(config.HeaderAllow))
}

func TestHandler_Initializing(t *testing.T) {
	resp := serve(newTestServer(), httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// TestServer_RaceCondition is meaningful under `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := newTestServer()
	var wg sync.WaitGroup
	end := time.Now().Add(300 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; time.Now().Before(end); i++ {
				srv.Update([]byte(fmt.Sprintf("VERSION:%d-%d", id, i)), i)
				time.Sleep(time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				w := httptest.NewRecorder()
				srv.handleFeed(w, httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))
				if w.Code != http.StatusOK && w.Code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", w.Code)
				}
			}
		}()
	}

	wg.Wait()
}

func TestServer_RequiresPort(t *testing.T) {
	assert.ErrorIs(t, NewFeedServer("").Start(context.Background()), ErrPortRequired)
}

func TestServer_Lifecycle(t *testing.T) {
	srv := NewFeedServer("0")
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	assert.Empty(t, srv.URL())
	go func() { errChan <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.URL() != "" }, 2*time.Second, 10*time.Millisecond)
	url := srv.URL()
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:"))
	assert.True(t, strings.HasSuffix(url, config.RouteFeed))

	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	srv.Update([]byte(config.StubVCalendar), 0)

	resp, err = http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	resp, err = http.Get(strings.TrimSuffix(url, config.RouteFeed) + "/other")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}
