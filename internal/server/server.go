// Package server publishes the prayer timetable as an iCalendar feed on
// the loopback interface, so calendar clients can subscribe to it.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
)

var ErrPortRequired = errors.New(config.ErrPortRequired)

// feedItem is one rendering of the feed with its HTTP validators.
type feedItem struct {
	data         []byte
	events       int
	etag         string
	lastModified string // RFC1123, as HTTP requires
}

// FeedServer serves the latest timetable rendering. Reads are lock-free;
// Update swaps the whole item.
type FeedServer struct {
	Port string

	// Now stamps Last-Modified. Nil means time.Now.
	Now func() time.Time

	feed atomic.Pointer[feedItem]
	addr atomic.Pointer[string]
}

// NewFeedServer creates a server for port. Port "0" picks a free port.
func NewFeedServer(port string) *FeedServer {
	return &FeedServer{Port: port}
}

// Start listens on the loopback interface and blocks until ctx is
// cancelled or the listener fails.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return ErrPortRequired
	}

	ln, err := net.Listen("tcp", config.LocalhostBindAddr+config.AddrSeparator+s.Port)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
	addr := ln.Addr().String()
	s.addr.Store(&addr)

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteFeed, s.handleFeed)

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)
	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyURL, s.URL())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// URL is the subscription address, empty until Start has bound the port.
func (s *FeedServer) URL() string {
	addr := s.addr.Load()
	if addr == nil {
		return ""
	}
	return config.SchemeHTTP + "://" + *addr + config.RouteFeed
}

// Update replaces the served feed. events is informational.
func (s *FeedServer) Update(data []byte, events int) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	if prev := s.feed.Load(); prev != nil && prev.etag == etag {
		return
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	s.feed.Store(&feedItem{
		data:         data,
		events:       events,
		etag:         etag,
		lastModified: now().UTC().Format(http.TimeFormat),
	})

	slog.Info(config.MsgFeedUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyCount, events,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag)
}

// Events returns the number of events in the served feed.
func (s *FeedServer) Events() int {
	if item := s.feed.Load(); item != nil {
		return item.events
	}
	return 0
}

func (s *FeedServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	item := s.feed.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, item.etag)
	h.Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		if match == item.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	} else if notModifiedSince(r.Header.Get(config.HeaderIfModifiedSince), item.lastModified) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err)
	}
}

// notModifiedSince reports whether the feed is not newer than the client copy.
func notModifiedSince(since, lastModified string) bool {
	if since == "" {
		return false
	}
	client, err := time.Parse(http.TimeFormat, since)
	if err != nil {
		return false
	}
	server, err := time.Parse(http.TimeFormat, lastModified)
	if err != nil {
		return false
	}
	return !server.After(client)
}
