package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tartampluch/go-noor/internal/config"
)

// Sentinel errors so callers can tell a bad configuration from an outage.
var (
	ErrInvalidURL       = errors.New(config.ErrInvalidURL)
	ErrProtocol         = errors.New(config.ErrProtocol)
	ErrUnexpectedStatus = errors.New(config.ErrUnexpectedStatus)
	ErrNetwork          = errors.New(config.ErrNetwork)
	ErrTooLarge         = errors.New(config.ErrResponseTooLarge)
)

// Fetcher retrieves a remote document as bytes.
// Every remote provider in the application goes through this interface,
// which keeps them mockable and independent of the transport.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) ([]byte, error)
}

// HTTPFetcher implements Fetcher on top of a retrying HTTP client.
type HTTPFetcher struct {
	Client   *retryablehttp.Client
	MaxBytes int64
	Header   http.Header
}

// NewHTTPFetcher creates a fetcher with the application timeouts and retry policy.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:   NewClient(config.HTTPRetryMax),
		MaxBytes: config.MaxHTTPResponseSize,
	}
}

// NewClient builds a retryablehttp client. Retries are logged through slog at
// debug level, and the last response is handed back on exhaustion so that the
// status code ends up in the returned error.
func NewClient(retryMax int) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.RetryWaitMin = config.HTTPRetryWaitMin
	c.RetryWaitMax = config.HTTPRetryWaitMax
	c.HTTPClient.Timeout = config.HTTPTimeout
	c.Logger = slog.Default().With(slog.String(config.LogKeyComponent, config.CompFetcher))
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

// Fetch downloads targetURL. A body larger than MaxBytes is an error,
// never a truncated result.
// Query parameters are stripped from log lines since they may carry keys.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%w: %s", ErrProtocol, u.Scheme)
	}

	safeURL := u.Scheme + "://" + u.Host + u.Path

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, safeURL),
	)

	log.Debug(config.MsgFetchStart)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	for k, vals := range f.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Warn(config.MsgFetchStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if int64(len(body)) > limit {
		log.Warn(config.MsgFetchTooLarge, slog.Int64(config.LogKeySizeBytes, limit))
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, limit)
	}

	log.Debug("Download complete", slog.Int(config.LogKeySizeBytes, len(body)))
	return body, nil
}
