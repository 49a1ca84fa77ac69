package shared

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/mmcdole/mediarr/internal/domain"
)

// TransportOptions tunes the HTTP client shared by one adapter connection
type TransportOptions struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	MaxRetries    uint
	RetryDelay    time.Duration
}

// DefaultTransportOptions are used for zero fields
var DefaultTransportOptions = TransportOptions{
	Timeout:       30 * time.Second,
	RatePerSecond: 20,
	Burst:         10,
	MaxRetries:    2,
	RetryDelay:    200 * time.Millisecond,
}

func (o TransportOptions) withDefaults() TransportOptions {
	d := DefaultTransportOptions
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = d.RatePerSecond
	}
	if o.Burst <= 0 {
		o.Burst = d.Burst
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	return o
}

// StatusError is a non-2xx response that is not an auth or not-found failure
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Transport sends requests with rate limiting and retries 5xx responses
type Transport struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	opts       TransportOptions
	logger     *slog.Logger
}

// NewTransport creates a Transport. Zero option fields take defaults; MaxRetries 0 means no retry.
func NewTransport(opts TransportOptions, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	return &Transport{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		opts:       opts,
		logger:     logger,
	}
}

// Request describes one call. Body is re-sent on every attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Do performs req and returns the response body.
//
// Transport failures map to domain.ErrServerOffline, 401/403 to domain.ErrAuthFailed
// and 404 to domain.ErrItemNotFound. 5xx responses are retried with backoff.
func (t *Transport) Do(ctx context.Context, req Request) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			return t.attempt(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(t.opts.MaxRetries+1),
		retry.Delay(t.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			t.logger.Warn("retrying request", "method", req.Method, "url", req.URL, "attempt", n+1, "error", err)
		}),
	)
}

func (t *Transport) attempt(ctx context.Context, req Request) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, retry.Unrecoverable(err)
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	t.logger.Debug("media server request", "method", req.Method, "url", req.URL)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, retry.Unrecoverable(err)
		}
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %v", domain.ErrServerOffline, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, retry.Unrecoverable(domain.ErrAuthFailed)
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Unrecoverable(domain.ErrItemNotFound)
	case resp.StatusCode >= 500:
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(data), 512)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, retry.Unrecoverable(&StatusError{Code: resp.StatusCode, Body: truncate(string(data), 512)})
	}

	return data, nil
}

// Classify wraps err in kind unless it already is one. Connection verification
// uses it to report every failure of a step as that step's error kind.
func Classify(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
