package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"streamqa/pkg/circuitbreaker"
	"streamqa/pkg/retry"
	"streamqa/pkg/tracing"
	"streamqa/pkg/validation"

	"go.uber.org/zap"
)

// DefaultRetryStatuses are the upstream statuses treated as transient.
var DefaultRetryStatuses = []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}

// Options configures a Session.
type Options struct {
	BaseURL       string
	Timeout       time.Duration // per request, 0 = 5s
	MaxRetries    int           // total attempts, 0 = 3
	RetryStatuses []int         // nil = DefaultRetryStatuses
	BackoffStep   time.Duration // linear backoff step, 0 = 100ms
	Transport     http.RoundTripper
	Breaker       *circuitbreaker.Breaker // nil disables fail-fast
	Logger        *zap.SugaredLogger
}

// Session is a small retrying HTTP client bound to one base URL.
// Each call blocks until the response is read or attempts are exhausted.
type Session struct {
	baseURL       string
	client        *http.Client
	maxRetries    int
	retryStatuses map[int]struct{}
	backoff       retry.BackoffFunc
	breaker       *circuitbreaker.Breaker
	logger        *zap.SugaredLogger
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// HTTPError is returned for responses with a 4xx or 5xx status.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool {
	return StatusCodeOf(err) == http.StatusNotFound
}

// New creates a Session.
func New(opts Options) (*Session, error) {
	if err := validation.ValidateBaseURL(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryStatuses == nil {
		opts.RetryStatuses = DefaultRetryStatuses
	}
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	statuses := make(map[int]struct{}, len(opts.RetryStatuses))
	for _, code := range opts.RetryStatuses {
		statuses[code] = struct{}{}
	}

	return &Session{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		maxRetries:    opts.MaxRetries,
		retryStatuses: statuses,
		backoff:       retry.LinearBackoff(opts.BackoffStep),
		breaker:       opts.Breaker,
		logger:        opts.Logger,
	}, nil
}

// BaseURL returns the URL every path is resolved against.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Get issues a GET request.
func (s *Session) Get(ctx context.Context, path string) (*Response, error) {
	return s.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request. A non-nil body is sent as JSON.
func (s *Session) Post(ctx context.Context, path string, body any) (*Response, error) {
	if body == nil {
		return s.Do(ctx, http.MethodPost, path, nil)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return s.Do(ctx, http.MethodPost, path, payload)
}

// Do sends method base_url+path, retrying transport failures and retryable
// statuses with linear backoff. Other error statuses fail immediately.
// With a breaker configured, calls fail with circuitbreaker.ErrOpen while
// the server is considered down.
func (s *Session) Do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	url := s.baseURL + path

	if s.breaker != nil {
		if err := s.breaker.Allow(); err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}
	}

	cfg := retry.Config{
		MaxAttempts: s.maxRetries,
		Backoff:     s.backoff,
		ShouldRetry: s.shouldRetry,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			s.logger.Warnw("request failed, retrying",
				"method", method,
				"url", url,
				"attempt", attempt,
				"max_attempts", s.maxRetries,
				"delay", delay,
				"error", err,
			)
		},
	}

	resp, err := retry.RetryWithResult(ctx, cfg, func(attempt int) (*Response, error) {
		return s.attempt(ctx, method, url, body, attempt)
	})
	if s.breaker != nil {
		s.breaker.Record(!serverDown(err))
	}
	return resp, err
}

// serverDown reports whether err means the server could not answer at all
// or answered with a 5xx. 4xx responses prove the server is up.
func serverDown(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func (s *Session) attempt(ctx context.Context, method, url string, body []byte, attempt int) (*Response, error) {
	ctx, span := tracing.TraceClientRequest(ctx, method, url)
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.AttemptKey.Int(attempt))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.InjectHTTPHeaders(ctx, req.Header)

	s.logger.Debugw("sending request", "method", method, "url", url, "attempt", attempt)

	resp, err := s.client.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		httpErr := &HTTPError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: data}
		tracing.RecordError(ctx, httpErr)
		return nil, httpErr
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (s *Session) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		_, ok := s.retryStatuses[httpErr.StatusCode]
		return ok
	}
	return true
}

// Close releases idle connections.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}
