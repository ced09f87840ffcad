package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/backoff"
)

// Status is the inference engine's own view of a submitted unit of
// work, distinct from job.State: the engine reports
// pending/processing/completed/failed, and the worker adapter maps those
// onto the registry's own states.
type Status string

const (
	StatusQueued  Status = "pending"
	StatusRunning Status = "processing"
	StatusDone    Status = "completed"
	StatusFailed  Status = "failed"
)

// SubmitResult is the engine's response to a submit call.
type SubmitResult struct {
	WorkerJobID string `json:"job_id"`
	Status      Status `json:"status"`
}

// PollResult is the engine's response to a status poll.
type PollResult struct {
	Status    Status `json:"status"`
	ResultURI string `json:"result_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Client speaks the inference engine's submit/poll HTTP contract
// against a caller-supplied base endpoint.
type Client interface {
	// Submit posts requestBody to the jobType route at endpoint and
	// returns the engine-assigned identifier used for polling.
	Submit(ctx context.Context, endpoint, jobType string, requestBody []byte) (SubmitResult, error)

	// Poll fetches the current status of a previously submitted job.
	Poll(ctx context.Context, endpoint, workerJobID string) (PollResult, error)
}

// HTTPClient is the default Client, backed by net/http with bounded
// retries on transient failures.
type HTTPClient struct {
	http    *http.Client
	backoff backoff.Strategy
	retries int
	logger  *slog.Logger
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient overrides the underlying *http.Client, e.g. to set
// custom transport or TLS settings.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = h }
}

// WithBackoff overrides the retry backoff strategy for transient
// submit/poll failures. Default is backoff.DefaultStrategy().
func WithBackoff(b backoff.Strategy) ClientOption {
	return func(c *HTTPClient) { c.backoff = b }
}

// WithRetries sets the maximum number of retry attempts for a
// transient network error. Default 2.
func WithRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.retries = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient creates an HTTPClient with a 30s request timeout by
// default.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		backoff: backoff.DefaultStrategy(),
		retries: 2,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) Submit(ctx context.Context, endpoint, jobType string, requestBody []byte) (SubmitResult, error) {
	url := fmt.Sprintf("%s/v1/%s/submit", endpoint, jobType)

	var result SubmitResult
	err := c.doWithRetry(ctx, "submit", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
		if err != nil {
			return coldrun.NewError(coldrun.KindClientMalformed, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return coldrun.NewError(coldrun.KindTransient, err)
		}
		defer resp.Body.Close()

		return decodeEngineResponse(resp, &result)
	})
	return result, err
}

func (c *HTTPClient) Poll(ctx context.Context, endpoint, workerJobID string) (PollResult, error) {
	url := fmt.Sprintf("%s/v1/jobs/%s", endpoint, workerJobID)

	var result PollResult
	err := c.doWithRetry(ctx, "poll", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return coldrun.NewError(coldrun.KindClientMalformed, err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return coldrun.NewError(coldrun.KindTransient, err)
		}
		defer resp.Body.Close()

		return decodeEngineResponse(resp, &result)
	})
	return result, err
}

func decodeEngineResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return coldrun.NewError(coldrun.KindTransient, fmt.Errorf("engine returned %d: %s", resp.StatusCode, body))
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return coldrun.NewError(coldrun.KindPermanentJobFailure, fmt.Errorf("engine returned %d: %s", resp.StatusCode, body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return coldrun.NewError(coldrun.KindTransient, fmt.Errorf("decode engine response: %w", err))
	}
	return nil
}

// doWithRetry runs fn, retrying transient-kind failures per c.backoff
// up to c.retries times. Non-transient failures return immediately.
func (c *HTTPClient) doWithRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		kind, ok := coldrun.KindOf(lastErr)
		if !ok || kind != coldrun.KindTransient {
			return lastErr
		}
		if attempt == c.retries {
			break
		}

		delay := c.backoff.Delay(attempt + 1)
		c.logger.Warn("inference engine call failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", lastErr.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
