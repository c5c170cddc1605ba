// Package client talks to a running submission-history server over HTTP. The CLI uses it, and it
// mirrors what the browser form does: validation failures come back as data, everything the client
// cannot interpret is a NetworkError.
package client

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

	"github.com/akeren/submission-history/pkg/retry"
)

const defaultTimeout = 10 * time.Second

type SubmitRequest struct {
	Date      string `json:"date"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type SubmissionEcho struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// SubmitResult is the decoded POST /submit body. Errors is set when Success is false.
type SubmitResult struct {
	Success bool                `json:"success"`
	Data    []SubmissionEcho    `json:"data,omitempty"`
	Errors  map[string][]string `json:"error,omitempty"`
}

type HistoryEntry struct {
	Date      string `json:"date"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Count     int64  `json:"count"`
}

// NetworkError covers transport failures and responses the client cannot interpret.
// StatusCode is zero when no response arrived.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is, or wraps, a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      retry.RetryPolicy
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRetry sets the policy used for history reads. Submissions are never retried.
func WithRetry(policy retry.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		retry: retry.NewExponentialBackoff(&retry.Config{
			MaxAttempts: 3,
			BaseDelay:   200 * time.Millisecond,
			MaxDelay:    2 * time.Second,
			Multiplier:  2,
			Retryable:   isRetryable,
		}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// isRetryable retries transport failures and 5xx answers, never a context cancellation.
func isRetryable(err error) bool {
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return netErr.StatusCode == 0 || netErr.StatusCode >= http.StatusInternalServerError
}

// Submit posts one submission. A 200 or 400 answer is decoded into the result; any other outcome is a
// NetworkError. Server-side storage failures (500) are reported as NetworkError with the status set.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/submit", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	url := c.baseURL + "/submit"
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, &NetworkError{Op: http.MethodPost, URL: url, StatusCode: resp.StatusCode, Err: errors.New(readSnippet(resp.Body))}
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &NetworkError{Op: http.MethodPost, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &result, nil
}

// ListHistory fetches the ranked history, newest first.
func (c *Client) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	var entries []HistoryEntry

	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.do(ctx, http.MethodGet, "/history", nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		url := c.baseURL + "/history"
		if resp.StatusCode != http.StatusOK {
			return &NetworkError{Op: http.MethodGet, URL: url, StatusCode: resp.StatusCode, Err: errors.New(readSnippet(resp.Body))}
		}

		entries = nil
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return &NetworkError{Op: http.MethodGet, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: url, Err: err}
	}

	return resp, nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	if len(b) == 0 {
		return "empty response body"
	}
	return strings.TrimSpace(string(b))
}
