// Package vendorapi is a client for the delivery platform's vendor REST API.
package vendorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("upstream session expired")
	ErrNotFound     = errors.New("upstream resource not found")
)

// APIError is a non-2xx or unsuccessful response from the platform.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Observer receives the duration of every upstream round trip.
type Observer func(method string, elapsed time.Duration)

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Retries  int
	Observer Observer
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	retries    int
	backoff    time.Duration
	observe    Observer
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		backoff:    250 * time.Millisecond,
		observe:    opts.Observer,
	}
}

// WithToken returns a copy of c that authenticates as the given vendor session.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	attempts := c.retries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := c.do(ctx, http.MethodGet, path, query, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(status, err) || attempt == attempts {
			break
		}
		backoff := c.backoff*time.Duration(1<<(attempt-1)) + time.Duration(rand.Int63n(int64(c.backoff/2)+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

// send issues a single write request. Writes are never retried.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	_, err := c.do(ctx, method, path, nil, body, out)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.observe != nil {
		c.observe(method, time.Since(start))
	}
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	var env envelope
	decodeErr := json.Unmarshal(blob, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(env.Message)
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request unsuccessful"
		}
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	// Some endpoints answer without an envelope.
	payload := env.Data
	if env.Success == nil && len(payload) == 0 {
		payload = blob
	}
	if len(payload) == 0 || string(payload) == "null" {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

func isRetryable(status int, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch status {
	case 0, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
