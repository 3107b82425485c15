package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors classifying upstream failures. Callers branch on these
// with errors.Is; anything else is an unexpected 4xx carried by *APIError.
var (
	// ErrNotFound maps upstream 404s (missing enrollment/course/result).
	ErrNotFound = errors.New("upstream: not found")
	// ErrUnavailable covers transport failures and timeouts — the request
	// may or may not have reached the platform.
	ErrUnavailable = errors.New("upstream: unavailable")
	// ErrServer covers platform 5xx responses.
	ErrServer = errors.New("upstream: server error")
)

// APIError carries a non-2xx upstream status that is not covered by a
// sentinel, preserving the body for logs.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream: status %d: %s", e.Status, e.Body)
}

// Client talks to the course-platform REST API. It is the gateway's only
// path to durable state; everything it returns is authoritative.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client. baseURL includes the /api prefix. The timeout
// bounds every request end to end.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "upstream_client").Logger(),
	}
}

// do performs one JSON round-trip. body and out may be nil. 204 responses
// leave out untouched.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode >= 500:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Upstream 5xx")
		return fmt.Errorf("%w: %s %s: %s", ErrServer, method, path, string(raw))
	case resp.StatusCode >= 300:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
