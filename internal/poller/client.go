package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; a watcher only ever talks to one host
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 2
	defaultIdleConnTimeout     = 90 * time.Second
)

// Payload is the body returned by the push JSON endpoint.
//
//	{"push": {"key": "...", "state": "onstage"}, "html": "<div class=\"push\">...</div>"}
type Payload struct {
	Push PushInfo `json:"push"`
	HTML string   `json:"html"`
}

// PushInfo identifies a push and carries its current state.
type PushInfo struct {
	Key   string `json:"key,omitempty"`
	State string `json:"state"`
}

// ErrMissingState is returned when a response decodes but carries no push state.
var ErrMissingState = errors.New("response has no push state")

// Client fetches push payloads from the tracking server.
//
// Client applies a per-request timeout via context when one is configured.
// A zero timeout leaves the request bounded only by the caller's context and
// the transport defaults. Response bodies are limited to 1MB.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	timeout    time.Duration
}

// NewClient creates a push [Client].
//
// headers are sent with every request (typically a session cookie for the
// tracking server). A zero timeout disables the per-request deadline.
func NewClient(headers map[string]string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		headers: headers,
		timeout: timeout,
	}
}

// FetchPush performs one GET against endpoint and decodes the push payload.
//
// Transport errors, non-2xx responses, oversized or undecodable bodies and
// payloads without a state are all reported as errors. Callers in this module
// do not distinguish between them.
func (c *Client) FetchPush(ctx context.Context, endpoint string) (Payload, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		return Payload{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		return Payload{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseBodySize {
		return Payload{}, fmt.Errorf("response body exceeds %d bytes", maxResponseBodySize)
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Payload{}, fmt.Errorf("failed to decode push payload: %w", err)
	}
	if payload.Push.State == "" {
		return Payload{}, ErrMissingState
	}

	return payload, nil
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times and on a nil client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
