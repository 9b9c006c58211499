// Package supabase implements the datastore port over the Supabase
// PostgREST API. Every operation is a table-scoped filter/order/insert/update
// expressed as query parameters; the store is treated as an opaque
// key-filtered CRUD service.
package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/canban-ai/canban/internal/resilience"
)

const restPrefix = "/rest/v1/"

// Client talks to the Supabase PostgREST endpoint for one project.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
	now        func() time.Time
}

// NewClient creates a new Supabase client for the given project URL and key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetNow overrides the clock used for server-assigned timestamps.
func (c *Client) SetNow(now func() time.Time) {
	c.now = now
}

// timestamp returns the current UTC time formatted for timestamptz columns.
func (c *Client) timestamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

func (c *Client) doRequest(ctx context.Context, method, table string, query url.Values, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		endpoint := c.baseURL + restPrefix + table
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if method != http.MethodGet {
			// Mutations echo the affected rows so callers can detect misses.
			req.Header.Set("Prefer", "return=representation")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("supabase API error %d on %s: %s", resp.StatusCode, table, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
