package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/recruit-inbox/internal/metrics"
	"github.com/nhle/recruit-inbox/internal/remote"
)

// Client is a thin HTTP client for the recruitment platform REST API.
// It handles Bearer token authentication, JSON marshaling, and retry
// with exponential backoff on HTTP 429 and 5xx for idempotent requests.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	log        zerolog.Logger
}

// ClientOptions tunes a Client. Zero values pick defaults.
type ClientOptions struct {
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewClient creates a new API client. The baseURL should be the root URL
// of the conversation API (e.g., https://api.example.com/api/v1). The
// token is sent as a Bearer credential on every request.
func NewClient(baseURL, token string, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		maxRetries: maxRetries,
		log:        opts.Logger,
	}
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result, true)
}

// Patch performs an HTTP PATCH request. PATCH endpoints of this API are
// idempotent and may be retried.
func (c *Client) Patch(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPatch, path, body, result, true)
}

// Post performs an HTTP POST request exactly once.
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result, false)
}

// do builds the request, handles auth, retry with exponential backoff, and
// JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	result any,
	retryable bool,
) error {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	attempts := 1
	if retryable {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		requestID := uuid.NewString()
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.HTTPRequestsTotal.WithLabelValues(method, "error").Inc()
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		metrics.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Msg("api request")

		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf(
				"unexpected status %d on %s %s", resp.StatusCode, method, path,
			)
			if attempt+1 >= attempts {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &remote.AuthError{
				Message: fmt.Sprintf("API rejected the token for %s (401)", c.baseURL),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr ErrorResponse
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
				return fmt.Errorf(
					"API error (%d) on %s %s: %s",
					resp.StatusCode, method, path, apiErr.Message,
				)
			}
			return fmt.Errorf(
				"unexpected status %d on %s %s: %s",
				resp.StatusCode, method, path, string(respBody),
			)
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from %s %s: %w",
				method, path, err,
			)
		}

		return nil
	}

	if attempts > 1 {
		return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
	}
	return lastErr
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
