package papersources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// MaxResponseSize bounds how much of a response body is decoded.
const MaxResponseSize = 10 * 1024 * 1024

// DefaultUserAgent is sent when a source does not configure its own.
const DefaultUserAgent = "Helixir-PaperDiscovery/1.0"

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source is the provenance label used in errors.
	Source string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// MinInterval is the minimum spacing between requests. Zero disables throttling.
	MinInterval time.Duration

	// MaxRetries is the maximum number of retry attempts. Zero uses the
	// default of 3; a negative value disables retries.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key", "Authorization").
	APIKeyHeader string
}

// HTTPClient wraps http.Client with rate limiting and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client waits on the limiter before each attempt and retries on
// 429 (Too Many Requests) and 5xx server errors.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Source == "" {
		cfg.Source = "unknown"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewIntervalRateLimiter(cfg.MinInterval),
		config:      cfg,
	}
}

// RateLimiter returns the limiter shared by every request of this client.
func (c *HTTPClient) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// Do executes an HTTP request with rate limiting and retries.
// It sets the User-Agent and optional API key headers and honours Retry-After
// on 429 responses.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < c.config.MaxRetries {
				if err := c.waitForRetry(req.Context(), c.config.RetryDelay); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}
			return nil, domain.NewExternalAPIError(c.config.Source, 0, "request failed", lastErr)
		}

		if c.shouldRetry(resp.StatusCode) {
			retryDelay := c.getRetryDelay(resp)

			if resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}

			if attempt < c.config.MaxRetries {
				lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
				if err := c.waitForRetry(req.Context(), retryDelay); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}

			var cause error
			if resp.StatusCode == http.StatusTooManyRequests {
				cause = domain.NewRateLimitError(c.config.Source, retryDelay)
			}
			return nil, domain.NewExternalAPIError(c.config.Source, resp.StatusCode,
				fmt.Sprintf("max retries exhausted after %d attempts", c.config.MaxRetries+1), cause)
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

// GetJSON issues a GET request and decodes a 200 JSON response into out.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, out any) error {
	return c.get(ctx, rawURL, "application/json", func(r io.Reader) error {
		return json.NewDecoder(r).Decode(out)
	})
}

// GetXML issues a GET request and decodes a 200 XML response into out.
func (c *HTTPClient) GetXML(ctx context.Context, rawURL string, out any) error {
	return c.get(ctx, rawURL, "application/xml", func(r io.Reader) error {
		return xml.NewDecoder(r).Decode(out)
	})
}

func (c *HTTPClient) get(ctx context.Context, rawURL, accept string, decode func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.config.Source, err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: execute request: %w", c.config.Source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.NewExternalAPIError(c.config.Source, resp.StatusCode,
			fmt.Sprintf("unexpected status: %s", string(body)), nil)
	}

	if err := decode(io.LimitReader(resp.Body, MaxResponseSize)); err != nil {
		return domain.NewExternalAPIError(c.config.Source, resp.StatusCode, "malformed response", err)
	}
	return nil
}

// shouldRetry returns true if the status code indicates we should retry.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay respects the Retry-After header if present, otherwise uses
// the configured retry delay.
func (c *HTTPClient) getRetryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		delay := time.Until(t)
		if delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
