package aiengine

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout          = 30 * time.Second
	DefaultRetryMax         = 3
	DefaultRetryWaitMin     = 500 * time.Millisecond
	DefaultRetryWaitMax     = 5 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerReset     = 30 * time.Second
)

// Option configures a Client. Options are applied in order during NewClient.
type Option func(*Client)

// WithHTTPClient injects a custom *http.Client. Nil is ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the HTTP client timeout. Values <= 0 are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout <= 0 {
			return
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithRetryMax sets the maximum retry count. Negative values are clamped to 0.
func WithRetryMax(retryMax int) Option {
	return func(c *Client) {
		if retryMax < 0 {
			retryMax = 0
		}
		c.retryMax = retryMax
	}
}

// WithRetryWait sets the min/max backoff durations; if min > max the two are
// swapped.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min <= 0 {
			min = DefaultRetryWaitMin
		}
		if max <= 0 {
			max = DefaultRetryWaitMax
		}
		if min > max {
			min, max = max, min
		}
		c.retryWaitMin = min
		c.retryWaitMax = max
	}
}

// WithCircuitBreaker enables the embedded circuit breaker: after threshold
// consecutive failures, calls are rejected for resetDuration. threshold <= 0
// disables the breaker.
func WithCircuitBreaker(threshold int, resetDuration time.Duration) Option {
	return func(c *Client) {
		c.breaker = newCircuitBreaker(threshold, resetDuration, c.logger)
	}
}

// WithAPIKey sets the bearer token sent as the Authorization header.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}
