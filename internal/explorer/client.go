// Package explorer is the network activity oracle: it asks an explorer
// backend which addresses have ever been used on chain.
package explorer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shardwallet/shardwallet/internal/metrics"
	walleterr "github.com/shardwallet/shardwallet/pkg/errors"
)

const (
	// DefaultBaseURL is the public explorer backend.
	DefaultBaseURL = "https://backend.mainnet.alephium.org"

	// MaxAddressesPerRequest is the largest batch the backend accepts.
	MaxAddressesPerRequest = 80

	// DefaultRateLimit is the default request rate per second.
	DefaultRateLimit = 5

	// DefaultBurst is the default request burst.
	DefaultBurst = 10

	// usedPath is the batch address activity endpoint.
	usedPath = "/addresses/used"

	// httpTimeout is the default HTTP request timeout.
	httpTimeout = 30 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20
)

var (
	// ErrInvalidBaseURL indicates the explorer URL cannot be used.
	ErrInvalidBaseURL = &walleterr.WalletError{
		Code:       "INVALID_EXPLORER_URL",
		Message:    "explorer URL is invalid",
		Suggestion: "set network.explorer_url to an http(s) URL",
		ExitCode:   walleterr.ExitInput,
	}

	// ErrMalformedResponse indicates the explorer answered with unusable data.
	ErrMalformedResponse = &walleterr.WalletError{
		Code:     "MALFORMED_RESPONSE",
		Message:  "explorer returned a malformed response",
		ExitCode: walleterr.ExitNetwork,
	}
)

// ClientOptions configures the explorer client.
type ClientOptions struct {
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	// RateLimit is requests per second. Zero uses DefaultRateLimit,
	// negative disables limiting.
	RateLimit float64

	// Burst is the rate limiter burst. Zero uses DefaultBurst.
	Burst int

	// Retry overrides the retry policy.
	Retry *RetryConfig

	// MaxAddressesPerRequest caps a single request. Zero uses MaxAddressesPerRequest.
	MaxAddressesPerRequest int
}

// Client queries the explorer backend. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retry       RetryConfig
	maxPerReq   int
}

// NewClient creates an explorer client for baseURL.
func NewClient(baseURL string, opts *ClientOptions) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, walleterr.WithDetails(ErrInvalidBaseURL, map[string]string{"url": baseURL})
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		retry:     DefaultRetryConfig(),
		maxPerReq: MaxAddressesPerRequest,
	}

	ratePerSecond, burst := float64(DefaultRateLimit), DefaultBurst
	if opts != nil {
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.RateLimit != 0 {
			ratePerSecond = opts.RateLimit
		}
		if opts.Burst > 0 {
			burst = opts.Burst
		}
		if opts.Retry != nil {
			c.retry = *opts.Retry
		}
		if opts.MaxAddressesPerRequest > 0 {
			c.maxPerReq = opts.MaxAddressesPerRequest
		}
	}
	c.rateLimiter = NewRateLimiter(ratePerSecond, burst)

	return c, nil
}

// BaseURL returns the explorer base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CheckActive reports, for each address, whether it has ever been used.
// Batches larger than the backend limit are split; the answers keep the
// input order.
func (c *Client) CheckActive(ctx context.Context, hashes []string) ([]bool, error) {
	out := make([]bool, 0, len(hashes))

	for start := 0; start < len(hashes); start += c.maxPerReq {
		chunk := hashes[start:min(start+c.maxPerReq, len(hashes))]

		used, err := RetryWithConfig(ctx, c.retry, func() ([]bool, error) {
			return c.postUsed(ctx, chunk)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, used...)
	}

	return out, nil
}

// postUsed performs one POST /addresses/used request.
func (c *Client) postUsed(ctx context.Context, chunk []string) (used []bool, err error) {
	start := time.Now()
	defer func() { metrics.Global.RecordOracleCall(len(chunk), time.Since(start), err) }()

	if err := c.rateLimiter.Wait(ctx, usedPath); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+usedPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // G704: URL comes from validated config
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, walleterr.WithCause(ErrTimeout, err)
		}
		return nil, WrapRetryable(fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, WrapRetryable(fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		after := ParseRetryAfter(resp.Header.Get("Retry-After"))
		c.rateLimiter.Pause(usedPath, min(after, c.retry.MaxDelay))
		return nil, &retryAfterError{
			err:   walleterr.WithDetails(ErrRateLimited, map[string]string{"status": "429"}),
			after: after,
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, walleterr.WithDetails(ErrRetryable, map[string]string{
			"status": fmt.Sprintf("%d", resp.StatusCode),
			"body":   truncateBody(string(body), 256),
		})
	case resp.StatusCode != http.StatusOK:
		return nil, walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{
			"status": fmt.Sprintf("%d", resp.StatusCode),
			"body":   truncateBody(string(body), 256),
		})
	}

	if err := json.Unmarshal(body, &used); err != nil {
		return nil, walleterr.WithCause(ErrMalformedResponse, err)
	}
	if len(used) != len(chunk) {
		return nil, walleterr.WithDetails(ErrMalformedResponse, map[string]string{
			"expected": fmt.Sprintf("%d", len(chunk)),
			"got":      fmt.Sprintf("%d", len(used)),
		})
	}

	return used, nil
}

// truncateBody truncates a string to maxLen characters.
func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
