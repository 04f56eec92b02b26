// Package fetcher retrieves legislation.gov.uk documents over HTTP with
// per-host rate limiting and exponential-backoff retry.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/sertantai/lrt-engine/internal/errs"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second
)

// RetryPolicy configures the exponential-backoff retry loop.
type RetryPolicy struct {
	InitialDelay time.Duration
	Factor       float64
	MaxAttempts  int
	MaxDelay     time.Duration
}

// DefaultRetryPolicy mirrors the defaults common.NewDefaultConfig sets on
// FetcherConfig.
var DefaultRetryPolicy = RetryPolicy{
	InitialDelay: 250 * time.Millisecond,
	Factor:       2,
	MaxAttempts:  4,
	MaxDelay:     4 * time.Second,
}

// Client fetches legislation.gov.uk resources, rate limited and retried.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	retry      RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client (tests inject a
// stub transport through this).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger attaches a logger; nil disables request logging.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit overrides the default per-second request rate.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1)
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) { c.retry = policy }
}

// New creates a Client against baseURL (e.g. "https://www.legislation.gov.uk").
func New(baseURL, userAgent string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		retry:   DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches path (relative to baseURL) and returns the response body.
// It retries transient failures (5xx, connection errors) with exponential
// backoff and maps terminal failures onto internal/errs kinds.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	reqURL := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var lastErr error
	delay := c.retry.InitialDelay
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		body, err := c.attempt(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if errs.Of(err) != errs.KindTransient {
			return nil, err
		}
		if attempt == c.retry.MaxAttempts {
			break
		}
		if c.logger != nil {
			c.logger.Warn().Str("url", reqURL).Int("attempt", attempt).Err(err).Msg("fetch failed, retrying")
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, errs.New(errs.KindCancelled, err)
		}
		delay = time.Duration(float64(delay) * c.retry.Factor)
		if delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}
	}
	return nil, errs.Newf(errs.KindTransient, "fetch %s: exhausted %d attempts: %w", reqURL, c.retry.MaxAttempts, lastErr)
}

// GetWithMadeFallback fetches path, and on a 404 retries against the
// "made" variant of the same path — legislation.gov.uk serves the
// as-made text of an instrument there when the "current text" route
// 404s for instruments with no revisions. For an
// introduction document the "made" segment is inserted before
// "introduction/data.xml", not appended to the end of the path.
func (c *Client) GetWithMadeFallback(ctx context.Context, path string) ([]byte, error) {
	body, err := c.Get(ctx, path)
	if err == nil {
		return body, nil
	}
	if errs.Of(err) != errs.KindNotFound {
		return nil, err
	}
	return c.Get(ctx, madeVariant(path))
}

const (
	introductionSuffix = "/introduction/data.xml"
	dataSuffix         = "/data.xml"
)

// madeVariant builds the "made" fallback path for path. Paths ending in
// introduction/data.xml get "made" inserted immediately before that
// suffix, other paths ending in data.xml get it inserted before the
// trailing data.xml segment, and any other path has "/made" appended.
func madeVariant(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if strings.HasSuffix(trimmed, introductionSuffix) {
		return strings.TrimSuffix(trimmed, introductionSuffix) + "/made" + introductionSuffix
	}
	if strings.HasSuffix(trimmed, dataSuffix) {
		return strings.TrimSuffix(trimmed, dataSuffix) + "/made" + dataSuffix
	}
	return trimmed + "/made"
}

func (c *Client) attempt(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.New(errs.KindCancelled, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Newf(errs.KindParseError, "build request for %s: %w", reqURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.logger != nil {
		c.logger.Debug().Str("url", reqURL).Msg("fetching")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Newf(errs.KindTransient, "request %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Newf(errs.KindTransient, "read body from %s: %w", reqURL, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.Newf(errs.KindNotFound, "%s: %s", reqURL, resp.Status)
	case resp.StatusCode >= 500:
		return nil, errs.Newf(errs.KindTransient, "%s: %s", reqURL, resp.Status)
	case resp.StatusCode >= 400:
		return nil, errs.Newf(errs.KindValidation, "%s: %s", reqURL, resp.Status)
	}

	return body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
