package fetch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"ttscraper/pkg/config"
	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/events"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/retry"
)

// RawResponse is the body and status of the successful attempt
type RawResponse struct {
	StatusCode int
	Body       string
	URL        string
}

// Fetcher is what the scrape pipeline needs from the request policy
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*RawResponse, error)
}

// Client performs GETs under the request policy. It is safe for concurrent
// use; nothing on it changes after New returns.
type Client struct {
	http        *resty.Client
	userAgent   string
	maxAttempts int
	baseDelay   time.Duration
	logger      logger.Logger
	observer    events.Observer
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	logger    logger.Logger
	observer  events.Observer
	transport http.RoundTripper
	referer   string
}

// WithLogger sets the logger used for request tracing
func WithLogger(l logger.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithObserver sets the observer that receives attempt events
func WithObserver(obs events.Observer) Option {
	return func(o *clientOptions) { o.observer = obs }
}

// WithTransport replaces the HTTP transport, mainly for tests
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithReferer sets the Referer header sent with every request
func WithReferer(referer string) Option {
	return func(o *clientOptions) { o.referer = referer }
}

// New creates a Client from the fetch configuration
func New(cfg config.FetchConfig, opts ...Option) *Client {
	o := &clientOptions{referer: "https://www.tiktok.com/"}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.GetLogger()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	userAgent := pickUserAgent(cfg.UserAgent, cfg.UserAgents)

	hc := resty.New().
		SetRetryCount(0).
		SetHeaders(map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
			"Referer":         o.referer,
			"Sec-Fetch-Dest":  "document",
			"Sec-Fetch-Mode":  "navigate",
			"Sec-Fetch-Site":  "none",
		})
	if cfg.Timeout > 0 {
		hc.SetTimeout(cfg.Timeout)
	}
	if o.transport != nil {
		hc.SetTransport(o.transport)
	}

	return &Client{
		http:        hc,
		userAgent:   userAgent,
		maxAttempts: maxAttempts,
		baseDelay:   cfg.BaseDelay,
		logger:      o.logger,
		observer:    events.OrNop(o.observer),
	}
}

// UserAgent returns the identity header this client sends
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Fetch GETs url under the retry budget and returns the first 2xx response
func (c *Client) Fetch(ctx context.Context, url string) (*RawResponse, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return &RawResponse{
		StatusCode: resp.StatusCode(),
		Body:       string(resp.Body()),
		URL:        url,
	}, nil
}

// Download GETs a media file under the same retry budget
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *Client) get(ctx context.Context, url string) (*resty.Response, error) {
	attempt := 0

	resp, err := retry.DoWithResult(func() (*resty.Response, error) {
		attempt++
		return c.attempt(ctx, url, attempt)
	}, &retry.Config{
		MaxAttempts: c.maxAttempts,
		Backoff:     retry.NewLinearBackoff(c.baseDelay),
		Context:     ctx,
		OnRetry: func(n int, err error, delay time.Duration) {
			c.logger.WarnWithFields("retrying fetch", map[string]interface{}{
				"url":      url,
				"attempt":  n,
				"delay_ms": delay.Milliseconds(),
				"error":    err.Error(),
			})
		},
	})
	if err == nil {
		return resp, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		err = exhausted.Err
	}

	c.logger.ErrorWithFields("fetch failed", map[string]interface{}{
		"url":      url,
		"attempts": attempt,
		"error":    err.Error(),
	})
	return nil, errs.NewNetwork(url, attempt, err)
}

// attempt performs exactly one GET
func (c *Client) attempt(ctx context.Context, url string, n int) (*resty.Response, error) {
	c.observer.Observe(events.Event{
		Kind:   events.AttemptStarted,
		Fields: map[string]interface{}{"url": url, "attempt": n},
	})

	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(url)
	duration := time.Since(start)

	if err == nil && (resp.StatusCode() < 200 || resp.StatusCode() >= 300) {
		err = &errs.StatusError{StatusCode: resp.StatusCode(), URL: url}
	}

	if err != nil {
		c.observer.Observe(events.Event{
			Kind: events.AttemptFailed,
			Fields: map[string]interface{}{
				"url":      url,
				"attempt":  n,
				"error":    err.Error(),
				"duration": duration,
			},
		})
		return nil, err
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode(),
		"duration": duration,
		"attempt":  n,
	})
	c.observer.Observe(events.Event{
		Kind: events.AttemptSucceeded,
		Fields: map[string]interface{}{
			"url":     url,
			"attempt": n,
			"status":  resp.StatusCode(),
		},
	})
	return resp, nil
}
