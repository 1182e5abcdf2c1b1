package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/resilience/circuitbreaker"
	"feedpipe/internal/resilience/retry"
	"feedpipe/internal/usecase/fetch"
)

// maxFeedBodySize bounds a feed document's size, mirroring the content
// fetcher's body-size protection for the same memory-exhaustion risk.
const maxFeedBodySize = 10 * 1024 * 1024

// maxFeedRedirects bounds the redirect chain a feed URL may present.
const maxFeedRedirects = 5

// FeedUserAgent identifies this pipeline to upstream feed servers.
const FeedUserAgent = "feedpipe/1.0 (+https://github.com/feedpipe)"

// FeedFetchResult is the outcome of one successful feed GET. NotModified is
// set when the server answered 304, in which case Body and the header
// fields are empty; the caller keeps the feed's existing ETag/LastModified.
type FeedFetchResult struct {
	StatusCode   int
	NotModified  bool
	Body         []byte
	ETag         *string
	LastModified *string
}

// FeedClient fetches feed documents with conditional GET, per-host
// politeness, a circuit breaker, and retry on transient failures. A fetch
// resolves to one of three shapes: 304 (not modified), 2xx (body returned),
// or any other status (a *retry.HTTPError, retried when transient).
type FeedClient struct {
	httpClient     *http.Client
	gate           *Gate
	globalSlots    chan struct{}
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	timeout        time.Duration
	denyPrivateIPs bool
}

// ClientConfig controls a FeedClient's politeness, deadline, and SSRF
// posture.
type ClientConfig struct {
	// GlobalConcurrency caps in-flight requests across all hosts. The
	// per-host gate bounds a single origin; this bounds the whole client.
	GlobalConcurrency int

	// PerHostConcurrency sizes the politeness gate: at most this many
	// in-flight requests per origin host.
	PerHostConcurrency int

	// Timeout bounds every individual request.
	Timeout time.Duration

	// DenyPrivateIPs controls whether URLs resolving to private, loopback,
	// or link-local addresses are rejected. Should always be true in
	// production; disable only for tests against local servers.
	DenyPrivateIPs bool
}

// DefaultClientConfig returns the production defaults: ten in-flight
// requests globally, two per host, a 30 second deadline, SSRF protection on.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		GlobalConcurrency:  10,
		PerHostConcurrency: 2,
		Timeout:            30 * time.Second,
		DenyPrivateIPs:     true,
	}
}

// NewFeedClient constructs a FeedClient from cfg.
func NewFeedClient(cfg ClientConfig) *FeedClient {
	if cfg.GlobalConcurrency < 1 {
		cfg.GlobalConcurrency = 1
	}
	c := &FeedClient{
		gate:           NewGate(cfg.PerHostConcurrency),
		globalSlots:    make(chan struct{}, cfg.GlobalConcurrency),
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
		timeout:        cfg.Timeout,
		denyPrivateIPs: cfg.DenyPrivateIPs,
	}
	c.httpClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: c.checkFeedRedirect,
	}
	return c
}

func (c *FeedClient) checkFeedRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxFeedRedirects {
		return fmt.Errorf("%w: %d redirects", fetch.ErrTooManyRedirects, len(via))
	}
	return validateURL(req.URL.String(), c.denyPrivateIPs)
}

// Fetch retrieves feed, honoring the global in-flight cap, its politeness
// gate, ETag/LastModified conditional headers, circuit breaker, and retry
// policy. Both slots are acquired once per call and held across retries, so
// retries of the same feed never race its own concurrency slot.
func (c *FeedClient) Fetch(ctx context.Context, feed *entity.Feed) (*FeedFetchResult, error) {
	if err := validateURL(feed.URL, c.denyPrivateIPs); err != nil {
		return nil, err
	}

	select {
	case c.globalSlots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.globalSlots }()

	release, err := c.gate.Acquire(ctx, feed.PerHostKey)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *FeedFetchResult
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		out, cbErr := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx, feed)
		})
		if cbErr != nil {
			return cbErr
		}
		result = out.(*FeedFetchResult)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return result, nil
}

func (c *FeedClient) doFetch(ctx context.Context, feed *entity.Feed) (*FeedFetchResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", FeedUserAgent)
	if feed.ETag != nil {
		req.Header.Set("If-None-Match", *feed.ETag)
	}
	if feed.LastModified != nil {
		req.Header.Set("If-Modified-Since", feed.LastModified.UTC().Format(http.TimeFormat))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", fetch.ErrTimeout, err)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return &FeedFetchResult{StatusCode: resp.StatusCode, NotModified: true}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	limited := io.LimitReader(resp.Body, maxFeedBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	if int64(len(body)) > maxFeedBodySize {
		return nil, fmt.Errorf("%w: %d bytes", fetch.ErrBodyTooLarge, len(body))
	}

	result := &FeedFetchResult{StatusCode: resp.StatusCode, Body: body}
	if etag := resp.Header.Get("ETag"); etag != "" {
		result.ETag = &etag
	}
	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		result.LastModified = &lastModified
	}
	return result, nil
}
