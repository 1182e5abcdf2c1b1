package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"feedpipe/internal/infra/fetcher"
	"feedpipe/internal/resilience/circuitbreaker"
	"feedpipe/internal/usecase/fetch"

	"github.com/go-shiori/go-readability"
)

// ReadabilityEngine is the "readability" reference engine: it re-fetches
// the article through its own client/gate/circuit breaker and runs
// Mozilla's Readability algorithm via go-shiori/go-readability, returning
// both the cleaned HTML and the plain-text rendering.
type ReadabilityEngine struct {
	client         *http.Client
	gate           *fetcher.Gate
	pacer          *articlePacer
	circuitBreaker *circuitbreaker.CircuitBreaker
	timeout        time.Duration
	denyPrivateIPs bool
}

// NewReadabilityEngine constructs a ReadabilityEngine with its own
// per-article-host politeness gate, distinct from the feed fetcher's gate
// table.
func NewReadabilityEngine(cfg fetcher.ClientConfig) *ReadabilityEngine {
	return &ReadabilityEngine{
		client:         newArticleClient(cfg.DenyPrivateIPs),
		gate:           fetcher.NewGate(cfg.PerHostConcurrency),
		pacer:          newArticlePacer(),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentExtractConfig()),
		timeout:        cfg.Timeout,
		denyPrivateIPs: cfg.DenyPrivateIPs,
	}
}

func (e *ReadabilityEngine) Name() string { return "readability" }

type readabilityResult struct {
	html string
	text string
}

// Extract fetches articleURL and runs Readability over it. inlineHTML is
// unused; this engine always re-fetches the canonical article so the
// cleaned body reflects the page as served, not the feed's excerpt.
func (e *ReadabilityEngine) Extract(ctx context.Context, _ string, articleURL string) (*string, *string, error) {
	if articleURL == "" {
		return nil, nil, fmt.Errorf("%w: empty article URL", fetch.ErrInvalidURL)
	}

	out, err := e.circuitBreaker.Execute(func() (interface{}, error) {
		return e.doExtract(ctx, articleURL)
	})
	if err != nil {
		return nil, nil, err
	}
	res := out.(readabilityResult)
	return strPtr(res.html), strPtr(res.text), nil
}

func (e *ReadabilityEngine) doExtract(ctx context.Context, articleURL string) (readabilityResult, error) {
	body, finalURL, err := fetchArticle(ctx, e.client, e.gate, e.pacer, e.timeout, articleURL, e.denyPrivateIPs)
	if err != nil {
		return readabilityResult{}, err
	}

	article, err := readability.FromReader(io.NopCloser(bytes.NewReader(body)), finalURL)
	if err != nil {
		return readabilityResult{}, fmt.Errorf("%w: %v", fetch.ErrReadabilityFailed, err)
	}
	if article.Content == "" && article.TextContent == "" {
		return readabilityResult{}, fmt.Errorf("%w: no readable content found", fetch.ErrReadabilityFailed)
	}
	return readabilityResult{html: article.Content, text: article.TextContent}, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
