package extractor

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"feedpipe/internal/infra/fetcher"
	"feedpipe/internal/resilience/circuitbreaker"
	"feedpipe/internal/usecase/fetch"
	"feedpipe/internal/utils/text"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelectors are stripped before density scoring: chrome that
// carries little or no article text regardless of how it scores.
var boilerplateSelectors = []string{
	"script", "style", "noscript", "nav", "aside", "footer", "header",
	"form", "iframe", "svg", ".advertisement", ".ads", ".sidebar", ".comments",
}

// densityCandidateSelectors are the block-level elements considered as
// article-body candidates.
var densityCandidateSelectors = []string{"article", "main", "section", "div", "td"}

// StructuredEngine is the "trafilatura" engine: a goquery-driven
// boilerplate remover that scores remaining block-level elements by text
// density and keeps the highest-scoring subtree. There is no native Go
// trafilatura binding, so this reimplements its core heuristic (strip
// chrome, score by text-per-tag, prefer low link density) on goquery.
type StructuredEngine struct {
	client         *http.Client
	gate           *fetcher.Gate
	pacer          *articlePacer
	circuitBreaker *circuitbreaker.CircuitBreaker
	timeout        time.Duration
	denyPrivateIPs bool
}

func (e *StructuredEngine) Name() string { return "trafilatura" }

// NewStructuredEngine constructs a StructuredEngine with its own
// per-article-host politeness gate and circuit breaker, distinct from the
// readability engine's so the two can run concurrently without sharing
// rate-limit state.
func NewStructuredEngine(cfg fetcher.ClientConfig) *StructuredEngine {
	return &StructuredEngine{
		client:         newArticleClient(cfg.DenyPrivateIPs),
		gate:           fetcher.NewGate(cfg.PerHostConcurrency),
		pacer:          newArticlePacer(),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentExtractConfig()),
		timeout:        cfg.Timeout,
		denyPrivateIPs: cfg.DenyPrivateIPs,
	}
}

// structuredResult mirrors readabilityResult for the boilerplate-removal
// engine.
type structuredResult struct {
	html string
	text string
}

func (e *StructuredEngine) Extract(ctx context.Context, _ string, articleURL string) (*string, *string, error) {
	if articleURL == "" {
		return nil, nil, fmt.Errorf("%w: empty article URL", fetch.ErrInvalidURL)
	}

	out, err := e.circuitBreaker.Execute(func() (interface{}, error) {
		return e.doExtract(ctx, articleURL)
	})
	if err != nil {
		return nil, nil, err
	}
	res := out.(structuredResult)
	return strPtr(res.html), strPtr(res.text), nil
}

func (e *StructuredEngine) doExtract(ctx context.Context, articleURL string) (structuredResult, error) {
	body, _, err := fetchArticle(ctx, e.client, e.gate, e.pacer, e.timeout, articleURL, e.denyPrivateIPs)
	if err != nil {
		return structuredResult{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return structuredResult{}, fmt.Errorf("%w: parse html: %v", fetch.ErrReadabilityFailed, err)
	}

	for _, sel := range boilerplateSelectors {
		doc.Find(sel).Remove()
	}

	best, bestScore := (*goquery.Selection)(nil), -1.0
	doc.Find(strings.Join(densityCandidateSelectors, ", ")).Each(func(_ int, sel *goquery.Selection) {
		score := textDensity(sel)
		if score > bestScore {
			bestScore = score
			best = sel
		}
	})

	if best == nil || bestScore <= 0 {
		bodyText := strings.TrimSpace(doc.Find("body").Text())
		if bodyText == "" {
			return structuredResult{}, fmt.Errorf("%w: no extractable content", fetch.ErrReadabilityFailed)
		}
		return structuredResult{text: bodyText}, nil
	}

	html, err := best.Html()
	if err != nil {
		html = ""
	}
	return structuredResult{html: html, text: strings.TrimSpace(best.Text())}, nil
}

// minCandidateRunes is the shortest text a subtree may carry and still be
// scored as an article-body candidate. Counted in runes, not bytes, so CJK
// bodies are not held to a third of the threshold.
const minCandidateRunes = 40

// textDensity scores a node by text length per enclosed tag, rewarding
// paragraph-dense subtrees over link-dense or markup-dense chrome (a link
// list scores low: many tags, little non-link text).
func textDensity(sel *goquery.Selection) float64 {
	content := strings.TrimSpace(sel.Text())
	if text.CountRunes(content) < minCandidateRunes {
		return 0
	}
	tagCount := sel.Find("*").Length() + 1
	linkText := strings.TrimSpace(sel.Find("a").Text())
	nonLinkLen := text.CountRunes(content) - text.CountRunes(linkText)
	if nonLinkLen <= 0 {
		return 0
	}
	return float64(nonLinkLen) / float64(tagCount)
}
