// Package extractor implements the pluggable content-extraction stage:
// article URL + inline HTML in, cleaned body HTML and/or plain text out. Any
// failure yields (nil, nil, err) and the caller falls back to the entry's
// inline content.
package extractor

import (
	"context"
	"fmt"

	"feedpipe/internal/infra/fetcher"
)

// Extractor is the single operation every content-extraction engine
// implements: extract(html, url) -> (html?, text?).
type Extractor interface {
	// Extract fetches url (through the engine's own client and politeness
	// gate, separate from the feed fetcher's) and returns cleaned body HTML
	// and/or plain text. inlineHTML is accepted for engines that prefer to
	// operate on feed-supplied markup instead of re-fetching, but the two
	// reference engines both re-fetch the article.
	Extract(ctx context.Context, inlineHTML, articleURL string) (cleanedHTML, text *string, err error)

	// Name identifies the engine for metrics labeling.
	Name() string
}

// New constructs the configured engine. "none" returns a nil Extractor and a
// nil error; callers must treat a nil Extractor as "skip this stage
// entirely", not as an engine that always fails.
func New(engine string, cfg fetcher.ClientConfig) (Extractor, error) {
	switch engine {
	case "readability":
		return NewReadabilityEngine(cfg), nil
	case "trafilatura":
		return NewStructuredEngine(cfg), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown extraction engine %q", engine)
	}
}
