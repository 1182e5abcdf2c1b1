// Package normalize implements the item normalizer. It turns parsed feed
// entries into persistable Items: guid derivation, in-batch and
// against-store deduplication, image-URL resolution, optional content
// enrichment through the pluggable extractor, and content hashing.
package normalize

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/infra/extractor"
	"feedpipe/internal/infra/feedparser"
	"feedpipe/internal/observability/metrics"
	"feedpipe/internal/repository"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// enrichmentConcurrency bounds how many entries of one feed may have their
// content extractor running concurrently, independent of the extractor's
// own per-host gate (which bounds concurrency to a single article origin,
// not to the whole batch).
const enrichmentConcurrency = 4

// ErrNoIdentity marks an entry with no identifier, no link, and no title:
// nothing stable to derive a guid from. Such entries are skipped, not
// persisted, and the skip is logged rather than surfaced as a batch error.
var ErrNoIdentity = errors.New("entry has no derivable identity")

// Normalizer turns one feed's parsed entries into the Items to persist.
type Normalizer struct {
	items     repository.ItemRepository
	extractor extractor.Extractor
}

// New constructs a Normalizer. extract may be nil, meaning the "none"
// engine is configured, and entries are persisted using only their inline
// feed-supplied content.
func New(items repository.ItemRepository, extract extractor.Extractor) *Normalizer {
	return &Normalizer{items: items, extractor: extract}
}

// Normalize derives, deduplicates, enriches, and hashes entries into Items
// ready for repository.FetchCommitter.CommitFetch. It never returns an
// error for an individual entry's enrichment failure (extraction failures
// fall back to the entry's inline content); only a context cancellation or
// a store error aborts the whole batch.
func (n *Normalizer) Normalize(ctx context.Context, feedID uuid.UUID, entries []feedparser.Entry, fetchedAt time.Time) ([]*entity.Item, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	candidates := make([]string, len(entries))
	derived := make([]bool, len(entries))
	lookup := make([]string, 0, len(entries))
	for i, e := range entries {
		guid, ok := entity.DeriveGUID(e.ID, e.Link, e.Title, e.PublishedAt)
		if !ok {
			slog.Debug("entry skipped",
				slog.Any("feed_id", feedID),
				slog.Any("error", ErrNoIdentity))
			continue
		}
		candidates[i] = guid
		derived[i] = true
		lookup = append(lookup, guid)
	}

	existing, err := n.items.ExistingGUIDs(ctx, feedID, lookup)
	if err != nil {
		return nil, err
	}

	seenInBatch := make(map[string]bool, len(entries))
	items := make([]*entity.Item, 0, len(entries))
	now := fetchedAt

	for i, e := range entries {
		if !derived[i] {
			continue
		}
		guid := candidates[i]
		if existing[guid] || seenInBatch[guid] {
			continue
		}
		seenInBatch[guid] = true

		item := &entity.Item{
			ID:          uuid.New(),
			FeedID:      feedID,
			GUID:        guid,
			PublishedAt: e.PublishedAt,
			FetchedAt:   now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if e.Title != "" {
			title := entity.TruncateTitle(e.Title)
			item.Title = &title
		}
		if e.Link != "" {
			link := entity.TruncateURL(e.Link)
			item.URL = &link
		}
		if e.ContentHTML != "" {
			html := e.ContentHTML
			item.ContentHTML = &html
		}
		if img := resolveImageURL(e); img != "" {
			truncated := entity.TruncateImageURL(img)
			item.ImageURL = &truncated
		}

		items = append(items, item)
	}

	n.enrich(ctx, items)

	for _, item := range items {
		html, text, title := "", "", ""
		if item.ContentHTML != nil {
			html = *item.ContentHTML
		}
		if item.ContentText != nil {
			text = *item.ContentText
		}
		if item.Title != nil {
			title = *item.Title
		}
		url := ""
		if item.URL != nil {
			url = *item.URL
		}
		item.Hash = entity.ComputeContentHash(html, text, title, url)
	}

	return items, nil
}

// enrich runs the configured extractor over every item's URL, bounded to
// enrichmentConcurrency concurrent extractions. A failed or skipped
// extraction leaves the item's inline content untouched.
func (n *Normalizer) enrich(ctx context.Context, items []*entity.Item) {
	if n.extractor == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichmentConcurrency)

	for _, item := range items {
		item := item
		if item.URL == nil {
			continue
		}
		g.Go(func() error {
			inline := ""
			if item.ContentHTML != nil {
				inline = *item.ContentHTML
			}
			extractStart := time.Now()
			html, text, err := n.extractor.Extract(gctx, inline, *item.URL)
			if err != nil {
				metrics.RecordContentExtract(n.extractor.Name(), "failure", time.Since(extractStart))
				slog.Debug("content extraction skipped",
					slog.String("engine", n.extractor.Name()),
					slog.String("url", *item.URL),
					slog.Any("error", err))
				return nil
			}
			metrics.RecordContentExtract(n.extractor.Name(), "success", time.Since(extractStart))
			if html != nil {
				item.ContentHTML = html
			}
			if text != nil {
				item.ContentText = text
			}
			return nil
		})
	}
	_ = g.Wait()
}

// resolveImageURL applies the image-URL precedence order: the parser's
// ordered Media candidates first (media:thumbnail, image enclosures, image
// links, media:content, item image), falling back to the first <img> found
// in the entry's inline HTML.
func resolveImageURL(e feedparser.Entry) string {
	if len(e.Media) > 0 {
		return e.Media[0].URL
	}
	if e.ContentHTML == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(e.ContentHTML))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}
