// Package control implements the control-plane operations:
// enqueue_now, purge_all_items, and OPML import/export, each a thin
// orchestration over the repository and scheduler layers with no HTTP
// concerns of its own.
package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/infra/opml"
	"feedpipe/internal/repository"

	"github.com/google/uuid"
)

// Enqueuer is the subset of the scheduler's surface control needs, kept
// narrow so this package depends on a capability, not the scheduler type.
type Enqueuer interface {
	EnqueueNow(feedID uuid.UUID, url string)
}

// Service implements the control-plane operations.
type Service struct {
	feeds           repository.FeedRepository
	items           repository.ItemRepository
	readStates      repository.ReadStateRepository
	scheduler       Enqueuer
	defaultInterval time.Duration
}

// New constructs a control-plane Service. defaultInterval is assigned to
// feeds created without an explicit interval (OPML import); zero keeps the
// entity-level default.
func New(feeds repository.FeedRepository, items repository.ItemRepository, readStates repository.ReadStateRepository, scheduler Enqueuer, defaultInterval time.Duration) *Service {
	return &Service{feeds: feeds, items: items, readStates: readStates, scheduler: scheduler, defaultInterval: defaultInterval}
}

// EnqueueNow marks feedID due now and pushes an immediate job for it,
// bypassing the feed's regular schedule. Because NextRunAt is now, the next
// scheduler tick also promotes the feed (pushing a second job) and advances
// NextRunAt by the feed's interval, so no stale future slot is left behind.
// It returns entity.ErrNotFound if the feed does not exist.
func (s *Service) EnqueueNow(ctx context.Context, feedID uuid.UUID) error {
	feed, err := s.feeds.Get(ctx, feedID)
	if err != nil {
		return err
	}
	if err := s.feeds.TouchNextRunAt(ctx, feed.ID, time.Now()); err != nil {
		return err
	}
	s.scheduler.EnqueueNow(feed.ID, feed.URL)
	return nil
}

// PurgeAllItems deletes every item and read-state row across all feeds and
// forces every feed to be re-fetched by setting NextRunAt to now, then
// enqueueing a job per feed directly rather than waiting for the next
// scheduler tick, so the purge is felt immediately.
func (s *Service) PurgeAllItems(ctx context.Context) (itemsDeleted int64, feedsRequeued int, err error) {
	itemsDeleted, err = s.items.DeleteAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("purge items: %w", err)
	}
	if _, err := s.readStates.DeleteAll(ctx); err != nil {
		return itemsDeleted, 0, fmt.Errorf("purge read state: %w", err)
	}

	feedIDs, err := s.feeds.TouchNextRunAll(ctx, time.Now())
	if err != nil {
		return itemsDeleted, 0, fmt.Errorf("touch feeds: %w", err)
	}

	for _, id := range feedIDs {
		feed, err := s.feeds.Get(ctx, id)
		if err != nil {
			continue
		}
		s.scheduler.EnqueueNow(feed.ID, feed.URL)
	}

	return itemsDeleted, len(feedIDs), nil
}

// ImportResult summarizes one OPML import.
type ImportResult struct {
	Created int
	Skipped int
	Errors  []string
}

// ImportFeeds parses an OPML document and creates a Feed for every
// xmlUrl-bearing outline whose URL is not already subscribed, matching this
// pipeline's original import behavior: new feeds get NextRunAt = now+5s so
// the next scheduler tick picks them up, and the Service's default interval
// (the entity default of 900s when that is below the minimum interval).
// Existing feeds are silently skipped rather than updated.
func (s *Service) ImportFeeds(ctx context.Context, r io.Reader) (ImportResult, error) {
	subs, err := opml.Decode(r)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	now := time.Now()

	for _, sub := range subs {
		if _, err := s.feeds.GetByURL(ctx, sub.URL); err == nil {
			result.Skipped++
			continue
		} else if !errors.Is(err, entity.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sub.URL, err))
			continue
		}

		feed, err := entity.NewFeed(sub.URL, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sub.URL, err))
			continue
		}
		if s.defaultInterval >= entity.MinIntervalSeconds*time.Second {
			feed.IntervalSeconds = int(s.defaultInterval / time.Second)
		}
		if title := strings.TrimSpace(sub.Title); title != "" && title != sub.URL {
			feed.Title = &title
		}

		if err := s.feeds.Create(ctx, feed); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sub.URL, err))
			continue
		}
		result.Created++
	}

	return result, nil
}

// ExportFeeds renders every subscribed feed as an OPML document, ordered by
// title (falling back to URL) to match a stable, diffable export.
func (s *Service) ExportFeeds(ctx context.Context) ([]byte, error) {
	feeds, err := s.feeds.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(feeds, func(i, j int) bool {
		return exportKey(feeds[i]) < exportKey(feeds[j])
	})

	var buf bytes.Buffer
	if err := opml.Encode(&buf, feeds, time.Now()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportKey(f *entity.Feed) string {
	if f.Title != nil && *f.Title != "" {
		return *f.Title
	}
	return f.URL
}
