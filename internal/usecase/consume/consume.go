// Package consume implements the fixed-size consumer pool: each worker
// blocks on the job queue, fetches the feed, parses it, normalizes entries,
// and commits the outcome through the repository's compound-write
// transaction.
package consume

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/infra/bus"
	"feedpipe/internal/infra/feedparser"
	"feedpipe/internal/infra/fetcher"
	"feedpipe/internal/observability/metrics"
	"feedpipe/internal/observability/tracing"
	"feedpipe/internal/repository"
	"feedpipe/internal/resilience/retry"
	"feedpipe/internal/usecase/normalize"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Pool is the fixed-size consumer pool. Workers share one FeedClient,
// Parser, and Normalizer instance; each is already internally
// concurrency-safe (the fetcher's politeness gate, the extractor's own
// gate, stateless parsing).
type Pool struct {
	jobs       *bus.Jobs
	events     *bus.Events
	feeds      repository.FeedRepository
	committer  repository.FetchCommitter
	client     *fetcher.FeedClient
	parser     *feedparser.Parser
	normalizer *normalize.Normalizer

	size   int
	active int64
	wg     sync.WaitGroup
}

// New constructs a consumer pool of size workers.
func New(
	jobs *bus.Jobs,
	events *bus.Events,
	feeds repository.FeedRepository,
	committer repository.FetchCommitter,
	client *fetcher.FeedClient,
	parser *feedparser.Parser,
	normalizer *normalize.Normalizer,
	size int,
) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		jobs:       jobs,
		events:     events,
		feeds:      feeds,
		committer:  committer,
		client:     client,
		parser:     parser,
		normalizer: normalizer,
		size:       size,
	}
}

// Start launches size worker goroutines, each running until ctx is
// cancelled. Call Wait afterward to block until every worker has drained
// its in-flight job and returned.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until every worker goroutine has exited. Call after
// cancelling the context passed to Start, optionally bounded by the
// caller's own shutdown-drain timeout.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		job, ok := p.jobs.Pop(ctx)
		if !ok {
			return
		}
		metrics.UpdateQueueDepth(p.jobs.Pending())

		active := atomic.AddInt64(&p.active, 1)
		metrics.SetConsumerPoolActive(int(active))
		p.processJob(ctx, job)
		active = atomic.AddInt64(&p.active, -1)
		metrics.SetConsumerPoolActive(int(active))
	}
}

// processJob runs one fetch/parse/normalize/commit cycle for job,
// publishing a fetch_status event for every job whose feed is found (a job
// for a missing feed is logged and dropped) and a new_items event only when
// items were actually inserted. Errors are logged and recorded
// to metrics and the fetch log; they never propagate to the worker loop,
// since one feed's failure must not affect any other feed.
func (p *Pool) processJob(ctx context.Context, job bus.Job) {
	ctx, span := tracing.GetTracer().Start(ctx, "consume.processJob")
	defer span.End()
	span.SetAttributes(attribute.String("feed.id", job.FeedID.String()))

	start := time.Now()

	feed, err := p.feeds.Get(ctx, job.FeedID)
	if err != nil {
		slog.Warn("consumer: feed lookup failed", slog.Any("feed_id", job.FeedID), slog.Any("error", err))
		return
	}

	fetchCtx, fetchSpan := tracing.GetTracer().Start(ctx, "consume.fetch")
	result, fetchErr := p.client.Fetch(fetchCtx, feed)
	fetchSpan.End()
	duration := time.Since(start)

	if fetchErr != nil {
		span.SetStatus(codes.Error, fetchErr.Error())
		p.recordFailure(ctx, feed, fetchErr, duration)
		return
	}

	if result.NotModified {
		metrics.RecordFetchOutcome("not_modified", duration)
		feed.ApplyFetchOutcome(start, result.StatusCode, nil, nil, nil)
		zeroBytes := 0
		logEntry := entity.NewFetchLog(feed.ID, result.StatusCode, duration, &zeroBytes, nil, start)
		if _, err := p.committer.CommitFetch(ctx, feed, nil, logEntry); err != nil {
			slog.Error("consumer: commit not_modified outcome failed", slog.Any("error", err))
		}
		p.publishFetchStatus(feed.ID, "not_modified", "", "")
		return
	}

	_, parseSpan := tracing.GetTracer().Start(ctx, "consume.parse")
	parsed, parseErr := p.parser.Parse(bytes.NewReader(result.Body))
	parseSpan.End()
	if parseErr != nil {
		span.SetStatus(codes.Error, parseErr.Error())
		p.recordFailure(ctx, feed, parseErr, duration)
		return
	}

	normCtx, normSpan := tracing.GetTracer().Start(ctx, "consume.normalize")
	items, normErr := p.normalizer.Normalize(normCtx, feed.ID, parsed.Entries, start)
	normSpan.End()
	if normErr != nil {
		slog.Error("consumer: normalize failed", slog.Any("feed_id", feed.ID), slog.Any("error", normErr))
		p.recordFailure(ctx, feed, normErr, duration)
		return
	}

	var title *string
	if parsed.FeedTitle != "" && feed.Title == nil {
		title = &parsed.FeedTitle
	}
	feed.ApplyFetchOutcome(start, result.StatusCode, result.ETag, result.LastModified, title)

	bodyLen := len(result.Body)
	logEntry := entity.NewFetchLog(feed.ID, result.StatusCode, duration, &bodyLen, nil, start)

	commitCtx, commitSpan := tracing.GetTracer().Start(ctx, "consume.commit")
	inserted, commitErr := p.committer.CommitFetch(commitCtx, feed, items, logEntry)
	commitSpan.End()
	if commitErr != nil {
		span.SetStatus(codes.Error, commitErr.Error())
		slog.Error("consumer: commit failed", slog.Any("feed_id", feed.ID), slog.Any("error", commitErr))
		metrics.RecordFetchOutcome("db_error", duration)
		p.publishFetchStatus(feed.ID, "error", "db", commitErr.Error())
		return
	}

	metrics.RecordFetchOutcome("ok", duration)
	metrics.RecordItemsInserted(len(inserted))

	status := "ok"
	if parsed.Partial {
		status = "partial"
	}
	p.publishFetchStatus(feed.ID, status, "", "")

	if len(inserted) > 0 {
		p.events.Publish(bus.Event{
			Type:      bus.EventNewItems,
			Timestamp: time.Now().UTC(),
			Data:      bus.NewItemsData{FeedID: feed.ID, Count: len(inserted)},
		})
	}
}

// recordFailure appends a fetch_log row describing a failed attempt (no
// items, no feed-metadata advancement beyond LastFetchAt/LastStatus) and
// publishes a fetch_status error event. The feed's NextRunAt is left alone:
// the scheduler already advanced it at enqueue time, so the feed is
// retried on its normal cadence rather than immediately.
func (p *Pool) recordFailure(ctx context.Context, feed *entity.Feed, fetchErr error, duration time.Duration) {
	statusCode := 0
	category := "transport"
	var httpErr *retry.HTTPError
	switch {
	case errors.As(fetchErr, &httpErr):
		statusCode = httpErr.StatusCode
		category = "http_status"
		metrics.RecordFetchOutcome("http_status", duration)
	case errors.Is(fetchErr, feedparser.ErrUnparseable):
		category = "parse"
		metrics.RecordFetchOutcome("parse_error", duration)
	default:
		metrics.RecordFetchOutcome("transport_error", duration)
	}

	now := time.Now()
	feed.ApplyFetchOutcome(now, statusCode, nil, nil, nil)
	logEntry := entity.NewFetchLog(feed.ID, statusCode, duration, nil, fetchErr, now)

	if _, err := p.committer.CommitFetch(ctx, feed, nil, logEntry); err != nil {
		slog.Error("consumer: commit failure outcome failed", slog.Any("error", err))
	}
	p.publishFetchStatus(feed.ID, "error", category, fetchErr.Error())
}

// publishFetchStatus publishes a fetch_status event, best-effort per
// bus.Events' never-block guarantee. category is empty on non-error
// statuses.
func (p *Pool) publishFetchStatus(feedID uuid.UUID, status, category, message string) {
	p.events.Publish(bus.Event{
		Type:      bus.EventFetchStatus,
		Timestamp: time.Now().UTC(),
		Data:      bus.FetchStatusData{FeedID: feedID, Status: status, Category: category, Message: message},
	})
}
