// Package schedule implements the tick-based scheduler: on a fixed
// period it promotes due feeds into jobs, advancing each promoted feed's
// NextRunAt in the same transaction so a crashed scheduler never leaves a
// feed claimed but not rescheduled.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"feedpipe/internal/infra/bus"
	"feedpipe/internal/observability/metrics"
	"feedpipe/internal/repository"

	"github.com/google/uuid"
)

// Scheduler drives the tick loop.
type Scheduler struct {
	feeds     repository.FeedRepository
	jobs      *bus.Jobs
	tick      time.Duration
	batchSize int
}

// New constructs a Scheduler. tick is the period between promotion passes;
// batchSize bounds how many due feeds one tick promotes.
func New(feeds repository.FeedRepository, jobs *bus.Jobs, tick time.Duration, batchSize int) *Scheduler {
	return &Scheduler{feeds: feeds, jobs: jobs, tick: tick, batchSize: batchSize}
}

// Run blocks, ticking every s.tick, until ctx is cancelled. Each tick
// promotes due feeds and pushes one job per promoted feed; Jobs.Push may
// block under backpressure, which is intentional back-pressure onto the
// scheduler rather than unbounded job accumulation.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.runOnce(ctx, now)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, now time.Time) {
	feeds, err := s.feeds.PromoteDue(ctx, now, s.batchSize)
	if err != nil {
		slog.Error("scheduler tick failed", slog.Any("error", err))
		metrics.RecordSchedulerTick(false, 0)
		return
	}

	for _, feed := range feeds {
		s.jobs.Push(bus.Job{
			JobID:      uuid.New(),
			FeedID:     feed.ID,
			EnqueuedAt: now,
			URL:        feed.URL,
		})
	}

	metrics.RecordSchedulerTick(true, len(feeds))
	metrics.UpdateQueueDepth(s.jobs.Pending())
}

// EnqueueNow immediately pushes a job for feedID without waiting for its
// NextRunAt. This is the queue-push half of the control plane's enqueue_now
// operation; the control usecase touches the feed's NextRunAt itself before
// calling here.
func (s *Scheduler) EnqueueNow(feedID uuid.UUID, url string) {
	s.jobs.Push(bus.Job{
		JobID:      uuid.New(),
		FeedID:     feedID,
		EnqueuedAt: time.Now(),
		URL:        url,
	})
	metrics.UpdateQueueDepth(s.jobs.Pending())
}
