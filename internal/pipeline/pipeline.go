// Package pipeline assembles the fetch pipeline's components into one
// construct-once, shut-down-in-reverse-order value. Nothing here lives in
// package-level state: tests and the worker binary each build their own
// Pipeline and tear it down independently.
package pipeline

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	pipelineconfig "feedpipe/internal/config"
	"feedpipe/internal/infra/adapter/persistence/postgres"
	"feedpipe/internal/infra/bus"
	"feedpipe/internal/infra/extractor"
	"feedpipe/internal/infra/feedparser"
	"feedpipe/internal/infra/fetcher"
	"feedpipe/internal/repository"
	"feedpipe/internal/usecase/consume"
	"feedpipe/internal/usecase/control"
	"feedpipe/internal/usecase/normalize"
	"feedpipe/internal/usecase/schedule"
)

// jobQueueCapacity bounds how many promoted feeds may be pending a consumer
// pickup before the scheduler's Push call blocks, applying back-pressure
// onto the scheduler rather than letting the queue grow without bound.
const jobQueueCapacity = 1000

// Pipeline holds every component the fetch pipeline needs, constructed once
// at process startup.
type Pipeline struct {
	DB *sql.DB

	Feeds      repository.FeedRepository
	Items      repository.ItemRepository
	FetchLogs  repository.FetchLogRepository
	ReadStates repository.ReadStateRepository
	Categories repository.CategoryRepository
	Committer  repository.FetchCommitter

	Jobs   *bus.Jobs
	Events *bus.Events

	Scheduler *schedule.Scheduler
	Consumers *consume.Pool
	Control   *control.Service

	cfg pipelineconfig.PipelineConfig
}

// New constructs a Pipeline over db, wiring every pipeline component
// described in its configuration. The extraction engine named by
// cfg.ExtractionEngine is built once and shared by every consumer worker.
func New(db *sql.DB, cfg pipelineconfig.PipelineConfig) (*Pipeline, error) {
	feeds := postgres.NewFeedRepo(db)
	items := postgres.NewItemRepo(db)
	fetchLogs := postgres.NewFetchLogRepo(db)
	readStates := postgres.NewReadStateRepo(db)
	categories := postgres.NewCategoryRepo(db)
	committer := postgres.NewStore(db)

	jobs := bus.NewJobs(jobQueueCapacity)
	events := bus.NewEvents()

	clientCfg := fetcher.DefaultClientConfig()
	clientCfg.GlobalConcurrency = cfg.FetchConcurrency
	clientCfg.PerHostConcurrency = cfg.PerHostConcurrency
	clientCfg.Timeout = cfg.FetchTimeout

	extractEngine, err := extractor.New(cfg.ExtractionEngine, clientCfg)
	if err != nil {
		return nil, err
	}

	normalizer := normalize.New(items, extractEngine)
	client := fetcher.NewFeedClient(clientCfg)
	parser := feedparser.New(fetcher.FeedUserAgent)

	scheduler := schedule.New(feeds, jobs, cfg.SchedulerTick, cfg.SchedulerBatchSize)
	consumers := consume.New(jobs, events, feeds, committer, client, parser, normalizer, cfg.ConsumerPoolSize())
	controlSvc := control.New(feeds, items, readStates, scheduler, cfg.FetchDefaultInterval)

	return &Pipeline{
		DB:         db,
		Feeds:      feeds,
		Items:      items,
		FetchLogs:  fetchLogs,
		ReadStates: readStates,
		Categories: categories,
		Committer:  committer,
		Jobs:       jobs,
		Events:     events,
		Scheduler:  scheduler,
		Consumers:  consumers,
		Control:    controlSvc,
		cfg:        cfg,
	}, nil
}

// Start launches the scheduler tick loop and the consumer pool, both bound
// to ctx. Both run in the background; cancel ctx to stop them, then call
// Shutdown to wait for the consumer pool to drain.
func (p *Pipeline) Start(ctx context.Context) {
	go p.Scheduler.Run(ctx)
	p.Consumers.Start(ctx)
}

// Shutdown waits up to p.cfg.ShutdownDrain for in-flight consumer jobs to
// finish. It stops nothing itself: the caller's ctx cancellation (already
// propagated to Start) is what signals the scheduler and the consumer pool
// to stop; Shutdown only bounds how long it waits for the pool to drain.
func (p *Pipeline) Shutdown() {
	drained := make(chan struct{})
	go func() {
		p.Consumers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		slog.Info("pipeline: consumer pool drained")
	case <-time.After(p.cfg.ShutdownDrain):
		slog.Warn("pipeline: shutdown drain timeout exceeded, abandoning in-flight jobs")
	}
}
