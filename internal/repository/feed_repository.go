// Package repository declares the storage contracts the usecase layer
// depends on, implemented against Postgres in internal/infra/adapter/persistence/postgres.
package repository

import (
	"context"
	"time"

	"feedpipe/internal/domain/entity"

	"github.com/google/uuid"
)

// FeedRepository persists and queries Feed rows.
type FeedRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Feed, error)
	GetByURL(ctx context.Context, url string) (*entity.Feed, error)
	List(ctx context.Context) ([]*entity.Feed, error)
	Create(ctx context.Context, feed *entity.Feed) error
	Update(ctx context.Context, feed *entity.Feed) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListDue returns up to limit feeds whose NextRunAt is at or before asOf,
	// ordered by (next_run_at, id) so scheduler ties resolve deterministically.
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Feed, error)

	// TouchNextRunAt sets one feed's NextRunAt to asOf, used by the control
	// plane's enqueue_now so the feed reads as due immediately.
	TouchNextRunAt(ctx context.Context, id uuid.UUID, asOf time.Time) error

	// TouchNextRunAll sets NextRunAt to asOf for every feed, used by
	// purge_all_items to force an immediate re-fetch of everything.
	TouchNextRunAll(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)

	// PromoteDue selects up to limit feeds whose NextRunAt is at or before
	// asOf (ordered by (next_run_at, id)), advances each one's NextRunAt to
	// asOf+IntervalSeconds, and returns the already-advanced rows; the
	// scheduler tick's select+advance in a single transaction, so a crashed
	// scheduler never leaves a feed selected but not rescheduled.
	PromoteDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Feed, error)
}
