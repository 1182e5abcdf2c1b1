package repository

import (
	"context"

	"feedpipe/internal/domain/entity"

	"github.com/google/uuid"
)

// ItemRepository persists and queries Item rows.
type ItemRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Item, error)
	ListByFeed(ctx context.Context, feedID uuid.UUID) ([]*entity.Item, error)

	// ExistingGUIDs reports which of the given candidate guids already exist
	// for feedID, batched to avoid one round trip per entry (mirrors the
	// batch-existence-check pattern used elsewhere in this codebase for
	// large entry counts).
	ExistingGUIDs(ctx context.Context, feedID uuid.UUID, guids []string) (map[string]bool, error)

	// InsertBatch inserts the given items in one statement, tolerating races
	// on the (feed_id, guid) unique constraint via ON CONFLICT DO NOTHING. It
	// returns the items that were actually inserted.
	InsertBatch(ctx context.Context, items []*entity.Item) ([]*entity.Item, error)

	// DeleteAllByFeed removes every item belonging to feedID. Returns the
	// number of rows removed. (purge_all_items uses DeleteAll.)
	DeleteAllByFeed(ctx context.Context, feedID uuid.UUID) (int64, error)

	// DeleteAll removes every item across all feeds.
	DeleteAll(ctx context.Context) (int64, error)
}
