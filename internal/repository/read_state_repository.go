package repository

import (
	"context"

	"github.com/google/uuid"
)

// ReadStateRepository persists and queries ReadState rows. The pipeline's
// only write path is DeleteAll, exercised by purge_all_items (DeleteAllByFeed
// has no caller in the pipeline); the read/write API owns everything else
// about read state.
type ReadStateRepository interface {
	DeleteAllByFeed(ctx context.Context, feedID uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}
