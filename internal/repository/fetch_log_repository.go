package repository

import (
	"context"

	"feedpipe/internal/domain/entity"

	"github.com/google/uuid"
)

// FetchLogRepository appends and queries FetchLog rows.
type FetchLogRepository interface {
	Append(ctx context.Context, log *entity.FetchLog) error
	ListByFeed(ctx context.Context, feedID uuid.UUID, limit int) ([]*entity.FetchLog, error)
}
