package repository

import (
	"context"

	"feedpipe/internal/domain/entity"

	"github.com/google/uuid"
)

// CategoryRepository persists and queries Category rows and their
// association with feeds via category_feed.
type CategoryRepository interface {
	List(ctx context.Context) ([]*entity.Category, error)
	Create(ctx context.Context, category *entity.Category) error
	FeedsForCategory(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error)
}
