package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"feedpipe/internal/repository"

	"github.com/google/uuid"
)

type ReadStateRepo struct{ db *sql.DB }

func NewReadStateRepo(db *sql.DB) repository.ReadStateRepository {
	return &ReadStateRepo{db: db}
}

func (repo *ReadStateRepo) DeleteAllByFeed(ctx context.Context, feedID uuid.UUID) (int64, error) {
	const query = `DELETE FROM read_state WHERE item_id IN (SELECT id FROM items WHERE feed_id = $1)`
	res, err := repo.db.ExecContext(ctx, query, feedID)
	if err != nil {
		return 0, fmt.Errorf("DeleteAllByFeed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (repo *ReadStateRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM read_state`)
	if err != nil {
		return 0, fmt.Errorf("DeleteAll: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
