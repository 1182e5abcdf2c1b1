package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/repository"

	"github.com/google/uuid"
)

type FetchLogRepo struct{ db *sql.DB }

func NewFetchLogRepo(db *sql.DB) repository.FetchLogRepository {
	return &FetchLogRepo{db: db}
}

const fetchLogColumns = `id, feed_id, status_code, duration_ms, bytes, error, fetched_at`

func scanFetchLog(row interface {
	Scan(dest ...any) error
}) (*entity.FetchLog, error) {
	var l entity.FetchLog
	if err := row.Scan(&l.ID, &l.FeedID, &l.StatusCode, &l.DurationMS, &l.Bytes, &l.Error, &l.FetchedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (repo *FetchLogRepo) Append(ctx context.Context, log *entity.FetchLog) error {
	const query = `
INSERT INTO fetch_log (` + fetchLogColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, query,
		log.ID, log.FeedID, log.StatusCode, log.DurationMS, log.Bytes, log.Error, log.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (repo *FetchLogRepo) ListByFeed(ctx context.Context, feedID uuid.UUID, limit int) ([]*entity.FetchLog, error) {
	query := `SELECT ` + fetchLogColumns + ` FROM fetch_log WHERE feed_id = $1 ORDER BY fetched_at DESC LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListByFeed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := make([]*entity.FetchLog, 0, limit)
	for rows.Next() {
		l, err := scanFetchLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByFeed: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
