package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/repository"

	"github.com/google/uuid"
)

type FeedRepo struct{ db *sql.DB }

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

func scanFeed(row interface {
	Scan(dest ...any) error
}) (*entity.Feed, error) {
	var f entity.Feed
	if err := row.Scan(
		&f.ID, &f.URL, &f.Title, &f.ETag, &f.LastModified, &f.LastFetchAt, &f.LastStatus,
		&f.NextRunAt, &f.IntervalSeconds, &f.PerHostKey, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

const feedColumns = `id, url, title, etag, last_modified, last_fetch_at, last_status,
       next_run_at, interval_seconds, per_host_key, created_at, updated_at`

func (repo *FeedRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = $1 LIMIT 1`
	f, err := scanFeed(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return f, nil
}

func (repo *FeedRepo) GetByURL(ctx context.Context, url string) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE url = $1 LIMIT 1`
	f, err := scanFeed(repo.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return f, nil
}

func (repo *FeedRepo) List(ctx context.Context) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds ORDER BY created_at ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 64)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) Create(ctx context.Context, feed *entity.Feed) error {
	const query = `
INSERT INTO feeds (id, url, title, etag, last_modified, last_fetch_at, last_status,
                    next_run_at, interval_seconds, per_host_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := repo.db.ExecContext(ctx, query,
		feed.ID, feed.URL, feed.Title, feed.ETag, feed.LastModified, feed.LastFetchAt, feed.LastStatus,
		feed.NextRunAt, feed.IntervalSeconds, feed.PerHostKey, feed.CreatedAt, feed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *FeedRepo) Update(ctx context.Context, feed *entity.Feed) error {
	const query = `
UPDATE feeds SET
       url              = $1,
       title            = $2,
       etag             = $3,
       last_modified    = $4,
       last_fetch_at    = $5,
       last_status      = $6,
       next_run_at      = $7,
       interval_seconds = $8,
       per_host_key     = $9,
       updated_at       = $10
WHERE id = $11`
	res, err := repo.db.ExecContext(ctx, query,
		feed.URL, feed.Title, feed.ETag, feed.LastModified, feed.LastFetchAt, feed.LastStatus,
		feed.NextRunAt, feed.IntervalSeconds, feed.PerHostKey, feed.UpdatedAt, feed.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *FeedRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM feeds WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// ListDue returns up to limit feeds whose next_run_at has passed, ordered
// oldest-due first so the scheduler drains backlog fairly across feeds.
func (repo *FeedRepo) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE next_run_at <= $1 ORDER BY next_run_at ASC, id ASC LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("ListDue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, limit)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDue: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// PromoteDue selects up to limit due feeds and advances their next_run_at in
// one transaction, row-locking each selected feed so a concurrent consumer
// transaction touching the same feed (the fetch-outcome compound write)
// serializes against it rather than racing.
func (repo *FeedRepo) PromoteDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Feed, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("PromoteDue: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	selectQuery := `SELECT ` + feedColumns + ` FROM feeds WHERE next_run_at <= $1 ORDER BY next_run_at ASC, id ASC LIMIT $2 FOR UPDATE`
	rows, err := tx.QueryContext(ctx, selectQuery, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("PromoteDue: select: %w", err)
	}
	feeds := make([]*entity.Feed, 0, limit)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("PromoteDue: scan: %w", err)
		}
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("PromoteDue: rows: %w", err)
	}
	_ = rows.Close()

	const updateQuery = `UPDATE feeds SET next_run_at = $1, updated_at = $1 WHERE id = $2`
	for _, f := range feeds {
		f.Advance(asOf)
		f.UpdatedAt = asOf
		if _, err := tx.ExecContext(ctx, updateQuery, f.NextRunAt, f.ID); err != nil {
			return nil, fmt.Errorf("PromoteDue: advance %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("PromoteDue: commit: %w", err)
	}
	committed = true
	return feeds, nil
}

// TouchNextRunAt marks a single feed due as of asOf, used by the control
// plane's enqueue_now alongside the direct queue push.
func (repo *FeedRepo) TouchNextRunAt(ctx context.Context, id uuid.UUID, asOf time.Time) error {
	const query = `UPDATE feeds SET next_run_at = $1 WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, asOf, id)
	if err != nil {
		return fmt.Errorf("TouchNextRunAt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// TouchNextRunAll resets next_run_at to asOf for every feed, including feeds
// whose slot was still in the future, so a purge is followed by a full
// re-fetch sweep rather than waiting out each feed's original schedule. It
// returns the ids touched so callers can enqueue a job per feed.
func (repo *FeedRepo) TouchNextRunAll(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	const query = `UPDATE feeds SET next_run_at = $1 RETURNING id`
	rows, err := repo.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("TouchNextRunAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]uuid.UUID, 0, 64)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("TouchNextRunAll: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
