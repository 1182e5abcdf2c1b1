package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/repository"
)

// Store implements repository.FetchCommitter: the one-transaction compound
// write a feed fetch outcome requires: item upsert, feed metadata update,
// fetch-log append. A plain row lock suffices since this transaction always
// targets exactly one feed.
type Store struct{ db *sql.DB }

// NewStore constructs a Store over the given connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ repository.FetchCommitter = (*Store)(nil)

// CommitFetch writes the outcome of one feed fetch atomically. It row-locks
// the feed first so a concurrent commit for the same feed (which should not
// happen under the scheduler's single-job-per-feed invariant, but is
// tolerated) serializes rather than interleaves. A failed
// call rolls back entirely: no items become visible, the feed's fetch
// metadata does not advance, and no log row is appended, and the scheduler
// will simply retry the feed on its next due tick.
func (s *Store) CommitFetch(ctx context.Context, feed *entity.Feed, items []*entity.Item, log *entity.FetchLog) ([]*entity.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CommitFetch: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `SELECT id FROM feeds WHERE id = $1 FOR UPDATE`, feed.ID); err != nil {
		return nil, fmt.Errorf("CommitFetch: lock feed: %w", err)
	}

	inserted, err := insertItemsTx(ctx, tx, items)
	if err != nil {
		return nil, fmt.Errorf("CommitFetch: insert items: %w", err)
	}

	if err := updateFeedTx(ctx, tx, feed); err != nil {
		return nil, fmt.Errorf("CommitFetch: update feed: %w", err)
	}

	if err := appendFetchLogTx(ctx, tx, log); err != nil {
		return nil, fmt.Errorf("CommitFetch: append fetch log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CommitFetch: commit: %w", err)
	}
	committed = true
	return inserted, nil
}

// insertItemsTx mirrors ItemRepo.InsertBatch but runs inside the caller's
// transaction, tolerating (feed_id, guid) races via ON CONFLICT DO NOTHING
// without aborting the batch.
func insertItemsTx(ctx context.Context, tx *sql.Tx, items []*entity.Item) ([]*entity.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO items (` + itemColumns + `) VALUES `)
	args := make([]any, 0, len(items)*13)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 13
		sb.WriteString(fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11, base+12, base+13,
		))
		args = append(args,
			it.ID, it.FeedID, it.GUID, it.Title, it.URL, it.ImageURL, it.ContentHTML, it.ContentText,
			it.PublishedAt, it.FetchedAt, it.Hash, it.CreatedAt, it.UpdatedAt,
		)
	}
	sb.WriteString(` ON CONFLICT (feed_id, guid) DO NOTHING RETURNING ` + itemColumns)

	rows, err := tx.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	inserted := make([]*entity.Item, 0, len(items))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, it)
	}
	return inserted, rows.Err()
}

func updateFeedTx(ctx context.Context, tx *sql.Tx, feed *entity.Feed) error {
	const query = `
UPDATE feeds SET
       title            = $1,
       etag             = $2,
       last_modified    = $3,
       last_fetch_at    = $4,
       last_status      = $5,
       updated_at       = $6
WHERE id = $7`
	_, err := tx.ExecContext(ctx, query,
		feed.Title, feed.ETag, feed.LastModified, feed.LastFetchAt, feed.LastStatus, feed.UpdatedAt, feed.ID,
	)
	return err
}

func appendFetchLogTx(ctx context.Context, tx *sql.Tx, log *entity.FetchLog) error {
	const query = `INSERT INTO fetch_log (` + fetchLogColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.ExecContext(ctx, query,
		log.ID, log.FeedID, log.StatusCode, log.DurationMS, log.Bytes, log.Error, log.FetchedAt,
	)
	return err
}
