package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ItemRepo struct{ db *sql.DB }

func NewItemRepo(db *sql.DB) repository.ItemRepository {
	return &ItemRepo{db: db}
}

const itemColumns = `id, feed_id, guid, title, url, image_url, content_html, content_text,
       published_at, fetched_at, hash, created_at, updated_at`

func scanItem(row interface {
	Scan(dest ...any) error
}) (*entity.Item, error) {
	var it entity.Item
	if err := row.Scan(
		&it.ID, &it.FeedID, &it.GUID, &it.Title, &it.URL, &it.ImageURL, &it.ContentHTML, &it.ContentText,
		&it.PublishedAt, &it.FetchedAt, &it.Hash, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

func (repo *ItemRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 LIMIT 1`
	it, err := scanItem(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return it, nil
}

func (repo *ItemRepo) ListByFeed(ctx context.Context, feedID uuid.UUID) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE feed_id = $1 ORDER BY published_at DESC NULLS LAST, created_at DESC`
	rows, err := repo.db.QueryContext(ctx, query, feedID)
	if err != nil {
		return nil, fmt.Errorf("ListByFeed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.Item, 0, 64)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByFeed: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ExistingGUIDs checks the given candidate guids against feedID in one
// round trip, used by the item normalizer to skip re-deriving items it has
// already seen.
func (repo *ItemRepo) ExistingGUIDs(ctx context.Context, feedID uuid.UUID, guids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(guids))
	if len(guids) == 0 {
		return result, nil
	}

	query := `SELECT guid FROM items WHERE feed_id = $1 AND guid = ANY($2)`
	rows, err := repo.db.QueryContext(ctx, query, feedID, pq.Array(guids))
	if err != nil {
		return nil, fmt.Errorf("ExistingGUIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var guid string
		if err := rows.Scan(&guid); err != nil {
			return nil, fmt.Errorf("ExistingGUIDs: %w", err)
		}
		result[guid] = true
	}
	return result, rows.Err()
}

// InsertBatch inserts the given items in one multi-row statement, tolerating
// races on the (feed_id, guid) unique constraint via ON CONFLICT DO NOTHING.
// It returns only the items Postgres actually inserted, read back in full
// via RETURNING; the normalizer uses the returned count to decide whether a
// new_items event is due.
func (repo *ItemRepo) InsertBatch(ctx context.Context, items []*entity.Item) ([]*entity.Item, error) {
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

	rows, err := repo.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("InsertBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	inserted := make([]*entity.Item, 0, len(items))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("InsertBatch: %w", err)
		}
		inserted = append(inserted, it)
	}
	return inserted, rows.Err()
}

func (repo *ItemRepo) DeleteAllByFeed(ctx context.Context, feedID uuid.UUID) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM items WHERE feed_id = $1`, feedID)
	if err != nil {
		return 0, fmt.Errorf("DeleteAllByFeed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (repo *ItemRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM items`)
	if err != nil {
		return 0, fmt.Errorf("DeleteAll: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
