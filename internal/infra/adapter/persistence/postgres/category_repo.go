package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/repository"

	"github.com/google/uuid"
)

type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) repository.CategoryRepository {
	return &CategoryRepo{db: db}
}

const categoryColumns = `id, name, description, color, "order"`

func scanCategory(row interface {
	Scan(dest ...any) error
}) (*entity.Category, error) {
	var c entity.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Order); err != nil {
		return nil, err
	}
	return &c, nil
}

func (repo *CategoryRepo) List(ctx context.Context) ([]*entity.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY "order" ASC, name ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := make([]*entity.Category, 0, 16)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (repo *CategoryRepo) Create(ctx context.Context, category *entity.Category) error {
	const query = `INSERT INTO categories (` + categoryColumns + `) VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.db.ExecContext(ctx, query,
		category.ID, category.Name, category.Description, category.Color, category.Order,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *CategoryRepo) FeedsForCategory(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT feed_id FROM category_feed WHERE category_id = $1`
	rows, err := repo.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("FeedsForCategory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]uuid.UUID, 0, 16)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("FeedsForCategory: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
