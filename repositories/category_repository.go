package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blindcellar/tasting-system/models"
	"github.com/lib/pq"
)

var (
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryEventInvalid = errors.New("category event reference invalid")
)

type CategoryRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, categories []*models.Category) error
	ListByEvent(ctx context.Context, eventID int) ([]*models.Category, error)
}

type postgresCategoryRepository struct {
	db *sql.DB
}

func NewPostgresCategoryRepository(db *sql.DB) CategoryRepository {
	return &postgresCategoryRepository{db: db}
}

func (r *postgresCategoryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateBatch вставляет набор категорий события. Набор фиксируется при создании
// события и далее не меняется, поэтому других операций записи нет.
func (r *postgresCategoryRepository) CreateBatch(ctx context.Context, exec SQLExecutor, categories []*models.Category) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO categories (event_id, name, difficulty)
		VALUES ($1, $2, $3)
		RETURNING id`

	for _, c := range categories {
		err := executor.QueryRowContext(ctx, query, c.EventID, c.Name, c.Difficulty).Scan(&c.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return ErrCategoryEventInvalid
			}
			return fmt.Errorf("failed to create category %q: %w", c.Name, err)
		}
	}
	return nil
}

func (r *postgresCategoryRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.Category, error) {
	query := `
		SELECT id, event_id, name, difficulty
		FROM categories
		WHERE event_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories by event: %w", err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.Difficulty); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}
	return categories, nil
}
