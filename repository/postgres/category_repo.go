package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a Postgres-backed CategoryRepository.
func NewCategoryRepository(pool *pgxpool.Pool) repository.CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) List(ctx context.Context, userID string) ([]domain.Category, error) {
	const query = `
	SELECT id, user_id, name, created_at
	FROM categories
	WHERE user_id = $1
	ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
		return c, err
	})
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if category == nil || category.UserID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO categories (id, user_id, name)
	VALUES ($1, $2, $3)
	RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query, category.ID, category.UserID, category.Name).Scan(&category.CreatedAt); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes the category. Tasks referencing it keep existing with a
// NULL category_id (ON DELETE SET NULL).
func (r *categoryRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM categories WHERE id = $1 AND user_id = $2`
	if !isUUID(id) {
		return domain.ErrCategoryNotFound
	}
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}
