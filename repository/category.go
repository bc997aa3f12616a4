package repository

import (
	"context"

	"github.com/fastygo/taskboard/domain"
)

type CategoryRepository interface {
	List(ctx context.Context, userID string) ([]domain.Category, error)
	Create(ctx context.Context, category *domain.Category) (*domain.Category, error)
	Delete(ctx context.Context, userID, id string) error
}
