package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskboard/domain"
)

// TaskRepository is the remote task collection. Every call is scoped to the
// owning user; rows of other users behave as if they did not exist.
type TaskRepository interface {
	// List returns the user's tasks matching filter, newest first, joined with
	// their category and tags. now anchors the overdue predicate.
	List(ctx context.Context, userID string, filter domain.TaskFilter, now time.Time) ([]domain.Task, error)
	// Create inserts the task and its tags atomically.
	Create(ctx context.Context, task *domain.Task, tags []string) (*domain.Task, error)
	// Update applies patch and, when tags is non-nil, replaces the whole tag set atomically.
	Update(ctx context.Context, userID, id string, patch domain.TaskPatch, tags *[]string) error
	UpdateStatus(ctx context.Context, userID, id string, status domain.Status) error
	Delete(ctx context.Context, userID, id string) error
}
