package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) List(ctx context.Context, userID string, filter domain.TaskFilter, now time.Time) ([]domain.Task, error) {
	query, args := buildTaskListQuery(userID, filter, now)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task, tags []string) (*domain.Task, error) {
	if task == nil || task.UserID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if err := checkTaskRefs(task.ID, task.CategoryID); err != nil {
		return nil, err
	}

	const query = `
	INSERT INTO tasks (id, user_id, title, description, status, due_date, category_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at, updated_at
	`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureCategoryOwned(ctx, tx, task.UserID, task.CategoryID); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, query,
			task.ID,
			task.UserID,
			task.Title,
			task.Description,
			string(task.Status),
			nullTime(task.DueDate),
			task.CategoryID,
		).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
			return err
		}

		inserted, err := insertTags(ctx, tx, task.ID, task.UserID, tags)
		if err != nil {
			return err
		}
		task.Tags = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, userID, id string, patch domain.TaskPatch, tags *[]string) error {
	if err := checkTaskRefs(id, patchCategory(patch)); err != nil {
		return err
	}
	query, args := buildTaskPatchQuery(userID, id, patch)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureCategoryOwned(ctx, tx, userID, patchCategory(patch)); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTaskNotFound
		}
		if tags == nil {
			return nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM task_tags WHERE task_id = $1`, id); err != nil {
			return err
		}
		_, err = insertTags(ctx, tx, id, userID, *tags)
		return err
	})
}

func (r *taskRepository) UpdateStatus(ctx context.Context, userID, id string, status domain.Status) error {
	const query = `
	UPDATE tasks
	SET status = $3,
		updated_at = NOW()
	WHERE id = $1 AND user_id = $2
	`
	if err := checkTaskRefs(id, nil); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, id, userID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// Delete removes the task; its tags go with it through ON DELETE CASCADE.
func (r *taskRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	if err := checkTaskRefs(id, nil); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// patchCategory returns the category a patch assigns, if any.
func patchCategory(patch domain.TaskPatch) *string {
	if patch.ClearCategory {
		return nil
	}
	return patch.CategoryID
}

func insertTags(ctx context.Context, tx pgx.Tx, taskID, userID string, names []string) ([]domain.Tag, error) {
	if len(names) == 0 {
		return []domain.Tag{}, nil
	}

	const query = `
	INSERT INTO task_tags (task_id, user_id, tag_name, position)
	SELECT $1, $2, n.tag_name, n.position
	FROM unnest($3::text[]) WITH ORDINALITY AS n(tag_name, position)
	RETURNING id, task_id, user_id, tag_name
	`
	rows, err := tx.Query(ctx, query, taskID, userID, names)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Tag, error) {
		var tag domain.Tag
		err := row.Scan(&tag.ID, &tag.TaskID, &tag.UserID, &tag.Name)
		return tag, err
	})
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		status       string
		categoryName *string
		tags         []byte
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&status,
		&task.DueDate,
		&task.CategoryID,
		&categoryName,
		&tags,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Status = domain.Status(status)
	if task.CategoryID != nil && categoryName != nil {
		task.Category = &domain.CategoryRef{ID: *task.CategoryID, Name: *categoryName}
	}
	task.Tags = []domain.Tag{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &task.Tags); err != nil {
			return nil, err
		}
	}

	return &task, nil
}
