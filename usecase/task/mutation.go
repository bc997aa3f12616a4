package task

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
)

// Create validates input, re-resolves the identity from its source, stores the
// task with its tags in one transaction and then refreshes the snapshot.
func (uc *UseCase) Create(ctx context.Context, input domain.TaskInput, tags []string) (*domain.Task, error) {
	input, err := input.Normalize()
	if err != nil {
		return nil, err
	}

	id, err := uc.session.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		UserID:      id.UserID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		DueDate:     input.DueDate,
		CategoryID:  input.CategoryID,
	}

	created, err := uc.tasks.Create(ctx, task, domain.NormalizeTags(tags))
	if err != nil {
		return nil, domain.Persistence("create task", err)
	}
	uc.logger.Info("task created",
		zap.String("task_id", created.ID),
		zap.String("user_id", id.UserID),
		zap.Int("tags", len(created.Tags)))

	uc.Refresh(ctx)
	return created, nil
}

// Update overwrites the patched fields. A nil tags pointer leaves the tags
// alone; any non-nil list, empty included, replaces the whole tag set.
func (uc *UseCase) Update(ctx context.Context, id string, patch domain.TaskPatch, tags *[]string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrInvalidPayload
	}
	patch, err := patch.Normalize()
	if err != nil {
		return err
	}
	who, err := uc.requireIdentity()
	if err != nil {
		return err
	}

	if tags != nil {
		normalized := domain.NormalizeTags(*tags)
		tags = &normalized
	}

	if err := uc.tasks.Update(ctx, who.UserID, id, patch, tags); err != nil {
		return domain.Persistence("update task", err)
	}
	uc.logger.Info("task updated", zap.String("task_id", id), zap.Bool("tags_replaced", tags != nil))

	uc.Refresh(ctx)
	return nil
}

// UpdateStatus writes only the status and patches the one task in the
// snapshot without a re-read. A failed write leaves the snapshot untouched.
func (uc *UseCase) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	who, err := uc.requireIdentity()
	if err != nil {
		return err
	}

	if err := uc.tasks.UpdateStatus(ctx, who.UserID, id, status); err != nil {
		return domain.Persistence("update task status", err)
	}

	uc.mu.Lock()
	for i := range uc.snapshot {
		if uc.snapshot[i].ID == id {
			uc.snapshot[i].Status = status
		}
	}
	uc.mu.Unlock()
	return nil
}

// Delete removes the task remotely, then drops it from the snapshot.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	who, err := uc.requireIdentity()
	if err != nil {
		return err
	}

	if err := uc.tasks.Delete(ctx, who.UserID, id); err != nil {
		return domain.Persistence("delete task", err)
	}

	uc.mu.Lock()
	kept := make([]domain.Task, 0, len(uc.snapshot))
	for _, t := range uc.snapshot {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	uc.snapshot = kept
	uc.mu.Unlock()

	uc.logger.Info("task deleted", zap.String("task_id", id))
	return nil
}
