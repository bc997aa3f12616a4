package domain

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// CategoryRef is the category projection joined onto a task.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task represents a user-owned unit of work.
type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      Status       `json:"status"`
	DueDate     *time.Time   `json:"due_date"`
	CategoryID  *string      `json:"category_id"`
	Category    *CategoryRef `json:"categories"`
	Tags        []Tag        `json:"task_tags"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusCompleted
}

// IsOverdue reports whether the task has a due date strictly before now and is not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t == nil || t.DueDate == nil || t.IsCompleted() {
		return false
	}
	return t.DueDate.Before(now)
}

// TagNames returns the tag texts in stored order.
func (t *Task) TagNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string
	Description *string
	Status      Status
	DueDate     *time.Time
	CategoryID  *string
}

// Normalize trims text fields, defaults the status and validates the result.
func (in TaskInput) Normalize() (TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, ErrTitleRequired
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() {
		return in, ErrInvalidStatus
	}
	in.Description = trimOptional(in.Description)
	in.CategoryID = trimOptional(in.CategoryID)
	return in, nil
}

// TaskPatch lists the fields an update overwrites. Nil pointers leave a column
// untouched; the Clear flags set an optional column to NULL.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *Status
	DueDate     *time.Time
	CategoryID  *string

	ClearDescription bool
	ClearDueDate     bool
	ClearCategory    bool
}

// Empty reports whether the patch changes no column.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.DueDate == nil &&
		p.CategoryID == nil && !p.ClearDescription && !p.ClearDueDate && !p.ClearCategory
}

// Normalize trims and validates the patch.
func (p TaskPatch) Normalize() (TaskPatch, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return p, ErrTitleRequired
		}
		p.Title = &title
	}
	if p.Status != nil && !p.Status.Valid() {
		return p, ErrInvalidStatus
	}
	if p.Description != nil {
		if p.Description = trimOptional(p.Description); p.Description == nil {
			p.ClearDescription = true
		}
	}
	if p.CategoryID != nil {
		if p.CategoryID = trimOptional(p.CategoryID); p.CategoryID == nil {
			p.ClearCategory = true
		}
	}
	return p, nil
}

// Apply returns a copy of the task with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	switch {
	case p.ClearDescription:
		t.Description = nil
	case p.Description != nil:
		t.Description = p.Description
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		t.DueDate = p.DueDate
	}
	switch {
	case p.ClearCategory:
		t.CategoryID = nil
		t.Category = nil
	case p.CategoryID != nil:
		t.CategoryID = p.CategoryID
	}
	return t
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
