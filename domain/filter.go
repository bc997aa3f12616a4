package domain

import (
	"strings"
	"time"
)

// TaskFilter narrows a task read. Zero values impose no constraint; set
// fields combine with AND.
type TaskFilter struct {
	Status     Status `json:"status,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Search     string `json:"search,omitempty"`
	Overdue    bool   `json:"overdue,omitempty"`
}

// Normalize trims the text fields and rejects unknown statuses.
func (f TaskFilter) Normalize() (TaskFilter, error) {
	f.CategoryID = strings.TrimSpace(f.CategoryID)
	f.Search = strings.TrimSpace(f.Search)
	if f.Status != "" && !f.Status.Valid() {
		return f, ErrInvalidStatus
	}
	return f, nil
}

// Equal compares filters by field value.
func (f TaskFilter) Equal(other TaskFilter) bool {
	return f == other
}

func (f TaskFilter) IsZero() bool {
	return f == TaskFilter{}
}

// Matches evaluates the filter against one task at the given instant.
func (f TaskFilter) Matches(t Task, now time.Time) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.CategoryID != "" && (t.CategoryID == nil || *t.CategoryID != f.CategoryID) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Search)) {
		return false
	}
	if f.Overdue && !t.IsOverdue(now) {
		return false
	}
	return true
}
