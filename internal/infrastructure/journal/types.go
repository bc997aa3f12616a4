package journal

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScopeTasks    = "tasks"
	ScopeOverview = "overview"
)

// Entry records one list whose snapshot disagreed with the store.
type Entry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Scope      string    `json:"scope"`
	Missing    []string  `json:"missing,omitempty"`
	Unexpected []string  `json:"unexpected,omitempty"`
	Changed    []string  `json:"changed,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Scope == "" {
		e.Scope = ScopeTasks
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
