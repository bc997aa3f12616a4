// Package stats derives dashboard counters from a task snapshot.
package stats

import (
	"time"

	"github.com/fastygo/taskboard/domain"
)

// RecentLimit is how many tasks the dashboard lists.
const RecentLimit = 5

type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
}

// Compute counts tasks per status and the overdue ones as of now.
func Compute(tasks []domain.Task, now time.Time) Stats {
	s := Stats{Total: len(tasks)}
	for i := range tasks {
		t := &tasks[i]
		switch t.Status {
		case domain.StatusCompleted:
			s.Completed++
		case domain.StatusPending:
			s.Pending++
		case domain.StatusInProgress:
			s.InProgress++
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}
	return s
}

type Dashboard struct {
	Stats  Stats         `json:"stats"`
	Recent []domain.Task `json:"recent"`
}

// Aggregator evaluates overdue against its clock at call time.
type Aggregator struct {
	clock domain.Clock
}

func NewAggregator(clock domain.Clock) *Aggregator {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Aggregator{clock: clock}
}

func (a *Aggregator) Compute(tasks []domain.Task) Stats {
	return Compute(tasks, a.clock.Now())
}

// Dashboard returns the counters plus the first RecentLimit tasks of the snapshot.
func (a *Aggregator) Dashboard(tasks []domain.Task) Dashboard {
	n := min(len(tasks), RecentLimit)
	recent := make([]domain.Task, n)
	copy(recent, tasks[:n])
	return Dashboard{Stats: a.Compute(tasks), Recent: recent}
}
