package task

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
)

// Drift lists the task ids where the snapshot disagreed with a fresh read.
type Drift struct {
	// Missing tasks were in the snapshot but not in the store read.
	Missing []string `json:"missing,omitempty"`
	// Unexpected tasks were read from the store but absent from the snapshot.
	Unexpected []string `json:"unexpected,omitempty"`
	Changed    []string `json:"changed,omitempty"`
}

func (d Drift) Empty() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0 && len(d.Changed) == 0
}

// Reconcile re-reads the current filter in the background, replaces the
// snapshot and reports how far the in-place updates had drifted. It never sets
// the loading flag but clears one left by a refresh it superseded.
// Unauthenticated workspaces are skipped.
func (uc *UseCase) Reconcile(ctx context.Context) (Drift, error) {
	snap := uc.session.Current()
	if !snap.Authenticated() {
		return Drift{}, nil
	}

	uc.mu.Lock()
	uc.seq++
	seq := uc.seq
	filter := uc.filter
	uc.mu.Unlock()

	fresh, err := uc.tasks.List(ctx, snap.Identity.UserID, filter, uc.clock.Now())

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if seq != uc.seq {
		return Drift{}, nil
	}
	// a superseded foreground refresh may have left the flag set
	uc.loading = false
	if err != nil {
		uc.errMsg = err.Error()
		return Drift{}, domain.Persistence("reconcile tasks", err)
	}

	drift := diffSnapshots(uc.snapshot, fresh)
	if fresh == nil {
		fresh = []domain.Task{}
	}
	uc.snapshot = fresh
	uc.errMsg = ""

	if !drift.Empty() {
		uc.logger.Warn("task snapshot drift corrected",
			zap.String("user_id", snap.Identity.UserID),
			zap.Strings("missing", drift.Missing),
			zap.Strings("unexpected", drift.Unexpected),
			zap.Strings("changed", drift.Changed))
	}
	return drift, nil
}

func diffSnapshots(local, fresh []domain.Task) Drift {
	byID := make(map[string]domain.Task, len(fresh))
	for _, t := range fresh {
		byID[t.ID] = t
	}

	var drift Drift
	seen := make(map[string]bool, len(local))
	for _, t := range local {
		seen[t.ID] = true
		remote, ok := byID[t.ID]
		switch {
		case !ok:
			drift.Missing = append(drift.Missing, t.ID)
		case !sameTask(t, remote):
			drift.Changed = append(drift.Changed, t.ID)
		}
	}
	for _, t := range fresh {
		if !seen[t.ID] {
			drift.Unexpected = append(drift.Unexpected, t.ID)
		}
	}
	return drift
}

func sameTask(a, b domain.Task) bool {
	return a.Title == b.Title &&
		a.Status == b.Status &&
		equalPtr(a.Description, b.Description) &&
		equalPtr(a.CategoryID, b.CategoryID) &&
		equalTime(a.DueDate, b.DueDate) &&
		slices.Equal(a.TagNames(), b.TagNames())
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
