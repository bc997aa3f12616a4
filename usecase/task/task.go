// Package task owns the task snapshot of one workspace: filtered reads,
// mutations and their re-synchronisation.
package task

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/usecase/identity"
)

// State is what the presentation layer reads: the last successfully fetched
// snapshot, whether a fetch is in flight and the last fetch error.
type State struct {
	Tasks   []domain.Task     `json:"tasks"`
	Filter  domain.TaskFilter `json:"filter"`
	Loading bool              `json:"loading"`
	Error   string            `json:"error,omitempty"`
}

type UseCase struct {
	session *identity.Context
	tasks   repository.TaskRepository
	clock   domain.Clock
	logger  *zap.Logger

	mu       sync.RWMutex
	snapshot []domain.Task
	filter   domain.TaskFilter
	loading  bool
	errMsg   string
	// seq is the number of the latest issued read; older responses are dropped.
	seq uint64
}

func New(session *identity.Context, tasks repository.TaskRepository, clock domain.Clock, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &UseCase{
		session:  session,
		tasks:    tasks,
		clock:    clock,
		logger:   logger,
		snapshot: []domain.Task{},
	}
}

// State returns a copy of the current state.
func (uc *UseCase) State() State {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	tasks := make([]domain.Task, len(uc.snapshot))
	copy(tasks, uc.snapshot)
	return State{
		Tasks:   tasks,
		Filter:  uc.filter,
		Loading: uc.loading,
		Error:   uc.errMsg,
	}
}

// SetFilter stores filter and refreshes when any field differs from the
// current one. It reports whether a refresh ran.
func (uc *UseCase) SetFilter(ctx context.Context, filter domain.TaskFilter) (bool, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return false, err
	}

	uc.mu.Lock()
	if uc.filter.Equal(filter) {
		uc.mu.Unlock()
		return false, nil
	}
	uc.filter = filter
	uc.mu.Unlock()

	uc.Refresh(ctx)
	return true, nil
}

// OnIdentityChange is the identity.Listener wired by the workspace.
func (uc *UseCase) OnIdentityChange(ctx context.Context, snap identity.Snapshot) {
	if snap.Authenticated() {
		uc.Refresh(ctx)
	}
}

// Refresh re-reads the task collection under the current filter and replaces
// the snapshot. Without an authenticated identity it does nothing. Failures
// are recorded in State().Error and the previous snapshot is kept.
func (uc *UseCase) Refresh(ctx context.Context) {
	snap := uc.session.Current()
	if !snap.Authenticated() {
		return
	}

	uc.mu.Lock()
	uc.seq++
	seq := uc.seq
	filter := uc.filter
	uc.loading = true
	uc.mu.Unlock()

	tasks, err := uc.tasks.List(ctx, snap.Identity.UserID, filter, uc.clock.Now())

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if seq != uc.seq {
		uc.logger.Debug("discarding stale task read", zap.Uint64("seq", seq), zap.Uint64("latest", uc.seq))
		return
	}
	uc.loading = false
	if err != nil {
		uc.errMsg = err.Error()
		uc.logger.Warn("task refresh failed", zap.String("user_id", snap.Identity.UserID), zap.Error(err))
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	uc.snapshot = tasks
	uc.errMsg = ""
}

func (uc *UseCase) requireIdentity() (domain.Identity, error) {
	snap := uc.session.Current()
	if !snap.Authenticated() {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return snap.Identity, nil
}
