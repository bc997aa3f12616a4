// Package workspace bundles the per-session services: the identity context,
// the filtered task list, the unfiltered dashboard list, the category list and
// the statistics aggregator.
package workspace

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/usecase/category"
	"github.com/fastygo/taskboard/usecase/identity"
	"github.com/fastygo/taskboard/usecase/stats"
	"github.com/fastygo/taskboard/usecase/task"
)

type Workspace struct {
	SessionID string

	Identity   *identity.Context
	Tasks      *task.UseCase
	Overview   *task.UseCase
	Categories *category.UseCase
	Stats      *stats.Aggregator

	closeOnce   sync.Once
	unsubscribe []func()
}

// Deps are the shared collaborators every workspace is built from.
type Deps struct {
	Tasks      repository.TaskRepository
	Categories repository.CategoryRepository
	Clock      domain.Clock
	Logger     *zap.Logger
}

// New wires the services of one session. Nothing is fetched until the
// identity context resolves.
func New(sessionID string, resolver identity.Resolver, deps Deps) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", sessionID))

	session := identity.NewContext(resolver)
	ws := &Workspace{
		SessionID:  sessionID,
		Identity:   session,
		Tasks:      task.New(session, deps.Tasks, deps.Clock, logger.Named("tasks")),
		Overview:   task.New(session, deps.Tasks, deps.Clock, logger.Named("overview")),
		Categories: category.New(session, deps.Categories, logger.Named("categories")),
		Stats:      stats.NewAggregator(deps.Clock),
	}
	ws.unsubscribe = []func(){
		session.Subscribe(ws.Tasks.OnIdentityChange),
		session.Subscribe(ws.Overview.OnIdentityChange),
		session.Subscribe(ws.Categories.OnIdentityChange),
	}
	return ws
}

// DashboardView is the dashboard payload: counters and recent tasks of the
// unfiltered list plus its fetch state.
type DashboardView struct {
	stats.Dashboard
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// Dashboard re-reads the unfiltered task list and summarises it.
func (w *Workspace) Dashboard(ctx context.Context) DashboardView {
	w.Overview.Refresh(ctx)
	state := w.Overview.State()
	return DashboardView{
		Dashboard: w.Stats.Dashboard(state.Tasks),
		Loading:   state.Loading,
		Error:     state.Error,
	}
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	Tasks     task.Drift `json:"tasks"`
	Overview  task.Drift `json:"overview"`
}

func (r Report) Empty() bool {
	return r.Tasks.Empty() && r.Overview.Empty()
}

// Reconcile checks both task lists against the store.
func (w *Workspace) Reconcile(ctx context.Context) (Report, error) {
	report := Report{SessionID: w.SessionID, UserID: w.Identity.Current().Identity.UserID}

	var errs []error
	var err error
	if report.Tasks, err = w.Tasks.Reconcile(ctx); err != nil {
		errs = append(errs, err)
	}
	if report.Overview, err = w.Overview.Reconcile(ctx); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

// Close detaches the services and signs the identity context out.
func (w *Workspace) Close(ctx context.Context) {
	w.closeOnce.Do(func() {
		for _, fn := range w.unsubscribe {
			fn()
		}
		w.Identity.SignOut(ctx)
	})
}
