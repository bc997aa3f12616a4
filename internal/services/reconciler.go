package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/infrastructure/journal"
	"github.com/fastygo/taskboard/usecase/task"
	"github.com/fastygo/taskboard/usecase/workspace"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// WorkspaceSource lists the live workspaces.
type WorkspaceSource interface {
	All() []*workspace.Workspace
}

// DriftJournal persists reconciliation findings.
type DriftJournal interface {
	Append(entry journal.Entry) error
	Cleanup(olderThan time.Time) (int, error)
}

// ReconcilerConfig controls how often snapshots are checked and how long
// findings are kept.
type ReconcilerConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// Reconciler periodically re-reads every live workspace so in-place status
// and delete updates converge with the store.
type Reconciler struct {
	source  WorkspaceSource
	journal DriftJournal
	monitor ConnectionHealth
	clock   domain.Clock
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ReconcilerConfig
}

func NewReconciler(
	source WorkspaceSource,
	drift DriftJournal,
	monitor ConnectionHealth,
	clock domain.Clock,
	logger *zap.Logger,
	cfg ReconcilerConfig,
) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if clock == nil {
		clock = domain.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reconciler{
		source:  source,
		journal: drift,
		monitor: monitor,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", max(int(cfg.Interval.Seconds()), 1))
	r.schedule(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.Error("reconcile sweep failed", zap.Error(err))
		}
	})
	r.schedule("@hourly", func() {
		if err := r.Prune(); err != nil {
			r.logger.Error("drift journal cleanup failed", zap.Error(err))
		}
	})

	return r
}

// schedule registers job with the cron runner and reports whether the spec
// was accepted.
func (r *Reconciler) schedule(spec string, job func()) bool {
	if _, err := r.cron.AddFunc(spec, job); err != nil {
		r.logger.Error("reconciler schedule rejected", zap.String("spec", spec), zap.Error(err))
		return false
	}
	return true
}

// Start launches the cron scheduler.
func (r *Reconciler) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("reconciler started", zap.Duration("interval", r.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (r *Reconciler) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("reconciler stopped")
}

// Sweep reconciles every live workspace and journals the ones that drifted.
// It returns the number of drifted workspaces.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	if r == nil || r.source == nil {
		return 0, nil
	}
	if r.monitor != nil && !r.monitor.IsOnline() {
		r.logger.Debug("skipping reconcile sweep (offline)")
		return 0, nil
	}

	var errs []error
	drifted := 0
	for _, ws := range r.source.All() {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		report, err := ws.Reconcile(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", ws.SessionID, err))
		}
		if report.Empty() {
			continue
		}
		drifted++
		r.record(report)
	}
	return drifted, errors.Join(errs...)
}

// Reconcile runs one workspace on demand and journals any drift.
func (r *Reconciler) Reconcile(ctx context.Context, ws *workspace.Workspace) (workspace.Report, error) {
	report, err := ws.Reconcile(ctx)
	if !report.Empty() {
		r.record(report)
	}
	return report, err
}

// Prune drops journal entries older than the retention window.
func (r *Reconciler) Prune() error {
	if r == nil || r.journal == nil {
		return nil
	}
	removed, err := r.journal.Cleanup(r.clock.Now().Add(-r.cfg.Retention))
	if err != nil {
		return err
	}
	if removed > 0 {
		r.logger.Info("drift journal pruned", zap.Int("removed", removed))
	}
	return nil
}

func (r *Reconciler) record(report workspace.Report) {
	if r.journal == nil {
		return
	}
	now := r.clock.Now()
	for scope, drift := range map[string]task.Drift{
		journal.ScopeTasks:    report.Tasks,
		journal.ScopeOverview: report.Overview,
	} {
		if drift.Empty() {
			continue
		}
		entry := journal.Entry{
			SessionID:  report.SessionID,
			UserID:     report.UserID,
			Scope:      scope,
			Missing:    drift.Missing,
			Unexpected: drift.Unexpected,
			Changed:    drift.Changed,
			Timestamp:  now,
		}
		if err := r.journal.Append(entry); err != nil {
			r.logger.Warn("failed to journal drift", zap.String("session_id", report.SessionID), zap.Error(err))
		}
	}
}
