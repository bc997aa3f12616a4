package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/infrastructure/journal"
	"github.com/fastygo/taskboard/internal/testutil"
	"github.com/fastygo/taskboard/usecase/identity"
	"github.com/fastygo/taskboard/usecase/workspace"
)

type staticHealth bool

func (h staticHealth) IsOnline() bool { return bool(h) }

type oneUser struct{}

func (oneUser) Resolver(string) identity.Resolver {
	return identity.ResolverFunc(func(context.Context) (domain.Identity, error) {
		return domain.Identity{UserID: "u1"}, nil
	})
}

type reconcilerFixture struct {
	tasks    *testutil.MockTaskRepository
	registry *workspace.Registry
	journal  *journal.Store
	clock    *testutil.MockClock
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "drift.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tasks := testutil.NewMockTaskRepository()
	clock := testutil.NewMockClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	registry := workspace.NewRegistry(workspace.RegistryConfig{MaxWorkspaces: 8, IdleTTL: time.Hour}, oneUser{},
		workspace.Deps{Tasks: tasks, Categories: testutil.NewMockCategoryRepository(), Clock: clock})
	t.Cleanup(registry.Purge)
	return &reconcilerFixture{tasks: tasks, registry: registry, journal: store, clock: clock}
}

func TestReconciler_SweepJournalsDrift(t *testing.T) {
	f := newReconcilerFixture(t)
	a := f.tasks.Seed(domain.Task{UserID: "u1", Title: "A"})
	_, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)
	_, err = f.registry.Open(context.Background(), "s2")
	require.NoError(t, err)

	r := NewReconciler(f.registry, f.journal, staticHealth(true), f.clock, nil, ReconcilerConfig{})

	drifted, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, drifted)

	require.NoError(t, f.tasks.UpdateStatus(context.Background(), "u1", a.ID, domain.StatusCompleted))
	drifted, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, drifted)

	entries, err := f.journal.Recent("u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, []string{a.ID}, e.Changed)
		assert.Equal(t, f.clock.Now(), e.Timestamp)
	}
}

func TestReconciler_SkipsWhenOffline(t *testing.T) {
	f := newReconcilerFixture(t)
	_, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)
	calls := f.tasks.ListCalls

	r := NewReconciler(f.registry, f.journal, staticHealth(false), f.clock, nil, ReconcilerConfig{})
	drifted, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, drifted)
	assert.Equal(t, calls, f.tasks.ListCalls)
}

func TestReconciler_SweepReportsStoreErrors(t *testing.T) {
	f := newReconcilerFixture(t)
	_, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)
	f.tasks.ListErr = assert.AnError

	r := NewReconciler(f.registry, f.journal, nil, f.clock, nil, ReconcilerConfig{})
	_, err = r.Sweep(context.Background())

	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "session s1")
}

func TestReconciler_Prune(t *testing.T) {
	f := newReconcilerFixture(t)
	now := f.clock.Now()
	require.NoError(t, f.journal.Append(journal.Entry{UserID: "u1", Timestamp: now.Add(-100 * time.Hour)}))
	require.NoError(t, f.journal.Append(journal.Entry{UserID: "u1", Timestamp: now.Add(-time.Hour)}))

	r := NewReconciler(f.registry, f.journal, nil, f.clock, nil, ReconcilerConfig{Retention: 72 * time.Hour})
	require.NoError(t, r.Prune())

	size, err := f.journal.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestReconciler_ScheduleLogsRejectedSpec(t *testing.T) {
	f := newReconcilerFixture(t)
	core, logs := observer.New(zap.ErrorLevel)
	r := NewReconciler(f.registry, f.journal, nil, f.clock, zap.New(core), ReconcilerConfig{Interval: 30 * time.Second})

	assert.Zero(t, logs.Len())
	assert.Len(t, r.cron.Entries(), 2)

	assert.False(t, r.schedule("every now and then", func() {}))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "reconciler schedule rejected", entry.Message)
	assert.Equal(t, "every now and then", entry.ContextMap()["spec"])
	assert.Len(t, r.cron.Entries(), 2)
}
