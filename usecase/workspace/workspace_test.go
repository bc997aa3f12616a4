package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/testutil"
	"github.com/fastygo/taskboard/usecase/identity"
)

var now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

// sessions maps session ids to user ids.
type sessions map[string]string

func (s sessions) Resolver(sessionID string) identity.Resolver {
	return identity.ResolverFunc(func(context.Context) (domain.Identity, error) {
		userID, ok := s[sessionID]
		if !ok {
			return domain.Identity{}, domain.ErrSessionNotFound
		}
		return domain.Identity{UserID: userID}, nil
	})
}

type fixture struct {
	tasks      *testutil.MockTaskRepository
	categories *testutil.MockCategoryRepository
	registry   *Registry
}

func newFixture(size int) *fixture {
	f := &fixture{
		tasks:      testutil.NewMockTaskRepository(),
		categories: testutil.NewMockCategoryRepository(),
	}
	f.registry = NewRegistry(RegistryConfig{MaxWorkspaces: size, IdleTTL: time.Hour},
		sessions{"s1": "u1", "s2": "u2", "s3": "u1"},
		Deps{Tasks: f.tasks, Categories: f.categories, Clock: testutil.NewMockClock(now)})
	return f
}

func TestRegistry_OpenLoadsOnce(t *testing.T) {
	f := newFixture(4)
	f.tasks.Seed(domain.Task{UserID: "u1", Title: "A"})
	f.categories.Seed("u1", "Work")

	ws, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, identity.Authenticated, ws.Identity.Current().State)
	assert.Len(t, ws.Tasks.State().Tasks, 1)
	assert.Len(t, ws.Overview.State().Tasks, 1)
	assert.Len(t, ws.Categories.State().Categories, 1)
	assert.Equal(t, 2, f.tasks.ListCalls)

	again, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)
	assert.Same(t, ws, again)
	assert.Equal(t, 2, f.tasks.ListCalls)
	assert.Equal(t, 1, f.registry.Len())
}

func TestRegistry_OpenUnknownSession(t *testing.T) {
	f := newFixture(4)

	ws, err := f.registry.Open(context.Background(), "nope")

	assert.Nil(t, ws)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
	assert.Zero(t, f.registry.Len())
	assert.Zero(t, f.tasks.ListCalls)
}

// storeDown fails every lookup the way an unreachable session store does.
type storeDown struct{}

func (storeDown) Resolver(string) identity.Resolver {
	return identity.ResolverFunc(func(context.Context) (domain.Identity, error) {
		return domain.Identity{}, assert.AnError
	})
}

func TestRegistry_OpenDuringStoreOutage(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	registry := NewRegistry(RegistryConfig{MaxWorkspaces: 2, IdleTTL: time.Hour}, storeDown{},
		Deps{Tasks: tasks, Categories: testutil.NewMockCategoryRepository(), Clock: testutil.NewMockClock(now)})

	ws, err := registry.Open(context.Background(), "s1")

	assert.Nil(t, ws)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodePersistence))
	assert.False(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
	assert.Zero(t, registry.Len())
}

func TestRegistry_CloseSignsOut(t *testing.T) {
	f := newFixture(4)
	ws, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)

	assert.True(t, f.registry.Close("s1"))
	assert.False(t, f.registry.Close("s1"))

	assert.Equal(t, identity.Anonymous, ws.Identity.Current().State)
	_, ok := f.registry.Get("s1")
	assert.False(t, ok)
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	f := newFixture(2)
	s1, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)
	_, err = f.registry.Open(context.Background(), "s2")
	require.NoError(t, err)
	_, err = f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)

	_, err = f.registry.Open(context.Background(), "s3")
	require.NoError(t, err)

	_, ok := f.registry.Get("s2")
	assert.False(t, ok)
	_, ok = f.registry.Get("s1")
	assert.True(t, ok)
	assert.Equal(t, identity.Authenticated, s1.Identity.Current().State)
	assert.Len(t, f.registry.All(), 2)
}

func TestWorkspace_DashboardIgnoresListFilter(t *testing.T) {
	f := newFixture(4)
	past := now.Add(-time.Hour)
	f.tasks.Seed(domain.Task{UserID: "u1", Title: "late", Status: domain.StatusPending, DueDate: &past})
	f.tasks.Seed(domain.Task{UserID: "u1", Title: "done", Status: domain.StatusCompleted, DueDate: &past})
	f.tasks.Seed(domain.Task{UserID: "u1", Title: "doing", Status: domain.StatusInProgress})
	ws, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)

	_, err = ws.Tasks.SetFilter(context.Background(), domain.TaskFilter{Status: domain.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, ws.Tasks.State().Tasks, 1)

	view := ws.Dashboard(context.Background())

	assert.Equal(t, 3, view.Stats.Total)
	assert.Equal(t, 1, view.Stats.Completed)
	assert.Equal(t, 1, view.Stats.Pending)
	assert.Equal(t, 1, view.Stats.InProgress)
	assert.Equal(t, 1, view.Stats.Overdue)
	assert.Len(t, view.Recent, 3)
	assert.Empty(t, view.Error)
}

func TestWorkspace_ReconcileReportsDrift(t *testing.T) {
	f := newFixture(4)
	a := f.tasks.Seed(domain.Task{UserID: "u1", Title: "A"})
	ws, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)

	report, err := ws.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Equal(t, "u1", report.UserID)

	require.NoError(t, f.tasks.Delete(context.Background(), "u1", a.ID))
	report, err = ws.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, report.Tasks.Missing)
	assert.Equal(t, []string{a.ID}, report.Overview.Missing)
	assert.Empty(t, ws.Tasks.State().Tasks)
}

func TestWorkspace_ReconcileJoinsErrors(t *testing.T) {
	f := newFixture(4)
	ws, err := f.registry.Open(context.Background(), "s1")
	require.NoError(t, err)
	f.tasks.ListErr = assert.AnError

	_, err = ws.Reconcile(context.Background())

	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodePersistence))
}
