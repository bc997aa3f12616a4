package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/testutil"
	"github.com/fastygo/taskboard/usecase/identity"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	uc       *UseCase
	repo     *testutil.MockTaskRepository
	session  *identity.Context
	resolves *atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	resolves := &atomic.Int32{}
	session := identity.NewContext(identity.ResolverFunc(func(context.Context) (domain.Identity, error) {
		resolves.Add(1)
		return domain.Identity{UserID: "u1", Email: "u1@example.com"}, nil
	}))
	repo := testutil.NewMockTaskRepository()
	return &fixture{
		uc:       New(session, repo, testutil.NewMockClock(testNow), zap.NewNop()),
		repo:     repo,
		session:  session,
		resolves: resolves,
	}
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	_, err := f.session.Resolve(context.Background())
	require.NoError(t, err)
}

func ids(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestRefresh_UnauthenticatedIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	a := f.repo.Seed(domain.Task{UserID: "u1", Title: "A", Status: domain.StatusPending})
	f.uc.Refresh(context.Background())

	f.repo.ListErr = assert.AnError
	f.uc.Refresh(context.Background())
	before := f.uc.State()
	require.Equal(t, []string{a.ID}, ids(before.Tasks))
	require.NotEmpty(t, before.Error)

	f.session.SignOut(context.Background())
	f.repo.ListErr = nil
	calls := f.repo.ListCalls

	assert.NotPanics(t, func() { f.uc.Refresh(context.Background()) })
	after := f.uc.State()
	assert.Equal(t, before, after)
	assert.Equal(t, calls, f.repo.ListCalls)
}

func TestRefresh_NeverResolvedIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.repo.Seed(domain.Task{UserID: "u1", Title: "A"})

	f.uc.Refresh(context.Background())

	assert.Empty(t, f.uc.State().Tasks)
	assert.Zero(t, f.repo.ListCalls)
}

func TestRefresh_ReplacesSnapshotAndClearsError(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	older := f.repo.Seed(domain.Task{UserID: "u1", Title: "Older"})
	newer := f.repo.Seed(domain.Task{UserID: "u1", Title: "Newer"})
	f.repo.Seed(domain.Task{UserID: "someone-else", Title: "Hidden"})

	f.repo.ListErr = assert.AnError
	f.uc.Refresh(context.Background())
	assert.Equal(t, assert.AnError.Error(), f.uc.State().Error)

	f.repo.ListErr = nil
	f.uc.Refresh(context.Background())

	state := f.uc.State()
	assert.Empty(t, state.Error)
	assert.False(t, state.Loading)
	assert.Equal(t, []string{newer.ID, older.ID}, ids(state.Tasks))

	require.NoError(t, f.repo.Delete(context.Background(), "u1", older.ID))
	f.uc.Refresh(context.Background())
	assert.Equal(t, []string{newer.ID}, ids(f.uc.State().Tasks))
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	a := f.repo.Seed(domain.Task{UserID: "u1", Title: "A"})
	f.uc.Refresh(context.Background())

	f.repo.ListErr = assert.AnError
	f.uc.Refresh(context.Background())

	state := f.uc.State()
	assert.Equal(t, []string{a.ID}, ids(state.Tasks))
	assert.Equal(t, assert.AnError.Error(), state.Error)
	assert.False(t, state.Loading)
}

func TestSetFilter_RefreshesOnlyWhenFieldsChange(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	changed, err := f.uc.SetFilter(context.Background(), domain.TaskFilter{Search: "milk"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, f.repo.ListCalls)

	changed, err = f.uc.SetFilter(context.Background(), domain.TaskFilter{Search: " milk "})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, f.repo.ListCalls)

	_, err = f.uc.SetFilter(context.Background(), domain.TaskFilter{Status: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.Equal(t, "milk", f.uc.State().Filter.Search)
}

func TestSetFilter_CombinesFiltersWithAnd(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	a := f.repo.Seed(domain.Task{UserID: "u1", Title: "Buy milk", Status: domain.StatusPending})
	f.repo.Seed(domain.Task{UserID: "u1", Title: "Buy bread", Status: domain.StatusCompleted})

	_, err := f.uc.SetFilter(context.Background(), domain.TaskFilter{Status: domain.StatusPending, Search: "Buy"})
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID}, ids(f.uc.State().Tasks))
}

func TestSetFilter_DiscardsStaleResponse(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.repo.Seed(domain.Task{UserID: "u1", Title: "P", Status: domain.StatusPending})
	done := f.repo.Seed(domain.Task{UserID: "u1", Title: "C", Status: domain.StatusCompleted})

	entered := make(chan struct{})
	release := make(chan struct{})
	f.repo.ListHook = func(call int) {
		if call == 1 {
			close(entered)
			<-release
		}
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, _ = f.uc.SetFilter(context.Background(), domain.TaskFilter{Status: domain.StatusPending})
	}()
	<-entered

	_, err := f.uc.SetFilter(context.Background(), domain.TaskFilter{Status: domain.StatusCompleted})
	require.NoError(t, err)
	close(release)
	<-finished

	state := f.uc.State()
	assert.Equal(t, []string{done.ID}, ids(state.Tasks))
	assert.Equal(t, domain.StatusCompleted, state.Filter.Status)
	assert.False(t, state.Loading)
}

func TestOnIdentityChange(t *testing.T) {
	f := newFixture(t)
	f.session.Subscribe(f.uc.OnIdentityChange)
	f.repo.Seed(domain.Task{UserID: "u1", Title: "A"})

	f.signIn(t)
	assert.Len(t, f.uc.State().Tasks, 1)

	f.session.SignOut(context.Background())
	assert.Len(t, f.uc.State().Tasks, 1, "signing out keeps the last snapshot")
	assert.Equal(t, 1, f.repo.ListCalls)
}

func TestCreate_BlankTitleFailsBeforeAnyRemoteCall(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	resolves := f.resolves.Load()

	for _, title := range []string{"", "   "} {
		_, err := f.uc.Create(context.Background(), domain.TaskInput{Title: title}, []string{"x"})
		assert.ErrorIs(t, err, domain.ErrTitleRequired)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	}

	assert.Zero(t, f.repo.Calls())
	assert.Equal(t, resolves, f.resolves.Load())
}

func TestCreate_ResolvesIdentityFromSource(t *testing.T) {
	f := newFixture(t)

	created, err := f.uc.Create(context.Background(), domain.TaskInput{Title: "Write report"}, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.resolves.Load())
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, domain.StatusPending, created.Status)
}

func TestCreate_WithoutIdentityFailsWithAuthError(t *testing.T) {
	session := identity.NewContext(identity.ResolverFunc(func(context.Context) (domain.Identity, error) {
		return domain.Identity{}, domain.ErrSessionNotFound
	}))
	repo := testutil.NewMockTaskRepository()
	uc := New(session, repo, testutil.NewMockClock(testNow), nil)

	_, err := uc.Create(context.Background(), domain.TaskInput{Title: "x"}, nil)

	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
	assert.Zero(t, repo.CreateCalls)
}

func TestCreate_StoresTagsAndRefreshes(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	due := testNow.Add(48 * time.Hour)

	created, err := f.uc.Create(context.Background(), domain.TaskInput{
		Title:   "  Ship release ",
		Status:  domain.StatusInProgress,
		DueDate: &due,
	}, []string{" urgent", "", "backend", "urgent"})
	require.NoError(t, err)

	assert.Equal(t, "Ship release", created.Title)
	assert.Equal(t, []string{"urgent", "backend", "urgent"}, created.TagNames())
	assert.Equal(t, 1, f.repo.ListCalls)

	state := f.uc.State()
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, created.ID, state.Tasks[0].ID)
}

func TestCreate_PersistenceErrorPassesMessageThrough(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.repo.CreateErr = assert.AnError

	_, err := f.uc.Create(context.Background(), domain.TaskInput{Title: "x"}, nil)

	assert.True(t, domain.IsDomainError(err, domain.ErrCodePersistence))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "create task: "+assert.AnError.Error(), err.Error())
	assert.Zero(t, f.repo.ListCalls)
}

func TestUpdate_ReplacesTagSetTotally(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	task := f.repo.Seed(domain.Task{UserID: "u1", Title: "Tagged"}, "a", "b")

	tags := []string{"x"}
	require.NoError(t, f.uc.Update(context.Background(), task.ID, domain.TaskPatch{}, &tags))

	stored, ok := f.repo.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, stored.TagNames())

	state := f.uc.State()
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, []string{"x"}, state.Tasks[0].TagNames())
}

func TestUpdate_TagsNilLeavesTagsEmptyClears(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	task := f.repo.Seed(domain.Task{UserID: "u1", Title: "Tagged"}, "a", "b")

	title := "Renamed"
	require.NoError(t, f.uc.Update(context.Background(), task.ID, domain.TaskPatch{Title: &title}, nil))
	stored, _ := f.repo.Get(task.ID)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, []string{"a", "b"}, stored.TagNames())

	empty := []string{}
	require.NoError(t, f.uc.Update(context.Background(), task.ID, domain.TaskPatch{}, &empty))
	stored, _ = f.repo.Get(task.ID)
	assert.Empty(t, stored.Tags)
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	blank := " "
	err := f.uc.Update(context.Background(), "task-001", domain.TaskPatch{Title: &blank}, nil)
	assert.ErrorIs(t, err, domain.ErrTitleRequired)

	err = f.uc.Update(context.Background(), "missing", domain.TaskPatch{}, nil)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
	assert.Zero(t, f.repo.ListCalls)
}

func TestUpdateStatus_LeavesOtherFieldsAndSkipsRefresh(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	desc := "details"
	cat := "cat-1"
	due := testNow.Add(time.Hour)
	f.repo.CategoryNames[cat] = "Work"
	task := f.repo.Seed(domain.Task{
		UserID:      "u1",
		Title:       "Write report",
		Description: &desc,
		Status:      domain.StatusPending,
		DueDate:     &due,
		CategoryID:  &cat,
	}, "docs")
	f.uc.Refresh(context.Background())
	before := f.uc.State().Tasks[0]
	listCalls := f.repo.ListCalls

	require.NoError(t, f.uc.UpdateStatus(context.Background(), task.ID, domain.StatusInProgress))

	after := f.uc.State().Tasks[0]
	assert.Equal(t, domain.StatusInProgress, after.Status)
	before.Status = domain.StatusInProgress
	assert.Equal(t, before, after)
	assert.Equal(t, listCalls, f.repo.ListCalls)

	stored, _ := f.repo.Get(task.ID)
	assert.Equal(t, domain.StatusInProgress, stored.Status)
	assert.Equal(t, "Write report", stored.Title)
	assert.Equal(t, []string{"docs"}, stored.TagNames())
}

func TestUpdateStatus_FailureLeavesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	task := f.repo.Seed(domain.Task{UserID: "u1", Title: "A", Status: domain.StatusPending})
	f.uc.Refresh(context.Background())
	f.repo.UpdateStatusErr = assert.AnError

	err := f.uc.UpdateStatus(context.Background(), task.ID, domain.StatusCompleted)

	assert.True(t, domain.IsDomainError(err, domain.ErrCodePersistence))
	assert.Equal(t, domain.StatusPending, f.uc.State().Tasks[0].Status)

	err = f.uc.UpdateStatus(context.Background(), task.ID, "archived")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDelete_RemovesExactlyOneTask(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	a := f.repo.Seed(domain.Task{UserID: "u1", Title: "A"})
	b := f.repo.Seed(domain.Task{UserID: "u1", Title: "B"})
	c := f.repo.Seed(domain.Task{UserID: "u1", Title: "C"})
	f.uc.Refresh(context.Background())
	listCalls := f.repo.ListCalls

	require.NoError(t, f.uc.Delete(context.Background(), b.ID))
	assert.Equal(t, []string{c.ID, a.ID}, ids(f.uc.State().Tasks))
	assert.Equal(t, listCalls, f.repo.ListCalls)

	err := f.uc.Delete(context.Background(), b.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
	assert.Equal(t, []string{c.ID, a.ID}, ids(f.uc.State().Tasks))
}

func TestMutations_RequireIdentity(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.uc.Update(context.Background(), "t1", domain.TaskPatch{}, nil), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.uc.UpdateStatus(context.Background(), "t1", domain.StatusCompleted), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.uc.Delete(context.Background(), "t1"), domain.ErrUnauthorized)
	assert.Zero(t, f.repo.Calls())
}

func TestReconcile_ReportsAndCorrectsDrift(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	a := f.repo.Seed(domain.Task{UserID: "u1", Title: "A", Status: domain.StatusPending})
	b := f.repo.Seed(domain.Task{UserID: "u1", Title: "B", Status: domain.StatusPending})
	f.uc.Refresh(context.Background())

	require.NoError(t, f.repo.Delete(context.Background(), "u1", a.ID))
	require.NoError(t, f.repo.UpdateStatus(context.Background(), "u1", b.ID, domain.StatusCompleted))
	d := f.repo.Seed(domain.Task{UserID: "u1", Title: "D"})

	drift, err := f.uc.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID}, drift.Missing)
	assert.Equal(t, []string{b.ID}, drift.Changed)
	assert.Equal(t, []string{d.ID}, drift.Unexpected)
	assert.Equal(t, []string{d.ID, b.ID}, ids(f.uc.State().Tasks))
	assert.False(t, f.uc.State().Loading)

	drift, err = f.uc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, drift.Empty())
}

func TestReconcile_SkipsUnauthenticated(t *testing.T) {
	f := newFixture(t)

	drift, err := f.uc.Reconcile(context.Background())

	require.NoError(t, err)
	assert.True(t, drift.Empty())
	assert.Zero(t, f.repo.ListCalls)
}
