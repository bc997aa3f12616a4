// Package testutil provides in-memory test doubles for the repositories.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fastygo/taskboard/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	mu      sync.Mutex
	NowTime time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{NowTime: now}
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.NowTime
}

// Advance moves the clock forward.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.NowTime = m.NowTime.Add(d)
	m.mu.Unlock()
}

// MockTaskRepository is an in-memory repository.TaskRepository that applies
// filters with domain.TaskFilter.Matches.
type MockTaskRepository struct {
	mu sync.Mutex

	Tasks         map[string]*domain.Task
	CategoryNames map[string]string

	ListErr         error
	CreateErr       error
	UpdateErr       error
	UpdateStatusErr error
	DeleteErr       error

	// ListHook runs before every List with the 1-based call number, outside the lock.
	ListHook func(call int)

	ListCalls         int
	CreateCalls       int
	UpdateCalls       int
	UpdateStatusCalls int
	DeleteCalls       int

	nextID  int
	created time.Time
}

// NewMockTaskRepository creates a MockTaskRepository with initialized maps.
func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		Tasks:         make(map[string]*domain.Task),
		CategoryNames: make(map[string]string),
		nextID:        1,
		created:       time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// Seed stores a task directly, assigning id and creation time when missing.
func (m *MockTaskRepository) Seed(task domain.Task, tags ...string) domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assign(&task)
	task.Tags = m.buildTags(task.ID, task.UserID, tags)
	m.Tasks[task.ID] = &task
	return cloneTask(task)
}

func (m *MockTaskRepository) List(_ context.Context, userID string, filter domain.TaskFilter, now time.Time) ([]domain.Task, error) {
	m.mu.Lock()
	m.ListCalls++
	call := m.ListCalls
	hook := m.ListHook
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	tasks := []domain.Task{}
	for _, t := range m.Tasks {
		if t.UserID != userID || !filter.Matches(*t, now) {
			continue
		}
		task := cloneTask(*t)
		task.Category = nil
		if task.CategoryID != nil {
			if name, ok := m.CategoryNames[*task.CategoryID]; ok {
				task.Category = &domain.CategoryRef{ID: *task.CategoryID, Name: name}
			}
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (m *MockTaskRepository) Create(_ context.Context, task *domain.Task, tags []string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	stored := cloneTask(*task)
	m.assign(&stored)
	stored.Tags = m.buildTags(stored.ID, stored.UserID, tags)
	m.Tasks[stored.ID] = &stored

	out := cloneTask(stored)
	return &out, nil
}

func (m *MockTaskRepository) Update(_ context.Context, userID, id string, patch domain.TaskPatch, tags *[]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	t, ok := m.Tasks[id]
	if !ok || t.UserID != userID {
		return domain.ErrTaskNotFound
	}
	updated := patch.Apply(*t)
	if tags != nil {
		updated.Tags = m.buildTags(id, userID, *tags)
	}
	m.Tasks[id] = &updated
	return nil
}

func (m *MockTaskRepository) UpdateStatus(_ context.Context, userID, id string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateStatusCalls++
	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}
	t, ok := m.Tasks[id]
	if !ok || t.UserID != userID {
		return domain.ErrTaskNotFound
	}
	t.Status = status
	return nil
}

func (m *MockTaskRepository) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	t, ok := m.Tasks[id]
	if !ok || t.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(m.Tasks, id)
	return nil
}

// Get returns a copy of a stored task.
func (m *MockTaskRepository) Get(id string) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return cloneTask(*t), true
}

// Calls returns the total number of remote calls made so far.
func (m *MockTaskRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls + m.CreateCalls + m.UpdateCalls + m.UpdateStatusCalls + m.DeleteCalls
}

func (m *MockTaskRepository) assign(task *domain.Task) {
	if task.ID == "" {
		task.ID = fmt.Sprintf("task-%03d", m.nextID)
		m.nextID++
	}
	if task.CreatedAt.IsZero() {
		m.created = m.created.Add(time.Minute)
		task.CreatedAt = m.created
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
}

func (m *MockTaskRepository) buildTags(taskID, userID string, names []string) []domain.Tag {
	tags := make([]domain.Tag, 0, len(names))
	for i, name := range names {
		tags = append(tags, domain.Tag{
			ID:     fmt.Sprintf("%s-tag-%d", taskID, i+1),
			TaskID: taskID,
			UserID: userID,
			Name:   name,
		})
	}
	return tags
}

func cloneTask(t domain.Task) domain.Task {
	if t.Tags != nil {
		t.Tags = append([]domain.Tag(nil), t.Tags...)
	}
	return t
}

// MockCategoryRepository is an in-memory repository.CategoryRepository.
type MockCategoryRepository struct {
	mu sync.Mutex

	Categories []domain.Category

	ListErr   error
	CreateErr error
	DeleteErr error
	ListHook  func(call int)

	ListCalls   int
	CreateCalls int
	DeleteCalls int

	nextID  int
	created time.Time
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		nextID:  1,
		created: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *MockCategoryRepository) Seed(userID, name string) domain.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.newCategory(userID, name)
	m.Categories = append(m.Categories, c)
	return c
}

func (m *MockCategoryRepository) List(_ context.Context, userID string) ([]domain.Category, error) {
	m.mu.Lock()
	m.ListCalls++
	call := m.ListCalls
	hook := m.ListHook
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := []domain.Category{}
	for _, c := range m.Categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockCategoryRepository) Create(_ context.Context, category *domain.Category) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	c := m.newCategory(category.UserID, category.Name)
	m.Categories = append(m.Categories, c)
	return &c, nil
}

func (m *MockCategoryRepository) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	for i, c := range m.Categories {
		if c.ID == id && c.UserID == userID {
			m.Categories = append(m.Categories[:i], m.Categories[i+1:]...)
			return nil
		}
	}
	return domain.ErrCategoryNotFound
}

func (m *MockCategoryRepository) newCategory(userID, name string) domain.Category {
	m.created = m.created.Add(time.Minute)
	c := domain.Category{
		ID:        fmt.Sprintf("cat-%03d", m.nextID),
		UserID:    userID,
		Name:      name,
		CreatedAt: m.created,
	}
	m.nextID++
	return c
}

// MockUserRepository is an in-memory repository.UserRepository.
type MockUserRepository struct {
	mu     sync.Mutex
	Users  map[string]*domain.User
	GetErr error
	nextID int
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*domain.User), nextID: 1}
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%03d", m.nextID)
		m.nextID++
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.Users[user.ID] = &stored
	return nil
}

// MockSessionRepository is an in-memory repository.SessionRepository.
type MockSessionRepository struct {
	mu       sync.Mutex
	Sessions map[string]*domain.Session
	SaveErr  error
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{Sessions: make(map[string]*domain.Session)}
}

func (m *MockSessionRepository) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (m *MockSessionRepository) Save(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	stored := *session
	m.Sessions[session.ID] = &stored
	return nil
}

func (m *MockSessionRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sessions, id)
	return nil
}

func (m *MockSessionRepository) Extend(_ context.Context, id string, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.ExpiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	return nil
}
