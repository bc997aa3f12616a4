// Package category keeps the category list of one workspace.
package category

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
	"github.com/fastygo/taskboard/usecase/identity"
)

type State struct {
	Categories []domain.Category `json:"categories"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
}

type UseCase struct {
	session    *identity.Context
	categories repository.CategoryRepository
	logger     *zap.Logger

	mu      sync.RWMutex
	list    []domain.Category
	loading bool
	errMsg  string
	seq     uint64
}

func New(session *identity.Context, categories repository.CategoryRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		session:    session,
		categories: categories,
		logger:     logger,
		list:       []domain.Category{},
	}
}

func (uc *UseCase) State() State {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	list := make([]domain.Category, len(uc.list))
	copy(list, uc.list)
	return State{Categories: list, Loading: uc.loading, Error: uc.errMsg}
}

// OnIdentityChange is the identity.Listener wired by the workspace.
func (uc *UseCase) OnIdentityChange(ctx context.Context, snap identity.Snapshot) {
	if snap.Authenticated() {
		uc.Fetch(ctx)
	}
}

// Fetch loads the owner's categories, oldest first. It is a no-op without an
// authenticated identity and records failures instead of returning them.
func (uc *UseCase) Fetch(ctx context.Context) {
	snap := uc.session.Current()
	if !snap.Authenticated() {
		return
	}

	uc.mu.Lock()
	uc.seq++
	seq := uc.seq
	uc.loading = true
	uc.mu.Unlock()

	list, err := uc.categories.List(ctx, snap.Identity.UserID)

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if seq != uc.seq {
		return
	}
	uc.loading = false
	if err != nil {
		uc.errMsg = err.Error()
		uc.logger.Warn("category fetch failed", zap.String("user_id", snap.Identity.UserID), zap.Error(err))
		return
	}
	if list == nil {
		list = []domain.Category{}
	}
	uc.list = list
	uc.errMsg = ""
}

// Create stores a category and appends it to the local list.
func (uc *UseCase) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	snap := uc.session.Current()
	if !snap.Authenticated() {
		return nil, domain.ErrUnauthorized
	}

	created, err := uc.categories.Create(ctx, &domain.Category{UserID: snap.Identity.UserID, Name: name})
	if err != nil {
		return nil, domain.Persistence("create category", err)
	}

	uc.mu.Lock()
	uc.list = append(uc.list, *created)
	uc.mu.Unlock()

	uc.logger.Info("category created", zap.String("category_id", created.ID))
	return created, nil
}

// Delete removes the category remotely and then from the local list. Tasks
// that referenced it keep their snapshot copy until the next task refresh.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	snap := uc.session.Current()
	if !snap.Authenticated() {
		return domain.ErrUnauthorized
	}

	if err := uc.categories.Delete(ctx, snap.Identity.UserID, id); err != nil {
		return domain.Persistence("delete category", err)
	}

	uc.mu.Lock()
	kept := make([]domain.Category, 0, len(uc.list))
	for _, c := range uc.list {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	uc.list = kept
	uc.mu.Unlock()

	uc.logger.Info("category deleted", zap.String("category_id", id))
	return nil
}
