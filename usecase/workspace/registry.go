package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/usecase/identity"
)

// ResolverSource hands out the identity source of a session.
type ResolverSource interface {
	Resolver(sessionID string) identity.Resolver
}

type RegistryConfig struct {
	MaxWorkspaces int
	IdleTTL       time.Duration
}

// Registry keeps at most MaxWorkspaces live workspaces keyed by session id.
// A workspace untouched for IdleTTL is evicted and closed.
type Registry struct {
	source ResolverSource
	deps   Deps
	logger *zap.Logger

	mu    sync.Mutex
	cache *expirable.LRU[string, *Workspace]
}

func NewRegistry(cfg RegistryConfig, source ResolverSource, deps Deps) *Registry {
	if cfg.MaxWorkspaces <= 0 {
		cfg.MaxWorkspaces = 1024
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{source: source, deps: deps, logger: logger}
	r.cache = expirable.NewLRU[string, *Workspace](cfg.MaxWorkspaces, r.onEvict, cfg.IdleTTL)
	return r
}

// Open returns the workspace of sessionID, building and resolving it on first
// use. A session whose identity cannot be resolved gets no workspace.
func (r *Registry) Open(ctx context.Context, sessionID string) (*Workspace, error) {
	if ws, ok := r.touch(sessionID); ok {
		return ws, nil
	}

	ws := New(sessionID, r.source.Resolver(sessionID), r.deps)
	if _, err := ws.Identity.Resolve(ctx); err != nil {
		ws.Close(ctx)
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache.Get(sessionID); ok {
		ws.Close(ctx)
		r.cache.Add(sessionID, existing)
		return existing, nil
	}
	r.cache.Add(sessionID, ws)
	r.logger.Debug("workspace opened", zap.String("session_id", sessionID))
	return ws, nil
}

// Get returns a live workspace without creating one.
func (r *Registry) Get(sessionID string) (*Workspace, bool) {
	return r.touch(sessionID)
}

// Close evicts and closes the workspace of sessionID if one is live.
func (r *Registry) Close(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Remove(sessionID)
}

// All lists the live workspaces.
func (r *Registry) All() []*Workspace {
	return r.cache.Values()
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Purge closes every workspace.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}

// touch re-adds a hit so its idle timer restarts.
func (r *Registry) touch(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.cache.Get(sessionID)
	if ok {
		r.cache.Add(sessionID, ws)
	}
	return ws, ok
}

func (r *Registry) onEvict(sessionID string, ws *Workspace) {
	ws.Close(context.Background())
	r.logger.Debug("workspace closed", zap.String("session_id", sessionID))
}
