// Package identity holds the session context shared by the workspace services.
//
// A Context starts Unresolved, becomes Authenticated once its Resolver yields
// an identity and Anonymous when the resolver reports no session or the user
// signs out. Services read it; only Resolve and SignOut change it.
package identity

import (
	"context"
	"sync"

	"github.com/fastygo/taskboard/domain"
)

type State int

const (
	Unresolved State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unresolved"
	}
}

// Resolver is the identity source. It returns domain.ErrUnauthorized (or any
// error classified UNAUTHORIZED / NOT_FOUND) when no identity is available.
type Resolver interface {
	Resolve(ctx context.Context) (domain.Identity, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (domain.Identity, error)

func (f ResolverFunc) Resolve(ctx context.Context) (domain.Identity, error) {
	return f(ctx)
}

// Snapshot is a point-in-time view of the context.
type Snapshot struct {
	State    State
	Identity domain.Identity
}

func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated && s.Identity.UserID != ""
}

// Listener is notified after the state or identity changes.
type Listener func(ctx context.Context, snap Snapshot)

type Context struct {
	resolver Resolver

	mu        sync.RWMutex
	snap      Snapshot
	nextID    int
	listeners map[int]Listener
}

func NewContext(resolver Resolver) *Context {
	return &Context{
		resolver:  resolver,
		listeners: make(map[int]Listener),
	}
}

// Current returns the cached state without touching the identity source.
func (c *Context) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Resolve re-queries the identity source instead of trusting the cached state.
func (c *Context) Resolve(ctx context.Context) (domain.Identity, error) {
	if c.resolver == nil {
		c.set(ctx, Snapshot{State: Anonymous})
		return domain.Identity{}, domain.ErrUnauthorized
	}

	id, err := c.resolver.Resolve(ctx)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeUnauthorized) || domain.IsDomainError(err, domain.ErrCodeNotFound) {
			c.set(ctx, Snapshot{State: Anonymous})
			return domain.Identity{}, domain.WrapError(domain.ErrCodeUnauthorized, "unable to get authenticated user", err)
		}
		// transport failures say nothing about the session; keep the cached state
		return domain.Identity{}, domain.Persistence("resolve identity", err)
	}
	if id.UserID == "" {
		c.set(ctx, Snapshot{State: Anonymous})
		return domain.Identity{}, domain.ErrUnauthorized
	}

	c.set(ctx, Snapshot{State: Authenticated, Identity: id})
	return id, nil
}

// SignOut moves the context to Anonymous.
func (c *Context) SignOut(ctx context.Context) {
	c.set(ctx, Snapshot{State: Anonymous})
}

// Subscribe registers fn for identity changes and returns its cancel function.
func (c *Context) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Context) set(ctx context.Context, next Snapshot) {
	c.mu.Lock()
	if c.snap == next {
		c.mu.Unlock()
		return
	}
	c.snap = next
	listeners := make([]Listener, 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, next)
	}
}
