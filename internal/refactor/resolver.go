package refactor

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/ui"
)

// Resolver produces the kind-specific options payload for a refactoring
// from the server's validation feedback. Returning ok=false signals
// cancellation (typically a dismissed prompt); it is never an error and
// aborts the flow silently.
type Resolver interface {
	Resolve(ctx context.Context, feedback json.RawMessage) (options any, ok bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, feedback json.RawMessage) (any, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, feedback json.RawMessage) (any, bool) {
	return f(ctx, feedback)
}

// Registry maps refactoring kinds to their options resolvers. Adding a
// kind means registering a resolver; the orchestrator never changes.
// A kind with no resolver aborts the flow silently.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[analysis.RefactoringKind]Resolver
}

// NewRegistry creates an empty resolver registry.
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[analysis.RefactoringKind]Resolver),
	}
}

// Register installs a resolver for a kind, replacing any existing one.
func (r *Registry) Register(kind analysis.RefactoringKind, resolver Resolver) {
	r.mu.Lock()
	r.resolvers[kind] = resolver
	r.mu.Unlock()
}

// Lookup returns the resolver for a kind.
func (r *Registry) Lookup(kind analysis.RefactoringKind) (Resolver, bool) {
	r.mu.RLock()
	resolver, ok := r.resolvers[kind]
	r.mu.RUnlock()
	return resolver, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []analysis.RefactoringKind {
	r.mu.RLock()
	kinds := make([]analysis.RefactoringKind, 0, len(r.resolvers))
	for k := range r.resolvers {
		kinds = append(kinds, k)
	}
	r.mu.RUnlock()

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// DefaultRegistry returns a registry with the built-in resolvers
// installed.
func DefaultRegistry(interactor ui.Interactor) *Registry {
	r := NewRegistry()
	r.Register(analysis.KindExtractMethod, NewExtractMethodResolver(interactor))
	r.Register(analysis.KindExtractWidget, NewExtractWidgetResolver(interactor))
	return r
}
