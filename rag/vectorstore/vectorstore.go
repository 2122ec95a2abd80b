// Package vectorstore defines the VectorStore collaborator the dense
// retrieval strategy depends on, along with a provider registry, composable
// hooks, and middleware for cross-cutting concerns.
package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreason/retrieval-engine/config"
	"github.com/coreason/retrieval-engine/schema"
)

// VectorStore persists documents alongside their dense vectors and serves
// nearest-neighbor search over them.
type VectorStore interface {
	// Add indexes docs with their corresponding embeddings. len(docs) must
	// equal len(embeddings).
	Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error

	// Search returns up to k documents ranked by similarity to query.
	Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]schema.Document, error)

	// Delete removes the documents with the given IDs. Nonexistent IDs are
	// not an error.
	Delete(ctx context.Context, ids []string) error
}

// SearchStrategy selects the similarity measure used by Search.
type SearchStrategy int

const (
	Cosine SearchStrategy = iota
	DotProduct
	Euclidean
)

func (s SearchStrategy) String() string {
	switch s {
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot_product"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// SearchConfig carries the options applied to a single Search call.
type SearchConfig struct {
	Filter    map[string]any
	Threshold float64
	Strategy  SearchStrategy
}

// SearchOption configures a SearchConfig.
type SearchOption func(*SearchConfig)

// WithFilter restricts results to documents whose Metadata matches filter.
func WithFilter(filter map[string]any) SearchOption {
	return func(cfg *SearchConfig) {
		cfg.Filter = filter
	}
}

// WithThreshold discards results scoring below threshold.
func WithThreshold(threshold float64) SearchOption {
	return func(cfg *SearchConfig) {
		cfg.Threshold = threshold
	}
}

// WithStrategy selects the similarity measure.
func WithStrategy(strategy SearchStrategy) SearchOption {
	return func(cfg *SearchConfig) {
		cfg.Strategy = strategy
	}
}

// Factory constructs a VectorStore from provider configuration.
type Factory func(cfg config.ProviderConfig) (VectorStore, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a named provider factory. Providers call this from an
// init() function in their own package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// List returns the names of every registered provider.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// New constructs the named provider's VectorStore.
func New(name string, cfg config.ProviderConfig) (VectorStore, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vectorstore: unknown provider %q", name)
	}
	return factory(cfg)
}

// Hooks are cross-cutting callbacks invoked around Add and Search calls.
type Hooks struct {
	// BeforeAdd runs before the underlying Add call. Returning an error
	// aborts the call without invoking the wrapped VectorStore.
	BeforeAdd func(ctx context.Context, docs []schema.Document) error

	// AfterSearch runs after Search completes, successfully or not.
	AfterSearch func(ctx context.Context, results []schema.Document, err error)
}

// ComposeHooks merges hooks in order: BeforeAdd callbacks run in order and
// stop at the first error; AfterSearch callbacks always all run, in order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeAdd: func(ctx context.Context, docs []schema.Document) error {
			for _, h := range hooks {
				if h.BeforeAdd == nil {
					continue
				}
				if err := h.BeforeAdd(ctx, docs); err != nil {
					return err
				}
			}
			return nil
		},
		AfterSearch: func(ctx context.Context, results []schema.Document, err error) {
			for _, h := range hooks {
				if h.AfterSearch == nil {
					continue
				}
				h.AfterSearch(ctx, results, err)
			}
		},
	}
}

// hookedStore wraps a VectorStore with Hooks.
type hookedStore struct {
	next  VectorStore
	hooks Hooks
}

// WithHooks returns a middleware that runs hooks around every Add/Search
// call.
func WithHooks(hooks Hooks) func(VectorStore) VectorStore {
	return func(next VectorStore) VectorStore {
		return &hookedStore{next: next, hooks: hooks}
	}
}

func (h *hookedStore) Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if h.hooks.BeforeAdd != nil {
		if err := h.hooks.BeforeAdd(ctx, docs); err != nil {
			return err
		}
	}
	return h.next.Add(ctx, docs, embeddings)
}

func (h *hookedStore) Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]schema.Document, error) {
	results, err := h.next.Search(ctx, query, k, opts...)
	if h.hooks.AfterSearch != nil {
		h.hooks.AfterSearch(ctx, results, err)
	}
	return results, err
}

func (h *hookedStore) Delete(ctx context.Context, ids []string) error {
	return h.next.Delete(ctx, ids)
}

// ApplyMiddleware wraps store with middlewares in order: the first
// middleware passed is outermost, so it observes a call before any other.
func ApplyMiddleware(store VectorStore, middlewares ...func(VectorStore) VectorStore) VectorStore {
	wrapped := store
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}
