// Package embedding defines the Embedder collaborator the dense retrieval
// strategy depends on, along with a provider registry, composable hooks,
// and middleware for cross-cutting concerns (caching, metrics, logging).
package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreason/retrieval-engine/config"
)

// Embedder turns text into dense vectors for similarity search.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle is a convenience wrapper around Embed for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the fixed length of vectors this Embedder produces.
	Dimensions() int
}

// Factory constructs an Embedder from provider configuration.
type Factory func(cfg config.ProviderConfig) (Embedder, error)

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

// New constructs the named provider's Embedder.
func New(name string, cfg config.ProviderConfig) (Embedder, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("embedding: unknown provider %q", name)
	}
	return factory(cfg)
}

// Hooks are cross-cutting callbacks invoked around Embed calls.
type Hooks struct {
	// BeforeEmbed runs before the underlying Embed call. Returning an
	// error aborts the call without invoking the wrapped Embedder.
	BeforeEmbed func(ctx context.Context, texts []string) error

	// AfterEmbed runs after Embed completes, successfully or not.
	AfterEmbed func(ctx context.Context, embeddings [][]float32, err error)
}

// ComposeHooks merges hooks in order: BeforeEmbed callbacks run in order
// and stop at the first error; AfterEmbed callbacks always all run, in
// order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeEmbed: func(ctx context.Context, texts []string) error {
			for _, h := range hooks {
				if h.BeforeEmbed == nil {
					continue
				}
				if err := h.BeforeEmbed(ctx, texts); err != nil {
					return err
				}
			}
			return nil
		},
		AfterEmbed: func(ctx context.Context, embeddings [][]float32, err error) {
			for _, h := range hooks {
				if h.AfterEmbed == nil {
					continue
				}
				h.AfterEmbed(ctx, embeddings, err)
			}
		},
	}
}

// hookedEmbedder wraps an Embedder with Hooks.
type hookedEmbedder struct {
	next  Embedder
	hooks Hooks
}

// WithHooks returns a middleware that runs hooks around every Embed call.
func WithHooks(hooks Hooks) func(Embedder) Embedder {
	return func(next Embedder) Embedder {
		return &hookedEmbedder{next: next, hooks: hooks}
	}
}

func (h *hookedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if h.hooks.BeforeEmbed != nil {
		if err := h.hooks.BeforeEmbed(ctx, texts); err != nil {
			if h.hooks.AfterEmbed != nil {
				h.hooks.AfterEmbed(ctx, nil, err)
			}
			return nil, err
		}
	}
	embeddings, err := h.next.Embed(ctx, texts)
	if h.hooks.AfterEmbed != nil {
		h.hooks.AfterEmbed(ctx, embeddings, err)
	}
	return embeddings, err
}

func (h *hookedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if h.hooks.BeforeEmbed != nil {
		if err := h.hooks.BeforeEmbed(ctx, []string{text}); err != nil {
			if h.hooks.AfterEmbed != nil {
				h.hooks.AfterEmbed(ctx, nil, err)
			}
			return nil, err
		}
	}
	vec, err := h.next.EmbedSingle(ctx, text)
	if h.hooks.AfterEmbed != nil {
		if vec == nil {
			h.hooks.AfterEmbed(ctx, nil, err)
		} else {
			h.hooks.AfterEmbed(ctx, [][]float32{vec}, err)
		}
	}
	return vec, err
}

func (h *hookedEmbedder) Dimensions() int {
	return h.next.Dimensions()
}

// ApplyMiddleware wraps emb with middlewares in order: the first
// middleware passed is outermost, so it observes a call before any other.
func ApplyMiddleware(emb Embedder, middlewares ...func(Embedder) Embedder) Embedder {
	wrapped := emb
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}
