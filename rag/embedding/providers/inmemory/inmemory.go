// Package inmemory provides a deterministic, hash-seeded Embedder with no
// external dependencies. It stands in for a real embedding model in tests
// and local development: same text always yields the same unit vector.
package inmemory

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/coreason/retrieval-engine/config"
	"github.com/coreason/retrieval-engine/rag/embedding"
)

const defaultDimensions = 128

func init() {
	embedding.Register("inmemory", func(cfg config.ProviderConfig) (embedding.Embedder, error) {
		return New(cfg)
	})
}

// Embedder produces deterministic pseudo-random unit vectors seeded from
// the FNV hash of the input text.
type Embedder struct {
	dimensions int
}

// New constructs an Embedder. cfg.Options["dimensions"] overrides the
// default dimensionality; zero or negative values fall back to the default.
func New(cfg config.ProviderConfig) (*Embedder, error) {
	dims := defaultDimensions
	if raw, ok := config.GetOption[float64](cfg, "dimensions"); ok && raw > 0 {
		dims = int(raw)
	}
	return &Embedder{dimensions: dims}, nil
}

func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t, e.dimensions)
	}
	return out, nil
}

func (e *Embedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	return vectorFor(text, e.dimensions), nil
}

func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func vectorFor(text string, dims int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, dims)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
