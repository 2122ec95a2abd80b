package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/coreason/retrieval-engine/rag/embedding"
)

// CachingEmbedder wraps an embedding.Embedder with a Cache, keyed by the
// SHA-256 of the input text, so a repeated query embedding skips the
// provider round-trip entirely.
type CachingEmbedder struct {
	inner embedding.Embedder
	cache Cache
	ttl   time.Duration
}

// NewCachingEmbedder wraps inner with cache, storing each embedding for
// ttl (zero uses the cache's own default TTL).
func NewCachingEmbedder(inner embedding.Embedder, cache Cache, ttl time.Duration) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, cache: cache, ttl: ttl}
}

// EmbedSingle returns the cached vector for text when present, otherwise
// computes it via inner and caches the result.
func (c *CachingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	key := embeddingCacheKey(text)

	if cached, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.inner.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, vec, c.ttl)
	return vec, nil
}

// Embed resolves each text from the cache where possible, batching only the
// cache misses through inner.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if cached, ok, err := c.cache.Get(ctx, embeddingCacheKey(text)); err == nil && ok {
			if vec, ok := cached.([]float32); ok {
				out[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	embedded, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = embedded[j]
		_ = c.cache.Set(ctx, embeddingCacheKey(missTexts[j]), embedded[j], c.ttl)
	}
	return out, nil
}

// Dimensions passes through to inner.
func (c *CachingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func embeddingCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

var _ embedding.Embedder = (*CachingEmbedder)(nil)
