package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// semanticIndexSize bounds the number of embeddings SemanticCache keeps
// available for fuzzy lookup; older entries are evicted LRU-style so the
// similarity scan stays bounded regardless of how many distinct embeddings
// pass through Set.
const semanticIndexSize = 1024

// SemanticCache wraps a Cache to provide similarity-based lookups using
// embedding vectors. GetSemantic first tries an exact key match (the
// embedding's hash); on a miss, it falls back to scanning a bounded recent
// window of stored embeddings and returns the value of the closest one
// scoring at or above the similarity threshold.
type SemanticCache struct {
	cache     Cache
	threshold float64
	index     *lru.Cache[string, indexedEmbedding]
}

type indexedEmbedding struct {
	key       string
	embedding []float32
}

// NewSemanticCache creates a SemanticCache wrapping the given Cache.
// The threshold (0–1) controls the minimum cosine similarity required
// for a semantic match. A threshold of 0.95 requires very high similarity;
// 0.8 is more permissive.
func NewSemanticCache(cache Cache, threshold float64) *SemanticCache {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	index, _ := lru.New[string, indexedEmbedding](semanticIndexSize)
	return &SemanticCache{
		cache:     cache,
		threshold: threshold,
		index:     index,
	}
}

// GetSemantic searches the cache for an entry whose embedding is similar
// to the provided embedding within the given threshold. An exact match on
// the embedding's hash is tried first; a cosine-similarity scan over the
// recent embedding index is the fallback.
//
// The threshold parameter overrides the SemanticCache's default threshold
// for this single lookup. Pass 0 or a negative value to use the default.
func (sc *SemanticCache) GetSemantic(ctx context.Context, embedding []float32, threshold float64) (any, bool, error) {
	if threshold <= 0 {
		threshold = sc.threshold
	}

	key := embeddingKey(embedding)
	if val, ok, err := sc.cache.Get(ctx, key); ok || err != nil {
		return val, ok, err
	}

	bestKey, bestScore := sc.nearest(embedding)
	if bestKey == "" || bestScore < threshold {
		return nil, false, nil
	}
	return sc.cache.Get(ctx, bestKey)
}

// nearest returns the indexed embedding's cache key with the highest
// cosine similarity to embedding, and that similarity score.
func (sc *SemanticCache) nearest(embedding []float32) (string, float64) {
	var bestKey string
	bestScore := -1.0
	for _, entry := range sc.index.Values() {
		score := cosineSimilarity(embedding, entry.embedding)
		if score > bestScore {
			bestScore = score
			bestKey = entry.key
		}
	}
	return bestKey, bestScore
}

// SetSemantic stores a value keyed by the hash of its embedding vector and
// indexes the embedding for later fuzzy lookup.
func (sc *SemanticCache) SetSemantic(ctx context.Context, embedding []float32, value any) error {
	key := embeddingKey(embedding)
	if err := sc.cache.Set(ctx, key, value, 0); err != nil {
		return err
	}
	sc.index.Add(key, indexedEmbedding{key: key, embedding: embedding})
	return nil
}

// Cache returns the underlying Cache instance.
func (sc *SemanticCache) Cache() Cache {
	return sc.cache
}

// embeddingKey produces a deterministic cache key from an embedding vector
// by hashing the float32 values.
func embeddingKey(embedding []float32) string {
	h := sha256.New()
	for _, v := range embedding {
		// Use fmt to produce a deterministic string representation.
		fmt.Fprintf(h, "%v,", v)
	}
	return fmt.Sprintf("sem:%x", h.Sum(nil))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
