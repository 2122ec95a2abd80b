// Package rerank re-scores a bounded candidate set against a query. The
// orchestrator depends only on the Reranker interface; scoring strategies
// are pluggable collaborators selected at construction.
package rerank

import (
	"context"
	"sort"

	"github.com/coreason/retrieval-engine/schema"
)

// Reranker re-scores hits against query and returns the first topK, sorted
// by the new score descending. Implementations must yield fresh Hit copies
// and must not mutate the input slice.
type Reranker interface {
	Rerank(ctx context.Context, query schema.Query, hits []schema.Hit, topK int) ([]schema.Hit, error)
}

// LengthReranker is a deterministic mock standing in for a real
// cross-encoder: it scores each hit by the length of its display content,
// longer content ranking higher. It exists so the orchestrator and its
// tests can exercise the Reranker contract without a model dependency.
type LengthReranker struct{}

// NewLengthReranker returns a LengthReranker.
func NewLengthReranker() *LengthReranker {
	return &LengthReranker{}
}

func (r *LengthReranker) Rerank(_ context.Context, _ schema.Query, hits []schema.Hit, topK int) ([]schema.Hit, error) {
	if len(hits) == 0 {
		return []schema.Hit{}, nil
	}

	scored := make([]schema.Hit, len(hits))
	for i, h := range hits {
		cp := h.Copy()
		cp.Score = float64(contentLen(cp)) * 0.01
		scored[i] = cp
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK < 0 || topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

func contentLen(h schema.Hit) int {
	if h.Content != nil {
		return len(*h.Content)
	}
	return 0
}
