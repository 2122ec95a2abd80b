// Package fusion implements reciprocal rank fusion (RRF), combining several
// ranked hit lists produced by independent retrieval strategies into one.
package fusion

import (
	"sort"

	"github.com/coreason/retrieval-engine/schema"
)

// DefaultK is the RRF smoothing constant used when none is configured.
const DefaultK = 60

// Engine fuses ranked hit lists by reciprocal rank fusion.
type Engine struct {
	k int
}

// New returns an Engine with the given k. k <= 0 falls back to DefaultK.
func New(k int) *Engine {
	if k <= 0 {
		k = DefaultK
	}
	return &Engine{k: k}
}

// Fuse combines lists into one slice of fresh Hit copies, sorted by
// accumulated RRF score descending, ties broken by first appearance order.
// Each hit's RRF contribution from list i at 0-based rank r is
// 1 / (k + r + 1). The retained Hit per doc_id is the first occurrence
// across all input lists in input order.
func (e *Engine) Fuse(lists [][]schema.Hit) []schema.Hit {
	scores := make(map[string]float64)
	canonical := make(map[string]schema.Hit)
	var order []string

	for _, list := range lists {
		for rank, hit := range list {
			if _, seen := canonical[hit.DocID]; !seen {
				canonical[hit.DocID] = hit
				order = append(order, hit.DocID)
			}
			scores[hit.DocID] += 1.0 / float64(e.k+rank+1)
		}
	}

	out := make([]schema.Hit, 0, len(order))
	for _, id := range order {
		cp := canonical[id].Copy()
		cp.Score = scores[id]
		out = append(out, cp)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return pos[out[i].DocID] < pos[out[j].DocID]
	})
	return out
}
