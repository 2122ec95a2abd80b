// Package retriever provides the strategy adapters the orchestrator fans a
// search request out to — Dense, Sparse (full-text), and Graph — behind a
// common narrow interface, plus an optional streamed variant for sparse's
// systematic-review mode.
package retriever

import (
	"context"
	"iter"

	"github.com/coreason/retrieval-engine/schema"
)

// Retriever produces ranked hits for one query via its backend. It never
// mutates the request and always returns fresh Hit values.
type Retriever interface {
	Retrieve(ctx context.Context, req schema.SearchRequest) ([]schema.Hit, error)
}

// SystematicRetriever is the optional unbounded-streaming capability a
// Retriever may additionally implement. RetrieveSystematic yields every
// matching hit, paginating against its backend lazily; the sequence stops
// early if the consumer stops ranging over it.
type SystematicRetriever interface {
	RetrieveSystematic(ctx context.Context, req schema.SearchRequest) iter.Seq2[schema.Hit, error]
}

// Registry holds the three fixed strategy adapters the orchestrator
// dispatches a SearchRequest's Strategies against. Unlike the embedding and
// vectorstore packages, strategies are a closed set (dense, sparse, graph),
// not an open set of named providers, so Registry is a plain struct rather
// than a name-keyed factory map.
type Registry struct {
	Dense  Retriever
	Sparse Retriever
	Graph  Retriever
}

// Get returns the Retriever bound to strategy, or ok=false if strategy is
// not one of the three known strategies or its slot was left nil.
func (r Registry) Get(strategy schema.Strategy) (Retriever, bool) {
	var ret Retriever
	switch strategy {
	case schema.StrategyDense:
		ret = r.Dense
	case schema.StrategyFTS:
		ret = r.Sparse
	case schema.StrategyGraph:
		ret = r.Graph
	}
	return ret, ret != nil
}
