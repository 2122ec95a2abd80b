package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreason/retrieval-engine/schema"
)

type stubRetriever struct{ name string }

func (s stubRetriever) Retrieve(_ context.Context, _ schema.SearchRequest) ([]schema.Hit, error) {
	return []schema.Hit{{DocID: s.name}}, nil
}

func TestRegistry_Get(t *testing.T) {
	reg := Registry{
		Dense:  stubRetriever{"dense"},
		Sparse: stubRetriever{"sparse"},
		Graph:  stubRetriever{"graph"},
	}

	for strategy, want := range map[schema.Strategy]string{
		schema.StrategyDense: "dense",
		schema.StrategyFTS:   "sparse",
		schema.StrategyGraph: "graph",
	} {
		ret, ok := reg.Get(strategy)
		assert.True(t, ok)
		hits, err := ret.Retrieve(context.Background(), schema.SearchRequest{})
		assert.NoError(t, err)
		assert.Equal(t, want, hits[0].DocID)
	}
}

func TestRegistry_Get_UnknownStrategy(t *testing.T) {
	reg := Registry{Dense: stubRetriever{"dense"}}
	_, ok := reg.Get(schema.Strategy("unknown"))
	assert.False(t, ok)
}

func TestRegistry_Get_NilSlot(t *testing.T) {
	reg := Registry{}
	_, ok := reg.Get(schema.StrategyGraph)
	assert.False(t, ok)
}
