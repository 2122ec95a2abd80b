package retriever

import (
	"context"
	"fmt"

	"github.com/coreason/retrieval-engine/filter"
	"github.com/coreason/retrieval-engine/queryparse"
	"github.com/coreason/retrieval-engine/rag/embedding"
	"github.com/coreason/retrieval-engine/rag/vectorstore"
	"github.com/coreason/retrieval-engine/schema"
)

// oversampleMultiplier and oversampleFloor implement the "fetch extra to
// survive post-filter attrition" heuristic shared by Dense and Sparse.
const (
	oversampleMultiplier = 10
	oversampleFloor      = 100
)

// oversampledLimit returns topK unless filters are present, in which case it
// returns a limit large enough that metadata filtering afterward still
// leaves a useful candidate pool.
func oversampledLimit(topK int, filters map[string]any) int {
	if len(filters) == 0 {
		return topK
	}
	limit := topK * oversampleMultiplier
	if limit < oversampleFloor {
		limit = oversampleFloor
	}
	return limit
}

// DenseRetriever is the dense vector retrieval strategy: embed the query,
// search a VectorStore for nearest neighbors, filter and truncate.
type DenseRetriever struct {
	Embedder embedding.Embedder
	Store    vectorstore.VectorStore
}

// NewDenseRetriever builds a DenseRetriever over the given collaborators.
func NewDenseRetriever(embedder embedding.Embedder, store vectorstore.VectorStore) *DenseRetriever {
	return &DenseRetriever{Embedder: embedder, Store: store}
}

func (d *DenseRetriever) Retrieve(ctx context.Context, req schema.SearchRequest) ([]schema.Hit, error) {
	queryText := queryparse.ToSemanticText(req.Query)

	vector, err := d.Embedder.EmbedSingle(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("retriever: dense: embed query: %w", err)
	}

	limit := oversampledLimit(req.TopK, req.Filters)
	docs, err := d.Store.Search(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("retriever: dense: search: %w", err)
	}

	hits := make([]schema.Hit, 0, len(docs))
	for _, doc := range docs {
		if len(req.Filters) > 0 && !filter.Match(req.Filters, doc.Metadata) {
			continue
		}
		content := doc.Content
		hits = append(hits, schema.Hit{
			DocID:          doc.ID,
			Content:        &content,
			OriginalText:   &content,
			Score:          doc.Score,
			SourceStrategy: schema.StrategyDense,
			Metadata:       doc.Metadata,
		})
	}

	if req.TopK > 0 && len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return hits, nil
}
