package retriever

import (
	"context"
	"fmt"
	"iter"

	"github.com/coreason/retrieval-engine/filter"
	"github.com/coreason/retrieval-engine/queryparse"
	"github.com/coreason/retrieval-engine/schema"
)

// defaultSystematicBatchSize is the page size RetrieveSystematic requests
// from the backend per round-trip.
const defaultSystematicBatchSize = 1000

// FTSStore is the full-text search collaborator the sparse retrieval
// strategy depends on. Index creation is assumed out-of-band; a missing
// index is a fatal backend error, not something FTSStore recovers from.
type FTSStore interface {
	// Search runs expr against the index and returns up to limit rows
	// starting at offset, ranked by the backend's relevance score.
	Search(ctx context.Context, expr string, limit, offset int) ([]schema.Document, error)

	// Version reports the backend's current table/index version, for
	// inclusion in systematic-search audit snapshots. Backends that don't
	// track a version return -1.
	Version(ctx context.Context) (int64, error)
}

// SparseRetriever is the sparse/boolean full-text retrieval strategy. It
// supports both a bounded top_k Retrieve and an unbounded, paginated
// RetrieveSystematic stream over the same backend.
type SparseRetriever struct {
	Store     FTSStore
	BatchSize int
}

// NewSparseRetriever builds a SparseRetriever over store with the default
// systematic batch size of 1000.
func NewSparseRetriever(store FTSStore) *SparseRetriever {
	return &SparseRetriever{Store: store, BatchSize: defaultSystematicBatchSize}
}

func (s *SparseRetriever) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return defaultSystematicBatchSize
}

// Version reports the backend's table version, for audit snapshotting.
func (s *SparseRetriever) Version(ctx context.Context) (int64, error) {
	return s.Store.Version(ctx)
}

func (s *SparseRetriever) Retrieve(ctx context.Context, req schema.SearchRequest) ([]schema.Hit, error) {
	expr := queryparse.ToSparseExpression(req.Query)

	limit := oversampledLimit(req.TopK, req.Filters)
	docs, err := s.Store.Search(ctx, expr, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("retriever: sparse: search: %w", err)
	}

	hits := make([]schema.Hit, 0, len(docs))
	for _, doc := range docs {
		if len(req.Filters) > 0 && !filter.Match(req.Filters, doc.Metadata) {
			continue
		}
		hits = append(hits, toHit(doc))
	}

	if req.TopK > 0 && len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return hits, nil
}

// RetrieveSystematic pages through every matching row in fixed-size
// batches, yielding each row that passes req.Filters. Pagination is
// stateless (limit, offset) over the backend: each page is requested fresh,
// and the stream terminates as soon as a page returns fewer rows than the
// batch size. A backend error is yielded once and ends the sequence.
func (s *SparseRetriever) RetrieveSystematic(ctx context.Context, req schema.SearchRequest) iter.Seq2[schema.Hit, error] {
	expr := queryparse.ToSparseExpression(req.Query)
	batchSize := s.batchSize()

	return func(yield func(schema.Hit, error) bool) {
		offset := 0
		for {
			batch, err := s.Store.Search(ctx, expr, batchSize, offset)
			if err != nil {
				yield(schema.Hit{}, fmt.Errorf("retriever: sparse: search: %w", err))
				return
			}
			if len(batch) == 0 {
				return
			}

			for _, doc := range batch {
				if len(req.Filters) > 0 && !filter.Match(req.Filters, doc.Metadata) {
					continue
				}
				if !yield(toHit(doc), nil) {
					return
				}
			}

			if len(batch) < batchSize {
				return
			}
			offset += batchSize
		}
	}
}

func toHit(doc schema.Document) schema.Hit {
	content := doc.Content
	return schema.Hit{
		DocID:          doc.ID,
		Content:        &content,
		OriginalText:   &content,
		Score:          doc.Score,
		SourceStrategy: schema.StrategyFTS,
		Metadata:       doc.Metadata,
	}
}
