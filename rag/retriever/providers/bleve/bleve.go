// Package bleve backs the sparse retrieval strategy's FTSStore with an
// in-process full-text index, exercising bleve's query-string DSL and
// From/Size pagination for both bounded and systematic search modes.
package bleve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/coreason/retrieval-engine/schema"
)

// searchableFields are the metadata keys flattened into the index alongside
// content, so PubMed-tagged queries translated to title:/abstract:/
// mesh_terms: clauses by queryparse can actually match.
var searchableFields = []string{"title", "abstract", "mesh_terms"}

// Store is a bleve-backed FTSStore. The index itself holds only the
// searchable text; full documents (content, metadata) are kept in a side
// map so bleve's stored-field configuration never has to round-trip them.
type Store struct {
	mu      sync.RWMutex
	index   bleve.Index
	docs    map[string]schema.Document
	version int64
}

// New creates an in-memory bleve-backed Store.
func New() (*Store, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve: new index: %w", err)
	}
	return &Store{index: idx, docs: make(map[string]schema.Document)}, nil
}

// indexableDoc is the shape fed to bleve for indexing: content plus any
// flattened searchable metadata fields present on the document.
type indexableDoc struct {
	Content    string `json:"content"`
	Title      string `json:"title,omitempty"`
	Abstract   string `json:"abstract,omitempty"`
	MeshTerms  string `json:"mesh_terms,omitempty"`
}

// Add indexes docs for full-text search. Re-adding an existing ID replaces
// it, in both the index and the side document map.
func (s *Store) Add(ctx context.Context, docs []schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	for _, doc := range docs {
		field := indexableDoc{Content: doc.Content}
		if v, ok := doc.Metadata["title"].(string); ok {
			field.Title = v
		}
		if v, ok := doc.Metadata["abstract"].(string); ok {
			field.Abstract = v
		}
		if v, ok := doc.Metadata["mesh_terms"].(string); ok {
			field.MeshTerms = v
		}
		if err := batch.Index(doc.ID, field); err != nil {
			return fmt.Errorf("bleve: index %q: %w", doc.ID, err)
		}
		s.docs[doc.ID] = doc
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("bleve: execute batch: %w", err)
	}
	s.version++
	return nil
}

// Delete removes docs from both the index and the side document map.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
		delete(s.docs, id)
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("bleve: delete batch: %w", err)
	}
	s.version++
	return nil
}

// Search runs expr as a bleve query-string query (supporting the
// field:value, AND/OR, parentheses, and quoted-phrase syntax queryparse
// produces) and returns up to limit rows starting at offset, ranked by
// bleve's relevance score. An empty expr matches every indexed document.
func (s *Store) Search(ctx context.Context, expr string, limit, offset int) ([]schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query bleve.Query
	if strings.TrimSpace(expr) == "" {
		query = bleve.NewMatchAllQuery()
	} else {
		query = bleve.NewQueryStringQuery(expr)
	}

	req := bleve.NewSearchRequestOptions(query, limit, offset, false)
	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve: search: %w", err)
	}

	out := make([]schema.Document, 0, len(result.Hits))
	for _, h := range result.Hits {
		doc, ok := s.docs[h.ID]
		if !ok {
			continue
		}
		doc.Score = h.Score
		out = append(out, doc)
	}
	return out, nil
}

// Version reports the number of batches committed to the index so far,
// standing in for a real FTS backend's table/segment version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}
