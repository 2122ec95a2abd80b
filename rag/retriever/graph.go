package retriever

import (
	"context"
	"fmt"
	"sort"

	graphstore "github.com/coreason/retrieval-engine/graph"
	"github.com/coreason/retrieval-engine/o11y"
	"github.com/coreason/retrieval-engine/queryparse"
	"github.com/coreason/retrieval-engine/schema"
)

// GraphRetriever is the entity-to-document retrieval strategy: resolve the
// query into start nodes, expand one hop to candidate Paper nodes, and
// retain only Papers that connect to at least one AdverseEvent.
type GraphRetriever struct {
	Store graphstore.Store
}

// NewGraphRetriever builds a GraphRetriever over the given GraphStore.
func NewGraphRetriever(store graphstore.Store) *GraphRetriever {
	return &GraphRetriever{Store: store}
}

func (g *GraphRetriever) Retrieve(ctx context.Context, req schema.SearchRequest) ([]schema.Hit, error) {
	queryText := queryparse.ToSemanticText(req.Query)

	startNodes, err := g.Store.SearchNodes(ctx, queryText, 0)
	if err != nil {
		return nil, fmt.Errorf("retriever: graph: search nodes: %w", err)
	}
	if len(startNodes) == 0 {
		o11y.FromContext(ctx).Info(ctx, "graph retriever found no start nodes", "query", queryText)
		return nil, nil
	}

	var hits []schema.Hit
	seen := make(map[string]bool)

	for _, node := range startNodes {
		neighbors, err := g.Store.Neighbors(ctx, node.NodeID, 1)
		if err != nil {
			return nil, fmt.Errorf("retriever: graph: neighbors of %q: %w", node.NodeID, err)
		}
		for _, candidate := range neighbors {
			if candidate.Label != "Paper" || seen[candidate.NodeID] {
				continue
			}
			hit, ok, err := g.validatedPaperHit(ctx, candidate)
			if err != nil {
				return nil, err
			}
			if ok {
				seen[candidate.NodeID] = true
				hits = append(hits, hit)
			}
		}
	}

	if req.TopK > 0 && len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return hits, nil
}

// validatedPaperHit performs the 2nd hop from a candidate Paper node and
// returns a Hit iff the paper connects to at least one AdverseEvent.
func (g *GraphRetriever) validatedPaperHit(ctx context.Context, paper graphstore.Node) (schema.Hit, bool, error) {
	neighbors, err := g.Store.Neighbors(ctx, paper.NodeID, 1)
	if err != nil {
		return schema.Hit{}, false, fmt.Errorf("retriever: graph: neighbors of %q: %w", paper.NodeID, err)
	}

	adverseEvents := make(map[string]bool)
	for _, n := range neighbors {
		if n.Label == "AdverseEvent" {
			adverseEvents[n.Name] = true
		}
	}
	if len(adverseEvents) == 0 {
		return schema.Hit{}, false, nil
	}

	names := make([]string, 0, len(adverseEvents))
	for name := range adverseEvents {
		names = append(names, name)
	}
	sort.Strings(names)

	content, _ := paper.Properties["content"].(string)

	metadata := make(map[string]any, len(paper.Properties)+1)
	for k, v := range paper.Properties {
		metadata[k] = v
	}
	metadata["connected_adverse_events"] = names

	return schema.Hit{
		DocID:          paper.NodeID,
		Content:        &content,
		OriginalText:   &content,
		Score:          1.0,
		SourceStrategy: schema.StrategyGraph,
		Metadata:       metadata,
	}, true, nil
}
