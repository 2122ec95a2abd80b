// Package graph defines the GraphStore collaborator contract and a fixture
// implementation backing the graph retrieval strategy's entity-to-document
// 2-hop expansion.
package graph

import (
	"context"
	"sort"
	"strings"
)

// Node is a single graph vertex: a Protein, Paper, AdverseEvent, or any
// other labeled entity.
type Node struct {
	NodeID     string
	Label      string
	Name       string
	Properties map[string]any
}

// Store is the collaborator contract the graph retrieval strategy depends
// on. Real backends implement this against an actual graph database;
// FixtureStore stands in for tests and local development.
type Store interface {
	// SearchNodes resolves text into candidate start nodes. Substring match
	// on node name is acceptable for mocks; real backends use entity
	// linking.
	SearchNodes(ctx context.Context, text string, limit int) ([]Node, error)

	// Neighbors returns the 1-hop neighbors of nodeID. depth > 1 is not
	// required by any current strategy; implementations may ignore it.
	Neighbors(ctx context.Context, nodeID string, depth int) ([]Node, error)
}

// FixtureStore is a small in-memory knowledge graph: a Protein connected to
// two Papers, one of which mentions an AdverseEvent. It exists to exercise
// the GraphRetriever's 2-hop validity filter without a real graph backend.
type FixtureStore struct {
	nodes map[string]Node
	edges [][2]string
}

// NewFixtureStore returns a FixtureStore seeded with the
// Protein X / Paper A / Paper B / Liver Failure fixture graph:
// protein_x --> paper_a --> liver_failure
// protein_x --> paper_b
func NewFixtureStore() *FixtureStore {
	return &FixtureStore{
		nodes: map[string]Node{
			"protein_x": {
				NodeID:     "protein_x",
				Label:      "Protein",
				Name:       "Protein X",
				Properties: map[string]any{"description": "Target protein"},
			},
			"paper_a": {
				NodeID: "paper_a",
				Label:  "Paper",
				Name:   "Study on Protein X",
				Properties: map[string]any{
					"content": "This paper discusses Protein X and liver failure.",
					"year":    2024,
				},
			},
			"paper_b": {
				NodeID: "paper_b",
				Label:  "Paper",
				Name:   "Another Study",
				Properties: map[string]any{
					"content": "Protein X is safe.",
					"year":    2023,
				},
			},
			"liver_failure": {
				NodeID:     "liver_failure",
				Label:      "AdverseEvent",
				Name:       "Liver Failure",
				Properties: map[string]any{},
			},
		},
		edges: [][2]string{
			{"protein_x", "paper_a"},
			{"protein_x", "paper_b"},
			{"paper_a", "liver_failure"},
		},
	}
}

func (s *FixtureStore) SearchNodes(_ context.Context, text string, limit int) ([]Node, error) {
	lower := strings.ToLower(text)

	// Stable order: iterate insertion-independent map by a fixed key order
	// so results are deterministic across runs.
	keys := make([]string, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var matches []Node
	for _, k := range keys {
		n := s.nodes[k]
		if strings.Contains(strings.ToLower(n.Name), lower) {
			matches = append(matches, n)
		}
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

func (s *FixtureStore) Neighbors(_ context.Context, nodeID string, _ int) ([]Node, error) {
	var out []Node
	for _, e := range s.edges {
		switch nodeID {
		case e[0]:
			if n, ok := s.nodes[e[1]]; ok {
				out = append(out, n)
			}
		case e[1]:
			if n, ok := s.nodes[e[0]]; ok {
				out = append(out, n)
			}
		}
	}
	return out, nil
}
