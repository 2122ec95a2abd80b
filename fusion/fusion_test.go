package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreason/retrieval-engine/schema"
)

func hits(ids ...string) []schema.Hit {
	out := make([]schema.Hit, len(ids))
	for i, id := range ids {
		out[i] = schema.Hit{DocID: id}
	}
	return out
}

func docIDs(in []schema.Hit) []string {
	out := make([]string, len(in))
	for i, h := range in {
		out[i] = h.DocID
	}
	return out
}

// TestFuse_ScenarioS1 reproduces spec scenario S1 exactly.
func TestFuse_ScenarioS1(t *testing.T) {
	a := hits("1", "2", "3")
	b := hits("3", "2", "4")

	out := New(1).Fuse([][]schema.Hit{a, b})

	require.Len(t, out, 4)
	assert.Equal(t, []string{"3", "2", "1", "4"}, docIDs(out))

	want := map[string]float64{
		"3": 0.75,
		"2": 0.666666666666,
		"1": 0.5,
		"4": 0.25,
	}
	byID := make(map[string]schema.Hit, len(out))
	for _, h := range out {
		byID[h.DocID] = h
	}
	assert.InDelta(t, want["3"], byID["3"].Score, 1e-6)
	assert.InDelta(t, want["2"], byID["2"].Score, 1e-6)
	assert.InDelta(t, want["1"], byID["1"].Score, 1e-6)
	assert.InDelta(t, want["4"], byID["4"].Score, 1e-6)
}

func TestFuse_EmptyInput(t *testing.T) {
	assert.Empty(t, New(60).Fuse(nil))
	assert.Empty(t, New(60).Fuse([][]schema.Hit{{}, {}}))
}

func TestFuse_Monotonicity(t *testing.T) {
	// "1" appears in both lists, "2" only in the first: "1" must score
	// strictly higher.
	a := hits("1", "2")
	b := hits("1")

	out := New(60).Fuse([][]schema.Hit{a, b})
	byID := make(map[string]schema.Hit, len(out))
	for _, h := range out {
		byID[h.DocID] = h
	}
	assert.Greater(t, byID["1"].Score, byID["2"].Score)
}

func TestFuse_StableTiesOnFirstAppearance(t *testing.T) {
	// Both docs get identical RRF contribution (same rank in lists of
	// equal size with no overlap), so order must follow first appearance.
	a := hits("x")
	b := hits("y")

	out := New(60).Fuse([][]schema.Hit{a, b})
	assert.Equal(t, []string{"x", "y"}, docIDs(out))
}

func TestFuse_DedupOnDocID(t *testing.T) {
	a := hits("1", "2")
	b := hits("2", "1")

	out := New(60).Fuse([][]schema.Hit{a, b})
	assert.Len(t, out, 2)
}

func TestFuse_DefaultK(t *testing.T) {
	e := New(0)
	assert.Equal(t, DefaultK, e.k)
}

func TestFuse_RetainsFirstOccurrenceHit(t *testing.T) {
	content1 := "from list a"
	content2 := "from list b"
	a := []schema.Hit{{DocID: "1", Content: &content1}}
	b := []schema.Hit{{DocID: "1", Content: &content2}}

	out := New(60).Fuse([][]schema.Hit{a, b})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Content)
	assert.Equal(t, "from list a", *out[0].Content)
}
