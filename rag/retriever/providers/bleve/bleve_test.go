package bleve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreason/retrieval-engine/schema"
)

func TestStore_AddAndSearch(t *testing.T) {
	store, err := New()
	require.NoError(t, err)

	err = store.Add(context.Background(), []schema.Document{
		{ID: "1", Content: "aspirin reduces fever", Metadata: map[string]any{"title": "Aspirin Study"}},
		{ID: "2", Content: "liver failure case report", Metadata: map[string]any{"title": "Liver Case"}},
	})
	require.NoError(t, err)

	docs, err := store.Search(context.Background(), "fever", 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0].ID)
	assert.Greater(t, docs[0].Score, 0.0)
}

func TestStore_Search_FieldQualified(t *testing.T) {
	store, err := New()
	require.NoError(t, err)

	err = store.Add(context.Background(), []schema.Document{
		{ID: "1", Content: "irrelevant body", Metadata: map[string]any{"title": "Pandemic Response"}},
		{ID: "2", Content: "irrelevant body", Metadata: map[string]any{"title": "Unrelated"}},
	})
	require.NoError(t, err)

	docs, err := store.Search(context.Background(), "title:Pandemic", 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0].ID)
}

func TestStore_Search_Pagination(t *testing.T) {
	store, err := New()
	require.NoError(t, err)

	docs := make([]schema.Document, 5)
	for i := range docs {
		docs[i] = schema.Document{ID: string(rune('a' + i)), Content: "match"}
	}
	require.NoError(t, store.Add(context.Background(), docs))

	page1, err := store.Search(context.Background(), "match", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := store.Search(context.Background(), "match", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	page3, err := store.Search(context.Background(), "match", 2, 4)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestStore_Search_EmptyExprMatchesAll(t *testing.T) {
	store, err := New()
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), []schema.Document{
		{ID: "1", Content: "a"},
		{ID: "2", Content: "b"},
	}))

	docs, err := store.Search(context.Background(), "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestStore_Delete(t *testing.T) {
	store, err := New()
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), []schema.Document{
		{ID: "1", Content: "match"},
	}))

	require.NoError(t, store.Delete(context.Background(), []string{"1"}))

	docs, err := store.Search(context.Background(), "match", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_Version(t *testing.T) {
	store, err := New()
	require.NoError(t, err)

	v, err := store.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, store.Add(context.Background(), []schema.Document{{ID: "1", Content: "x"}}))
	v, err = store.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}
