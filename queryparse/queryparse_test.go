package queryparse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreason/retrieval-engine/schema"
)

func TestToSemanticText_FreeText(t *testing.T) {
	q := schema.NewTextQuery("liver failure")
	assert.Equal(t, "liver failure", ToSemanticText(q))
}

func TestToSemanticText_MappingWithTextKey(t *testing.T) {
	q := schema.NewFieldsQuery(map[string]string{
		"text":  "protein x",
		"title": "ignored",
	}, []string{"title", "text"})
	assert.Equal(t, "protein x", ToSemanticText(q))
}

func TestToSemanticText_MappingJoinsInOrder(t *testing.T) {
	q := schema.NewFieldsQuery(map[string]string{
		"title":    "Pandemic",
		"abstract": "Response",
	}, []string{"title", "abstract"})
	assert.Equal(t, "Pandemic Response", ToSemanticText(q))
}

func TestToSparseExpression_EmptyString(t *testing.T) {
	assert.Equal(t, "", ToSparseExpression(schema.NewTextQuery("")))
}

func TestToSparseExpression_Mapping(t *testing.T) {
	q := schema.NewFieldsQuery(map[string]string{
		"title": "Pandemic",
		"year":  "2024",
	}, []string{"title", "year"})
	assert.Equal(t, "title:Pandemic AND year:2024", ToSparseExpression(q))
}

func TestToSparseExpression_UntaggedPassthrough(t *testing.T) {
	q := schema.NewTextQuery("Vaccine OR Immunity")
	assert.Equal(t, "Vaccine OR Immunity", ToSparseExpression(q))
}

func TestToSparseExpression_SimpleTag(t *testing.T) {
	q := schema.NewTextQuery(`Pandemic[Ti]`)
	assert.Equal(t, `title:Pandemic`, ToSparseExpression(q))
}

func TestToSparseExpression_QuotedPhrasePreservesQuotes(t *testing.T) {
	q := schema.NewTextQuery(`"Covid-19"[Ab]`)
	assert.Equal(t, `abstract:"Covid-19"`, ToSparseExpression(q))
}

func TestToSparseExpression_TiabExpands(t *testing.T) {
	q := schema.NewTextQuery(`"Covid-19"[TiAb]`)
	assert.Equal(t, `(title:"Covid-19" OR abstract:"Covid-19")`, ToSparseExpression(q))
}

func TestToSparseExpression_SlashTagExpands(t *testing.T) {
	q := schema.NewTextQuery(`Pandemic[Title/Abstract]`)
	assert.Equal(t, `(title:Pandemic OR abstract:Pandemic)`, ToSparseExpression(q))
}

func TestToSparseExpression_UnknownTagLowercasedPassthrough(t *testing.T) {
	q := schema.NewTextQuery(`Foo[Bogus]`)
	assert.Equal(t, `bogus:Foo`, ToSparseExpression(q))
}

func TestToSparseExpression_MeshTag(t *testing.T) {
	q := schema.NewTextQuery(`"Public Health"[Mesh]`)
	assert.Equal(t, `mesh_terms:"Public Health"`, ToSparseExpression(q))
}

// TestToSparseExpression_ScenarioS2 reproduces spec scenario S2 verbatim.
func TestToSparseExpression_ScenarioS2(t *testing.T) {
	q := schema.NewTextQuery(`(Pandemic[Ti] OR "Covid-19"[TiAb]) AND (Vaccine OR "Public Health"[Mesh])`)
	want := `(title:Pandemic OR (title:"Covid-19" OR abstract:"Covid-19")) AND (Vaccine OR mesh_terms:"Public Health")`
	assert.Equal(t, want, ToSparseExpression(q))
}
