// Package queryparse converts a schema.Query into the two representations
// the retrieval strategies need: a semantic text string (dense/graph) and a
// sparse boolean expression with PubMed-style tags translated to
// field-qualified clauses (full-text search).
package queryparse

import (
	"regexp"
	"strings"

	"github.com/coreason/retrieval-engine/schema"
)

// fieldMapping is the canonical PubMed tag table. "tiab" maps to the
// synthetic tag "title_abstract", expanded specially in translate.
var fieldMapping = map[string]string{
	"ti":    "title",
	"title": "title",
	"ab":    "abstract",
	"abstract": "abstract",
	"tiab":  "title_abstract",
	"mh":    "mesh_terms",
	"mesh":  "mesh_terms",
}

// taggedTerm matches a quoted phrase or bareword immediately followed by a
// bracketed tag, e.g. `"Covid-19"[TiAb]` or `Pandemic[Ti]`.
var taggedTerm = regexp.MustCompile(`("[^"]*"|[^\s()]+)\[([^\]]+)\]`)

// ToSemanticText extracts the single semantic string form of q: if q is a
// mapping with a "text" key, use its value; else join all mapping values in
// iteration order; a free-text query is returned unchanged.
func ToSemanticText(q schema.Query) string {
	if !q.IsFields() {
		return q.Text()
	}
	fields := q.Fields()
	if v, ok := fields["text"]; ok {
		return v
	}
	order := q.FieldOrder()
	parts := make([]string, 0, len(order))
	for _, k := range order {
		if v, ok := fields[k]; ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// ToSparseExpression builds the sparse/full-text boolean expression for q.
func ToSparseExpression(q schema.Query) string {
	if q.IsFields() {
		fields := q.Fields()
		order := q.FieldOrder()
		clauses := make([]string, 0, len(order))
		for _, k := range order {
			if v, ok := fields[k]; ok {
				clauses = append(clauses, k+":"+v)
			}
		}
		return strings.Join(clauses, " AND ")
	}
	return translate(q.Text())
}

// translate rewrites PubMed-tagged terms in text into field-qualified
// clauses, leaving operators, parentheses, and untagged tokens unchanged.
func translate(text string) string {
	if text == "" {
		return ""
	}
	return taggedTerm.ReplaceAllStringFunc(text, func(match string) string {
		sub := taggedTerm.FindStringSubmatch(match)
		term, rawTag := sub[1], sub[2]
		return expandTag(term, rawTag)
	})
}

// expandTag renders the field-qualified clause for a single tagged term.
// rawTag may contain multiple slash-separated tags, each independently
// canonicalized, producing a parenthesized OR group when there is more
// than one resulting field.
func expandTag(term, rawTag string) string {
	var fields []string
	for _, tag := range strings.Split(rawTag, "/") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		canon, ok := fieldMapping[tag]
		if !ok {
			fields = append(fields, tag)
			continue
		}
		if canon == "title_abstract" {
			fields = append(fields, "title", "abstract")
			continue
		}
		fields = append(fields, canon)
	}

	if len(fields) == 1 {
		return fields[0] + ":" + term
	}

	clauses := make([]string, len(fields))
	for i, f := range fields {
		clauses[i] = f + ":" + term
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}
