// Package schema defines the data types that flow through the retrieval
// pipeline: Query, SearchRequest, Hit, and SearchResponse.
package schema

// Strategy tags a retrieval strategy requested on a SearchRequest.
type Strategy string

const (
	StrategyDense Strategy = "dense"
	StrategyFTS   Strategy = "fts"
	StrategyGraph Strategy = "graph"
)

// Query is either free text or a mapping from field name to term string.
// Exactly one of Text or Fields is populated; NewTextQuery and
// NewFieldsQuery enforce that invariant at construction.
type Query struct {
	text       string
	fields     map[string]string
	fieldOrder []string
}

// NewTextQuery builds a free-text Query.
func NewTextQuery(text string) Query {
	return Query{text: text}
}

// NewFieldsQuery builds a field->term mapping Query. The order of fields is
// not preserved by the map itself; callers needing deterministic ordering
// should use FieldOrder.
func NewFieldsQuery(fields map[string]string, order []string) Query {
	return Query{fields: fields, fieldOrder: order}
}

// IsFields reports whether the query is a field->term mapping rather than
// free text.
func (q Query) IsFields() bool {
	return q.fields != nil
}

// Text returns the raw free-text value, or "" if the query is a mapping.
func (q Query) Text() string {
	return q.text
}

// Fields returns the field->term mapping, or nil if the query is free text.
func (q Query) Fields() map[string]string {
	return q.fields
}

// FieldOrder returns the iteration order fields were supplied in, used by
// queryparse.ToSemanticText when no "text" key is present.
func (q Query) FieldOrder() []string {
	return q.fieldOrder
}

// SearchRequest is the input to the Orchestrator.
type SearchRequest struct {
	Query Query

	// Strategies is a non-empty ordered sequence drawn from
	// {StrategyDense, StrategyFTS, StrategyGraph}.
	Strategies []Strategy

	FusionEnabled  bool
	RerankEnabled  bool
	DistillEnabled bool

	// TopK is the maximum number of hits returned by Execute. Default 5.
	TopK int

	// Filters is an optional predicate tree, evaluated by the filter
	// package against each Hit's Metadata.
	Filters map[string]any

	// UserContext is an opaque identity record passed through to the
	// FetcherHook and AuditSink. The pipeline never interprets it.
	UserContext any
}

// NewSearchRequest returns a SearchRequest with the documented
// defaults (fusion/rerank/distill enabled, top_k = 5).
func NewSearchRequest(query Query, strategies ...Strategy) SearchRequest {
	return SearchRequest{
		Query:          query,
		Strategies:     strategies,
		FusionEnabled:  true,
		RerankEnabled:  true,
		DistillEnabled: true,
		TopK:           5,
	}
}

// Hit is a single search result carrying identity, scores, text variants,
// and provenance fields.
//
// Invariant: a Hit's DocID is the stable identity across the pipeline; any
// dedup keys on DocID. DistilledText is "" iff Scout did not run or
// filtered out all segments. OriginalText stays nil when content is
// supplied only by the JIT fetcher — fetched text is never copied back
// onto OriginalText or Content.
type Hit struct {
	DocID string

	// Content is the short/display form of the document text, if any.
	Content *string

	// OriginalText is the full document text, if stored. It is nil when
	// the text has not been fetched (deferred / JIT).
	OriginalText *string

	// DistilledText is set by Scout; empty until Scout runs.
	DistilledText string

	Score          float64
	SourceStrategy Strategy
	Metadata       map[string]any

	// SourcePointer is opaque data the FetcherHook uses to locate the
	// full text of this Hit when OriginalText is nil.
	SourcePointer map[string]any

	// ACLs lists identity tokens/roles authorized to trigger a JIT fetch
	// for this Hit's content.
	ACLs []string
}

// Copy returns a copy of h whose Content, OriginalText, Metadata,
// SourcePointer and ACLs are duplicated rather than shared with h; map
// values themselves are copied by assignment. Every pipeline stage must yield fresh
// Hit values rather than mutating its input; Copy is the idiomatic way to
// do that for stages that only change a few fields.
func (h Hit) Copy() Hit {
	cp := h
	if h.Content != nil {
		v := *h.Content
		cp.Content = &v
	}
	if h.OriginalText != nil {
		v := *h.OriginalText
		cp.OriginalText = &v
	}
	if h.Metadata != nil {
		cp.Metadata = make(map[string]any, len(h.Metadata))
		for k, v := range h.Metadata {
			cp.Metadata[k] = v
		}
	}
	if h.SourcePointer != nil {
		cp.SourcePointer = make(map[string]any, len(h.SourcePointer))
		for k, v := range h.SourcePointer {
			cp.SourcePointer[k] = v
		}
	}
	if h.ACLs != nil {
		cp.ACLs = append([]string(nil), h.ACLs...)
	}
	return cp
}

// Document is a unit of stored text with opaque metadata, as accepted by a
// vectorstore.VectorStore. Score is populated only on Search results; Add
// ignores it.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
	Score    float64
}

// SearchResponse is the output of a bounded Execute call.
type SearchResponse struct {
	Hits            []Hit
	TotalFound      int
	ExecutionTimeMs float64
	ProvenanceHash  string
}
