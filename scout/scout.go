// Package scout implements the Distiller: per hit, it resolves the text to
// work with (stored or JIT-fetched), segments it into sentences, scores
// segments against the query, and reconstructs a filtered distilled_text.
package scout

import (
	"context"
	"regexp"
	"strings"

	"github.com/coreason/retrieval-engine/core"
	"github.com/coreason/retrieval-engine/queryparse"
	"github.com/coreason/retrieval-engine/schema"
)

// DefaultThreshold is the score a segment must strictly exceed to be kept.
const DefaultThreshold = 0.4

// FetcherHook resolves the full text for a hit whose original_text is
// absent, given its source pointer and the caller's opaque user context.
// A nil return means no content was available.
type FetcherHook func(ctx context.Context, sourcePointer map[string]any, userContext any) (*string, error)

// sentenceBoundary splits on ., !, or ? followed by whitespace, keeping the
// terminator with the preceding segment.
var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

// Distiller re-scores and filters hit text against the query.
type Distiller struct {
	threshold float64
	fetch     FetcherHook
}

// New returns a Distiller with the given threshold (use DefaultThreshold
// when unconfigured) and an optional FetcherHook for JIT content.
func New(threshold float64, fetch FetcherHook) *Distiller {
	return &Distiller{threshold: threshold, fetch: fetch}
}

// Distill produces a fresh copy of each hit with distilled_text populated.
// Fetcher failures abort the whole pass (the error from the offending hit
// propagates to the caller per the fetcher error-handling contract).
func (d *Distiller) Distill(ctx context.Context, query schema.Query, hits []schema.Hit, userContext any) ([]schema.Hit, error) {
	terms := termSet(queryparse.ToSemanticText(query))

	out := make([]schema.Hit, len(hits))
	for i, h := range hits {
		cp, err := d.distillOne(ctx, h, terms, userContext)
		if err != nil {
			return nil, err
		}
		out[i] = cp
	}
	return out, nil
}

func (d *Distiller) distillOne(ctx context.Context, h schema.Hit, terms map[string]struct{}, userContext any) (schema.Hit, error) {
	cp := h.Copy()

	text, err := d.resolveText(ctx, h, userContext)
	if err != nil {
		return schema.Hit{}, core.NewError("scout.Distill", core.ErrFetcher, "fetcher hook failed", err)
	}
	if text == "" {
		cp.DistilledText = ""
		return cp, nil
	}

	var kept []string
	for _, seg := range segment(text) {
		if score(seg, terms) > d.threshold {
			kept = append(kept, seg)
		}
	}
	cp.DistilledText = strings.Join(kept, " ")
	return cp, nil
}

// resolveText implements the priority order: stored original_text first,
// else a JIT fetch. Fetched text is intentionally not assigned back onto
// cp.OriginalText/cp.Content anywhere in this package — it exists only as
// this local return value, satisfying the ephemerality invariant.
func (d *Distiller) resolveText(ctx context.Context, h schema.Hit, userContext any) (string, error) {
	if h.OriginalText != nil && *h.OriginalText != "" {
		return *h.OriginalText, nil
	}
	if d.fetch == nil || h.SourcePointer == nil {
		return "", nil
	}
	fetched, err := d.fetch(ctx, sourcePointerWithACLs(h), userContext)
	if err != nil {
		return "", err
	}
	if fetched == nil {
		return "", nil
	}
	return *fetched, nil
}

// sourcePointerWithACLs returns h.SourcePointer unchanged when h carries no
// ACLs, otherwise a copy with the hit's ACLs attached under the "acls" key
// so a FetcherHook wrapper (e.g. auth.GuardFetcher) can gate the fetch
// against them without scout needing to know about authorization itself.
func sourcePointerWithACLs(h schema.Hit) map[string]any {
	if len(h.ACLs) == 0 {
		return h.SourcePointer
	}
	ptr := make(map[string]any, len(h.SourcePointer)+1)
	for k, v := range h.SourcePointer {
		ptr[k] = v
	}
	ptr["acls"] = h.ACLs
	return ptr
}

// segment splits text on sentence terminators followed by whitespace,
// preserving terminator-free segments unchanged.
func segment(text string) []string {
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// score is 1.0 if any query term occurs as a substring of the lower-cased
// segment, else 0.0.
func score(segment string, terms map[string]struct{}) float64 {
	lower := strings.ToLower(segment)
	for t := range terms {
		if t == "" {
			continue
		}
		if strings.Contains(lower, t) {
			return 1.0
		}
	}
	return 0.0
}

// termSet lower-cases and whitespace-splits text into a set of terms.
func termSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
