// Package pipeline implements the Orchestrator: the two execution modes
// that drive strategy dispatch, fusion, re-ranking, and distillation over a
// SearchRequest — a bounded, concurrent Execute and an unbounded, sequential
// and audited ExecuteSystematic.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/coreason/retrieval-engine/audit"
	"github.com/coreason/retrieval-engine/core"
	"github.com/coreason/retrieval-engine/fusion"
	"github.com/coreason/retrieval-engine/o11y"
	"github.com/coreason/retrieval-engine/queryparse"
	"github.com/coreason/retrieval-engine/rag/retriever"
	"github.com/coreason/retrieval-engine/rerank"
	"github.com/coreason/retrieval-engine/schema"
	"github.com/coreason/retrieval-engine/scout"
)

// rerankWindow is the fixed number of top fused candidates passed to the
// Reranker ("Top 50 results from Fusion" is the documented input contract).
const rerankWindow = 50

// versionedRetriever is implemented by retriever.SparseRetriever; it lets
// the orchestrator resolve a snapshot id for systematic-search audit events
// without depending on the concrete sparse package.
type versionedRetriever interface {
	Version(ctx context.Context) (int64, error)
}

// Orchestrator drives the retrieval pipeline: it dispatches strategies,
// fuses their hits, re-ranks, distills, and computes a provenance hash for
// Execute, or brackets a sequential streamed run with audit events for
// ExecuteSystematic.
type Orchestrator struct {
	Retrievers retriever.Registry
	Fusion     *fusion.Engine
	Reranker   rerank.Reranker
	Scout      *scout.Distiller
	Audit      audit.Sink
}

// New constructs an Orchestrator from its collaborators.
func New(retrievers retriever.Registry, fusionEngine *fusion.Engine, reranker rerank.Reranker, distiller *scout.Distiller, sink audit.Sink) *Orchestrator {
	return &Orchestrator{
		Retrievers: retrievers,
		Fusion:     fusionEngine,
		Reranker:   reranker,
		Scout:      distiller,
		Audit:      sink,
	}
}

func validate(req schema.SearchRequest) error {
	if len(req.Strategies) == 0 {
		return core.NewError("pipeline.Execute", core.ErrValidation, "strategies must not be empty", nil)
	}
	if req.TopK <= 0 {
		return core.NewError("pipeline.Execute", core.ErrValidation, "top_k must be positive", nil)
	}
	return nil
}

// Execute runs the bounded pipeline: dispatch every requested strategy
// concurrently, fuse (or concatenate+dedup), re-rank, distill, and return a
// SearchResponse with a provenance hash over the final hit order. A single
// failing strategy is logged and excluded; it never reduces the
// contribution of its peers. The only error Execute returns is a request
// validation failure, or a Reranker/Scout backend failure (neither is
// isolated the way retriever failures are).
func (o *Orchestrator) Execute(ctx context.Context, req schema.SearchRequest) (schema.SearchResponse, error) {
	start := time.Now()
	ctx, span := o11y.StartSpan(ctx, "pipeline.Execute", o11y.Attrs{o11y.AttrTopK: req.TopK})
	defer span.End()

	if err := validate(req); err != nil {
		span.RecordError(err)
		return schema.SearchResponse{}, err
	}

	perStrategy := o.dispatch(ctx, req)

	var lists [][]schema.Hit
	for _, hits := range perStrategy {
		if len(hits) > 0 {
			lists = append(lists, hits)
		}
	}

	var fused []schema.Hit
	if req.FusionEnabled && len(lists) > 0 {
		fused = o.Fusion.Fuse(lists)
	} else {
		fused = concatDedup(lists)
	}
	o11y.FusionCandidates(ctx, len(fused))

	candidates := fused
	if len(candidates) > rerankWindow {
		candidates = candidates[:rerankWindow]
	}

	reranked := fused
	if req.RerankEnabled && len(candidates) > 0 {
		var err error
		reranked, err = o.Reranker.Rerank(ctx, req.Query, candidates, req.TopK)
		if err != nil {
			span.RecordError(err)
			return schema.SearchResponse{}, fmt.Errorf("pipeline: rerank: %w", err)
		}
	} else {
		reranked = truncate(fused, req.TopK)
	}

	final := reranked
	if req.DistillEnabled && len(reranked) > 0 {
		var err error
		final, err = o.Scout.Distill(ctx, req.Query, reranked, req.UserContext)
		if err != nil {
			span.RecordError(err)
			return schema.SearchResponse{}, err
		}
	}

	ids := make([]string, len(final))
	for i, h := range final {
		ids[i] = h.DocID
	}

	durationMs := float64(time.Since(start)) / float64(time.Millisecond)
	o11y.OperationDuration(ctx, "execute", durationMs)
	span.SetAttributes(o11y.Attrs{o11y.AttrHitCount: len(final)})

	return schema.SearchResponse{
		Hits:            final,
		TotalFound:      len(final),
		ExecutionTimeMs: durationMs,
		ProvenanceHash:  audit.ProvenanceHash(queryparse.ToSemanticText(req.Query), ids),
	}, nil
}

// dispatch fans req out to every requested strategy concurrently and
// returns their hit lists indexed by request order (not completion order),
// so downstream fusion input is deterministic regardless of which strategy
// finishes first. An unknown strategy or a failing strategy yields a nil
// slice at its index rather than aborting its peers.
func (o *Orchestrator) dispatch(ctx context.Context, req schema.SearchRequest) [][]schema.Hit {
	results := make([][]schema.Hit, len(req.Strategies))

	var wg sync.WaitGroup
	wg.Add(len(req.Strategies))
	for i, strategy := range req.Strategies {
		go func(i int, strategy schema.Strategy) {
			defer wg.Done()

			ret, ok := o.Retrievers.Get(strategy)
			if !ok {
				o11y.FromContext(ctx).Warn(ctx, "unknown retrieval strategy", "strategy", string(strategy))
				return
			}
			hits, err := ret.Retrieve(ctx, req)
			if err != nil {
				o11y.FromContext(ctx).Error(ctx, "retrieval strategy failed", "strategy", string(strategy), "error", err)
				o11y.StrategyError(ctx, string(strategy))
				return
			}
			o11y.HitCount(ctx, string(strategy), len(hits))
			results[i] = hits
		}(i, strategy)
	}
	wg.Wait()

	return results
}

// concatDedup flattens lists in order and keeps only the first occurrence
// of each doc_id, implementing the fusion_enabled=false fallback.
func concatDedup(lists [][]schema.Hit) []schema.Hit {
	seen := make(map[string]bool)
	var out []schema.Hit
	for _, list := range lists {
		for _, h := range list {
			if seen[h.DocID] {
				continue
			}
			seen[h.DocID] = true
			out = append(out, h)
		}
	}
	return out
}

func truncate(hits []schema.Hit, topK int) []schema.Hit {
	if topK < 0 || topK > len(hits) {
		return hits
	}
	return hits[:topK]
}

// ExecuteSystematic runs the unbounded, audited streaming pipeline: it
// resolves a reproducibility snapshot id from the sparse backend, brackets
// the run with START/COMPLETE audit events, and sequentially yields hits
// from each requested strategy (fts is paginated in full; dense falls back
// to its bounded Retrieve with a warning; graph is not supported in
// systematic mode and is skipped). Re-ranking and distillation never run in
// this mode.
//
// An audit-sink failure on the START event aborts before any retrieval
// happens. A backend failure mid-stream still triggers the COMPLETE event
// (with the count accumulated so far) before the error is yielded. If the
// consumer stops ranging over the sequence early, COMPLETE still fires, but
// nothing further is yielded afterward — Go's iterator contract forbids
// calling yield again once it has returned false.
func (o *Orchestrator) ExecuteSystematic(ctx context.Context, req schema.SearchRequest) iter.Seq2[schema.Hit, error] {
	return func(yield func(schema.Hit, error) bool) {
		if err := validate(req); err != nil {
			yield(schema.Hit{}, err)
			return
		}

		snapshotID := o.sparseSnapshotID(ctx)
		strategies := make([]string, len(req.Strategies))
		for i, s := range req.Strategies {
			strategies[i] = string(s)
		}

		startPayload := map[string]any{
			"query":       queryparse.ToSemanticText(req.Query),
			"strategies":  strategies,
			"snapshot_id": snapshotID,
		}
		if err := o.Audit.Log(ctx, audit.EventSystematicSearchStart, startPayload); err != nil {
			yield(schema.Hit{}, core.NewError("pipeline.ExecuteSystematic", core.ErrAudit, "audit start failed", err))
			return
		}

		count, backendErr, stopped := o.streamStrategies(ctx, req, yield)

		completeErr := o.Audit.Log(ctx, audit.EventSystematicSearchComplete, map[string]any{"total_found": count})

		if stopped {
			return
		}
		if completeErr != nil {
			yield(schema.Hit{}, core.NewError("pipeline.ExecuteSystematic", core.ErrAudit, "audit complete failed", completeErr))
			return
		}
		if backendErr != nil {
			yield(schema.Hit{}, backendErr)
		}
	}
}

// sparseSnapshotID resolves the sparse backend's table version for
// inclusion in the START audit event, or -1 if the sparse retriever is
// unconfigured or doesn't expose a version.
func (o *Orchestrator) sparseSnapshotID(ctx context.Context) int64 {
	v, ok := o.Retrievers.Sparse.(versionedRetriever)
	if !ok {
		return -1
	}
	id, err := v.Version(ctx)
	if err != nil {
		return -1
	}
	return id
}

// streamStrategies sequentially iterates each requested strategy, yielding
// hits as they're produced. count is incremented only after yield returns
// true, so a hit the consumer never finishes receiving (an early break mid-
// delivery) is not counted. It returns the number of hits successfully
// delivered, the first backend error encountered (if any), and whether the
// consumer stopped ranging early.
func (o *Orchestrator) streamStrategies(ctx context.Context, req schema.SearchRequest, yield func(schema.Hit, error) bool) (count int, backendErr error, stopped bool) {
	for _, strategy := range req.Strategies {
		switch strategy {
		case schema.StrategyFTS:
			sys, ok := o.Retrievers.Sparse.(retriever.SystematicRetriever)
			if !ok {
				continue
			}
			for hit, err := range sys.RetrieveSystematic(ctx, req) {
				if err != nil {
					return count, fmt.Errorf("pipeline: systematic fts: %w", err), false
				}
				if !yield(hit, nil) {
					return count, nil, true
				}
				count++
			}

		case schema.StrategyDense:
			o11y.FromContext(ctx).Warn(ctx, "dense strategy used in systematic mode; falling back to bounded retrieve")
			ret, ok := o.Retrievers.Get(schema.StrategyDense)
			if !ok {
				continue
			}
			hits, err := ret.Retrieve(ctx, req)
			if err != nil {
				return count, fmt.Errorf("pipeline: systematic dense fallback: %w", err), false
			}
			for _, hit := range hits {
				if !yield(hit, nil) {
					return count, nil, true
				}
				count++
			}

		default:
			o11y.FromContext(ctx).Info(ctx, "strategy not supported in systematic mode", "strategy", string(strategy))
		}
	}
	return count, nil, false
}
