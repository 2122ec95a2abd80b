// Package httpserver exposes the Orchestrator over HTTP: POST /search (bounded,
// JSON), POST /search/systematic (unbounded, NDJSON streaming), GET /health,
// and GET /metrics (Prometheus scrape target).
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coreason/retrieval-engine/core"
	"github.com/coreason/retrieval-engine/o11y"
	"github.com/coreason/retrieval-engine/pipeline"
	"github.com/coreason/retrieval-engine/schema"
)

// Executor is the subset of *pipeline.Orchestrator the HTTP handlers
// depend on, so tests can substitute a fake.
type Executor interface {
	Execute(ctx context.Context, req schema.SearchRequest) (schema.SearchResponse, error)
	ExecuteSystematic(ctx context.Context, req schema.SearchRequest) func(yield func(schema.Hit, error) bool)
}

// executorAdapter narrows *pipeline.Orchestrator's iter.Seq2 return type down
// to the plain function-value shape Executor declares, since this package
// does not otherwise need the "iter" import.
type executorAdapter struct {
	orch *pipeline.Orchestrator
}

func (a executorAdapter) Execute(ctx context.Context, req schema.SearchRequest) (schema.SearchResponse, error) {
	return a.orch.Execute(ctx, req)
}

func (a executorAdapter) ExecuteSystematic(ctx context.Context, req schema.SearchRequest) func(yield func(schema.Hit, error) bool) {
	return a.orch.ExecuteSystematic(ctx, req)
}

// NewExecutor adapts a *pipeline.Orchestrator to Executor.
func NewExecutor(orch *pipeline.Orchestrator) Executor {
	return executorAdapter{orch: orch}
}

// Server wires the search engine onto an HTTP router.
type Server struct {
	router   *mux.Router
	engine   Executor
	validate *validator.Validate
	health   *o11y.HealthRegistry
	server   *http.Server
}

// New builds a Server routing to engine, with health checked via registry
// (pass nil for no health dependencies).
func New(engine Executor, health *o11y.HealthRegistry) *Server {
	if health == nil {
		health = o11y.NewHealthRegistry()
	}
	s := &Server{
		router:   mux.NewRouter(),
		engine:   engine,
		validate: validator.New(),
		health:   health,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	s.router.HandleFunc("/search/systematic", s.handleSearchSystematic).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the underlying http.Handler for use with httptest or a
// custom http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts serving on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // systematic search streams may run long
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// searchRequestDTO is the wire shape of a SearchRequest. Query is either
// free text (text) or a field->term mapping (fields, with field_order for
// deterministic iteration); when fields is non-nil it is used and text is
// ignored.
type searchRequestDTO struct {
	Text           string            `json:"text"`
	Fields         map[string]string `json:"fields"`
	FieldOrder     []string          `json:"field_order"`
	Strategies     []string          `json:"strategies" validate:"required,min=1"`
	FusionEnabled  *bool             `json:"fusion_enabled"`
	RerankEnabled  *bool             `json:"rerank_enabled"`
	DistillEnabled *bool             `json:"distill_enabled"`
	TopK           int               `json:"top_k" validate:"required,min=1"`
	Filters        map[string]any    `json:"filters"`
	UserContext    any               `json:"user_context"`
}

func (d searchRequestDTO) toSearchRequest() schema.SearchRequest {
	var query schema.Query
	if d.Fields != nil {
		query = schema.NewFieldsQuery(d.Fields, d.FieldOrder)
	} else {
		query = schema.NewTextQuery(d.Text)
	}

	strategies := make([]schema.Strategy, len(d.Strategies))
	for i, s := range d.Strategies {
		strategies[i] = schema.Strategy(s)
	}

	req := schema.NewSearchRequest(query, strategies...)
	req.TopK = d.TopK
	req.Filters = d.Filters
	req.UserContext = d.UserContext
	if d.FusionEnabled != nil {
		req.FusionEnabled = *d.FusionEnabled
	}
	if d.RerankEnabled != nil {
		req.RerankEnabled = *d.RerankEnabled
	}
	if d.DistillEnabled != nil {
		req.DistillEnabled = *d.DistillEnabled
	}
	return req
}

// hitDTO is the wire shape of a schema.Hit.
type hitDTO struct {
	DocID          string         `json:"doc_id"`
	Content        *string        `json:"content,omitempty"`
	OriginalText   *string        `json:"original_text,omitempty"`
	DistilledText  string         `json:"distilled_text,omitempty"`
	Score          float64        `json:"score"`
	SourceStrategy string         `json:"source_strategy"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func hitToDTO(h schema.Hit) hitDTO {
	return hitDTO{
		DocID:          h.DocID,
		Content:        h.Content,
		OriginalText:   h.OriginalText,
		DistilledText:  h.DistilledText,
		Score:          h.Score,
		SourceStrategy: string(h.SourceStrategy),
		Metadata:       h.Metadata,
	}
}

type searchResponseDTO struct {
	Hits            []hitDTO `json:"hits"`
	TotalFound      int      `json:"total_found"`
	ExecutionTimeMs float64  `json:"execution_time_ms"`
	ProvenanceHash  string   `json:"provenance_hash"`
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (schema.SearchRequest, bool) {
	var dto searchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, core.NewError("httpserver.decode", core.ErrValidation, "malformed request body", err))
		return schema.SearchRequest{}, false
	}
	if err := s.validate.Struct(dto); err != nil {
		writeError(w, http.StatusBadRequest, core.NewError("httpserver.decode", core.ErrValidation, err.Error(), nil))
		return schema.SearchRequest{}, false
	}
	return dto.toSearchRequest(), true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.engine.Execute(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtoHits := make([]hitDTO, len(resp.Hits))
	for i, h := range resp.Hits {
		dtoHits[i] = hitToDTO(h)
	}

	writeJSON(w, http.StatusOK, searchResponseDTO{
		Hits:            dtoHits,
		TotalFound:      resp.TotalFound,
		ExecutionTimeMs: resp.ExecutionTimeMs,
		ProvenanceHash:  resp.ProvenanceHash,
	})
}

func (s *Server) handleSearchSystematic(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")

	enc := json.NewEncoder(w)
	flusher, canFlush := w.(http.Flusher)

	for hit, err := range s.engine.ExecuteSystematic(r.Context(), req) {
		if err != nil {
			o11y.FromContext(r.Context()).Error(r.Context(), "systematic search stream failed", "error", err)
			return
		}
		if encErr := enc.Encode(hitToDTO(hit)); encErr != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := s.health.CheckAll(r.Context())

	status := "ready"
	for _, res := range results {
		if res.Status != o11y.Healthy {
			status = "degraded"
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"checks": results,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, err error) {
	writeJSON(w, statusCode, map[string]any{"error": err.Error()})
}

func writeEngineError(w http.ResponseWriter, err error) {
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr.Code == core.ErrValidation {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeError(w, http.StatusInternalServerError, fmt.Errorf("search failed: %w", err))
}
