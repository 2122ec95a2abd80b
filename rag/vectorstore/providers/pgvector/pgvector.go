// Package pgvector backs the VectorStore contract with PostgreSQL's pgvector
// extension, via pgx.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coreason/retrieval-engine/config"
	"github.com/coreason/retrieval-engine/rag/vectorstore"
	"github.com/coreason/retrieval-engine/schema"
)

const (
	defaultTable     = "documents"
	defaultDimension = 1536
)

func init() {
	vectorstore.Register("pgvector", func(cfg config.ProviderConfig) (vectorstore.VectorStore, error) {
		return NewFromConfig(cfg)
	})
}

// Pool is the subset of *pgxpool.Pool the Store depends on, so tests can
// substitute a mock implementation.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store is a VectorStore backed by a pgvector-enabled Postgres table.
type Store struct {
	pool      Pool
	table     string
	dimension int
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the table name (default "documents").
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// WithDimension overrides the vector dimensionality (default 1536).
func WithDimension(n int) Option {
	return func(s *Store) { s.dimension = n }
}

// New constructs a Store over an existing pool.
func New(pool Pool, opts ...Option) *Store {
	s := &Store{pool: pool, table: defaultTable, dimension: defaultDimension}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig connects to Postgres using cfg.BaseURL as the connection
// string and constructs a Store.
func NewFromConfig(cfg config.ProviderConfig) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("pgvector: base_url is required")
	}

	pool, err := pgxpool.New(context.Background(), cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}

	opts := []Option{}
	if raw, ok := config.GetOption[float64](cfg, "dimensions"); ok && raw > 0 {
		opts = append(opts, WithDimension(int(raw)))
	}
	if raw, ok := config.GetOption[string](cfg, "table"); ok && raw != "" {
		opts = append(opts, WithTable(raw))
	}

	return New(pool, opts...), nil
}

func (s *Store) Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("pgvector: docs length %d does not match embeddings length %d", len(docs), len(embeddings))
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, embedding, content, metadata) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET embedding = $2, content = $3, metadata = $4`,
		s.table,
	)

	for i, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("pgvector: marshal metadata: %w", err)
		}

		if _, err := s.pool.Exec(ctx, query, doc.ID, vectorLiteral(embeddings[i]), doc.Content, meta); err != nil {
			return fmt.Errorf("pgvector: add: %w", err)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
	cfg := vectorstore.SearchConfig{Strategy: vectorstore.Cosine}
	for _, opt := range opts {
		opt(&cfg)
	}

	op := distanceOperator(cfg.Strategy)
	vec := vectorLiteral(query)

	sql := fmt.Sprintf(
		"SELECT id, content, metadata, (embedding %s $1) AS score FROM %s",
		op, s.table,
	)

	args := []any{vec, k}

	if len(cfg.Filter) > 0 {
		keys := make([]string, 0, len(cfg.Filter))
		for key := range cfg.Filter {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var clauses []string
		argIdx := 3
		for _, key := range keys {
			clauses = append(clauses, fmt.Sprintf("metadata->>$%d = $%d", argIdx, argIdx+1))
			args = append(args, key, cfg.Filter[key])
			argIdx += 2
		}
		sql += " WHERE " + strings.Join(clauses, " AND ")
	}

	sql += fmt.Sprintf(" ORDER BY embedding %s $1 LIMIT $2", op)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	var results []schema.Document
	for rows.Next() {
		var id, content string
		var metaBytes []byte
		var score float64
		if err := rows.Scan(&id, &content, &metaBytes, &score); err != nil {
			return nil, fmt.Errorf("pgvector: search: scan row: %w", err)
		}

		var metadata map[string]any
		if len(metaBytes) > 0 {
			if err := json.Unmarshal(metaBytes, &metadata); err != nil {
				return nil, fmt.Errorf("pgvector: search: unmarshal metadata: %w", err)
			}
		}

		if cfg.Threshold != 0 && score < cfg.Threshold {
			continue
		}

		results = append(results, schema.Document{ID: id, Content: content, Metadata: metadata, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}

	return results, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.table, strings.Join(placeholders, ", "))
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

// EnsureTable creates the pgvector extension and backing table if absent.
func (s *Store) EnsureTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: ensure extension: %w", err)
	}

	createTable := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding VECTOR(%d),
			content TEXT,
			metadata JSONB
		)`,
		s.table, s.dimension,
	)
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: ensure table: %w", err)
	}
	return nil
}

func distanceOperator(strategy vectorstore.SearchStrategy) string {
	switch strategy {
	case vectorstore.DotProduct:
		return "<#>"
	case vectorstore.Euclidean:
		return "<->"
	default:
		return "<=>"
	}
}

func vectorLiteral(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
