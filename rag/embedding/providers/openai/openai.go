// Package openai backs the Embedder contract with OpenAI's embeddings API
// via the go-openai client.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/coreason/retrieval-engine/config"
	"github.com/coreason/retrieval-engine/rag/embedding"
)

const defaultModel = "text-embedding-3-small"
const defaultDimensions = 1536

func init() {
	embedding.Register("openai", func(cfg config.ProviderConfig) (embedding.Embedder, error) {
		return New(cfg)
	})
}

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client *goopenai.Client
	model  string
	dims   int
}

// New constructs an Embedder from provider configuration. BaseURL, when
// set, redirects requests (used by tests against a local mock server).
func New(cfg config.ProviderConfig) (*Embedder, error) {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	dims := dimensionsForModel(model)
	if raw, ok := config.GetOption[float64](cfg, "dimensions"); ok && raw > 0 {
		dims = int(raw)
	}

	return &Embedder{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  model,
		dims:   dims,
	}, nil
}

func dimensionsForModel(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return defaultDimensions
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
		Input:          texts,
		Model:          goopenai.EmbeddingModel(e.model),
		EncodingFormat: goopenai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embed: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = v
		}
		out[d.Index] = vec
	}
	return out, nil
}

func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("openai: embed: no result returned")
	}
	return vecs[0], nil
}

func (e *Embedder) Dimensions() int {
	return e.dims
}
