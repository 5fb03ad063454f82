package policy

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

const (
	DefaultEmbedModel = "gemini-embedding-001"
	DefaultEmbedDim   = 3072

	// Gemini caps batch embedding requests at 100 inputs.
	embedBatchSize = 100
)

// Embedder turns text into vectors. Documents and queries may use
// different task types.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type EmbedderConfig struct {
	Model string `envconfig:"EMBED_MODEL" default:"gemini-embedding-001"`
	Dim   int32  `envconfig:"EMBED_DIM" default:"3072"`
}

type GeminiEmbedder struct {
	client *genai.Client
	cfg    EmbedderConfig
}

func NewGeminiEmbedder(client *genai.Client, cfg EmbedderConfig) *GeminiEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultEmbedModel
	}
	if cfg.Dim <= 0 {
		cfg.Dim = DefaultEmbedDim
	}
	return &GeminiEmbedder{client: client, cfg: cfg}
}

func (g *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		vecs, err := g.embed(ctx, texts[start:end], "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (g *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *GeminiEmbedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.cfg.Model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: genai.Ptr(g.cfg.Dim),
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed content: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	logx.Debug().Str("model", g.cfg.Model).Str("task", taskType).Int("inputs", len(texts)).Msg("embedded")
	return out, nil
}
