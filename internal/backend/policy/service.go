package policy

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	"github.com/leave-agent-poc-v1/server/internal/backend/store"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

const (
	DefaultDocName = "annual_leave_fte_cn_gz.md"
	MaxTopK        = 10
)

//go:embed docs/*.md
var docsFS embed.FS

// ChunkStore persists chunk embeddings per policy group.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, policyGroup, docName string, chunks []store.ChunkRecord) error
	ChunksByGroup(ctx context.Context, policyGroup string) ([]store.ChunkRecord, error)
}

type Service struct {
	store    ChunkStore
	embedder Embedder
}

func NewService(chunks ChunkStore, embedder Embedder) *Service {
	return &Service{store: chunks, embedder: embedder}
}

// Ingest chunks and embeds a markdown document and replaces whatever the
// group already holds for a document of the same name. An empty docPath
// ingests the bundled annual leave policy.
func (s *Service) Ingest(ctx context.Context, policyGroup, docPath string) (*model.PolicyIngestResult, error) {
	if policyGroup == "" {
		return nil, errx.Invalid("policy_group is required")
	}

	docName, content, err := readDocument(docPath)
	if err != nil {
		return nil, err
	}

	texts := ChunkText(content, DefaultChunkSize, DefaultChunkOverlap)
	vecs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, errx.WrapRemote("embed_documents", 0, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(texts))
	}

	records := make([]store.ChunkRecord, len(texts))
	for i, t := range texts {
		records[i] = store.ChunkRecord{DocName: docName, ChunkIndex: i, Content: t, Embedding: vecs[i]}
	}
	if err := s.store.ReplaceChunks(ctx, policyGroup, docName, records); err != nil {
		return nil, err
	}

	logx.Info().Str("policy_group", policyGroup).Str("doc_name", docName).Int("chunks", len(records)).Msg("policy ingested")
	return &model.PolicyIngestResult{PolicyGroup: policyGroup, DocName: docName, Chunks: len(records)}, nil
}

func readDocument(docPath string) (string, string, error) {
	if docPath == "" {
		b, err := fs.ReadFile(docsFS, "docs/"+DefaultDocName)
		if err != nil {
			return "", "", fmt.Errorf("read bundled policy: %w", err)
		}
		return DefaultDocName, string(b), nil
	}

	b, err := os.ReadFile(docPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", errx.New(
			fmt.Errorf("%w: %s", errx.ErrNotFound, docPath),
			http.StatusNotFound,
			"Policy document not found: "+docPath,
		)
	}
	if err != nil {
		return "", "", fmt.Errorf("read policy document: %w", err)
	}
	return filepath.Base(docPath), string(b), nil
}

// Retrieve ranks the group's chunks by cosine similarity to the query.
func (s *Service) Retrieve(ctx context.Context, req model.PolicyRetrieveRequest) (*model.PolicyRetrieval, error) {
	if req.TopK <= 0 || req.TopK > MaxTopK {
		return nil, errx.New(
			fmt.Errorf("%w: top_k=%d", errx.ErrInvalidArgument, req.TopK),
			http.StatusBadRequest,
			"top_k must be between 1 and 10",
		)
	}

	records, err := s.store.ChunksByGroup(ctx, req.PolicyGroup)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errx.New(
			fmt.Errorf("%w: policy group %q", errx.ErrNotFound, req.PolicyGroup),
			http.StatusNotFound,
			"No policy chunks found for policy_group",
		)
	}

	q, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, errx.WrapRemote("embed_query", 0, err)
	}

	return &model.PolicyRetrieval{
		PolicyGroup: req.PolicyGroup,
		Query:       req.Query,
		TopK:        req.TopK,
		Chunks:      rank(q, records, req.TopK),
	}, nil
}

func rank(query []float32, records []store.ChunkRecord, topK int) []model.PolicyChunk {
	chunks := make([]model.PolicyChunk, len(records))
	for i, r := range records {
		chunks[i] = model.PolicyChunk{
			ChunkID:    r.ChunkID,
			DocName:    r.DocName,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Score:      Cosine(query, r.Embedding),
		}
	}
	// Stable keeps insertion order among equal scores.
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
