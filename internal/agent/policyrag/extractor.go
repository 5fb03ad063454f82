// Package policyrag turns retrieved policy chunks into a structured,
// citation-backed leave policy determination.
package policyrag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/leave-agent-poc-v1/server/internal/agent/graph/prompts"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

const PolicyTypeLeave = "leave_policy"

// Defaults of the standalone extraction command.
const (
	DefaultPolicyGroup = "FTE_CN_GZ"
	DefaultQuery       = "I am a contractor, can I ask for annual leave?"
	DefaultTopK        = 4
)

// Debug hook titles.
const (
	DebugPromptTitle = "policy_rag_prompt"
	DebugResultTitle = "policy_rag_result"
)

type ApprovalRule struct {
	Condition string   `json:"condition" validate:"required"`
	Approvers []string `json:"approvers" validate:"required"`
}

type Citation struct {
	DocName    string `json:"doc_name" validate:"required"`
	ChunkIndex int    `json:"chunk_index" validate:"gte=0"`
	Quote      string `json:"quote" validate:"required"`
}

type LeavePolicy struct {
	MinUnit             float64        `json:"min_unit" validate:"gte=0"`
	AdvanceDaysRequired int            `json:"advance_days_required" validate:"gte=0"`
	MaxConsecutiveDays  int            `json:"max_consecutive_days" validate:"gte=0"`
	ApprovalRules       []ApprovalRule `json:"approval_rules" validate:"required,dive"`
	Citations           []Citation     `json:"citations" validate:"required,dive"`
}

// Result is the extraction outcome. Data is set iff IsApplicable.
type Result struct {
	PolicyType          string       `json:"policy_type"`
	PolicyGroup         string       `json:"policy_group"`
	IsApplicable        bool         `json:"is_applicable"`
	ApplicabilityReason string       `json:"applicability_reason"`
	Data                *LeavePolicy `json:"data"`
}

// wireResult catches missing required fields that a plain bool would hide.
type wireResult struct {
	PolicyType          string       `json:"policy_type" validate:"required"`
	PolicyGroup         string       `json:"policy_group" validate:"required"`
	IsApplicable        *bool        `json:"is_applicable" validate:"required"`
	ApplicabilityReason string       `json:"applicability_reason"`
	Data                *LeavePolicy `json:"data"`
}

type Retriever interface {
	RetrievePolicy(ctx context.Context, req model.PolicyRetrieveRequest) (*model.PolicyRetrieval, error)
}

// Generator performs one structured-output model call and returns the raw JSON text.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// DebugHook receives the raw prompt and the raw model output.
type DebugHook func(title, body string)

type Extractor struct {
	retriever Retriever
	generator Generator
	debug     DebugHook
	validate  *validator.Validate
}

type Option func(*Extractor)

func WithDebugHook(h DebugHook) Option {
	return func(e *Extractor) { e.debug = h }
}

func NewExtractor(r Retriever, g Generator, opts ...Option) *Extractor {
	e := &Extractor{
		retriever: r,
		generator: g,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract retrieves chunks for policyGroup and asks the model for a
// determination. Malformed model output is an errx.ErrSchemaViolation; it
// is never repaired or retried.
func (e *Extractor) Extract(ctx context.Context, query, policyGroup string, topK int) (*Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	retrieval, err := e.retriever.RetrievePolicy(ctx, model.PolicyRetrieveRequest{
		PolicyGroup: policyGroup,
		Query:       query,
		TopK:        topK,
	})
	if err != nil {
		return nil, fmt.Errorf("policy retrieve: %w", err)
	}

	prompt, err := prompts.RenderPolicyExtraction(ctx, PolicyTypeLeave, policyGroup, query, FormatContext(retrieval.Chunks))
	if err != nil {
		return nil, err
	}
	e.emit(DebugPromptTitle, prompt)

	raw, err := e.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("policy extraction call: %w", err)
	}
	e.emit(DebugResultTitle, raw)

	res, err := e.parse(raw, policyGroup)
	if err != nil {
		logx.Warn().Err(err).Str("policy_group", policyGroup).Msg("Policy extraction output rejected")
		return nil, err
	}

	logx.Debug().
		Str("policy_group", policyGroup).
		Int("chunks", len(retrieval.Chunks)).
		Bool("is_applicable", res.IsApplicable).
		Msg("Policy extraction done")
	return res, nil
}

// FormatContext labels each chunk and joins them with a blank line,
// keeping retrieval order.
func FormatContext(chunks []model.PolicyChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		blocks = append(blocks, fmt.Sprintf("[doc=%s chunk=%d score=%.4f]\n%s", c.DocName, c.ChunkIndex, c.Score, c.Content))
	}
	return strings.Join(blocks, "\n\n")
}

func (e *Extractor) parse(raw, policyGroup string) (*Result, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var w wireResult
	if err := dec.Decode(&w); err != nil {
		return nil, violation("decode: %v", err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, violation("trailing data after result object")
	}
	if err := e.validate.Struct(&w); err != nil {
		return nil, violation("%v", err)
	}
	if w.PolicyType != PolicyTypeLeave {
		return nil, violation("policy_type %q, want %q", w.PolicyType, PolicyTypeLeave)
	}
	if w.PolicyGroup != policyGroup {
		return nil, violation("policy_group %q, want %q", w.PolicyGroup, policyGroup)
	}
	if *w.IsApplicable != (w.Data != nil) {
		return nil, violation("is_applicable=%t but data present=%t", *w.IsApplicable, w.Data != nil)
	}

	return &Result{
		PolicyType:          w.PolicyType,
		PolicyGroup:         w.PolicyGroup,
		IsApplicable:        *w.IsApplicable,
		ApplicabilityReason: w.ApplicabilityReason,
		Data:                w.Data,
	}, nil
}

func (e *Extractor) emit(title, body string) {
	if e.debug != nil {
		e.debug(title, body)
	}
}

func violation(format string, args ...any) error {
	return errx.New(fmt.Errorf("%w: %s", errx.ErrSchemaViolation, fmt.Sprintf(format, args...)), http.StatusUnprocessableEntity, "invalid structured output")
}

// Pretty renders a result the way the CLI prints it.
func Pretty(res *Result) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
