package policyrag

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

// GeminiGenerator constrains the model output with a response schema.
type GeminiGenerator struct {
	client *genai.Client
	cfg    model.ExtractionModelConfig
}

func NewGeminiGenerator(client *genai.Client, cfg model.ExtractionModelConfig) *GeminiGenerator {
	return &GeminiGenerator{client: client, cfg: cfg}
}

func (g *GeminiGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.cfg.Temperature),
		MaxOutputTokens:  g.cfg.MaxTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	})
	if err != nil {
		logx.Error().Err(err).Str("model", g.cfg.Model).Msg("Structured extraction call failed")
		return "", fmt.Errorf("generate content: %w", err)
	}

	if u := resp.UsageMetadata; u != nil {
		pricing := model.ResolvePricing(g.cfg.Model)
		inC := pricing.InputPerM * float64(u.PromptTokenCount) / 1_000_000.0
		outC := pricing.OutputPerM * float64(u.CandidatesTokenCount) / 1_000_000.0
		logx.Debug().
			Str("model", g.cfg.Model).
			Int32("prompt_tokens", u.PromptTokenCount).
			Int32("completion_tokens", u.CandidatesTokenCount).
			Float64("total_cost_usd", inC+outC).
			Msg("LLM usage")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("generate content: empty response")
	}
	return text, nil
}

// ResponseSchema mirrors Result for the structured output constraint.
func ResponseSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"policy_type":          {Type: genai.TypeString, Enum: []string{PolicyTypeLeave}},
			"policy_group":         str,
			"is_applicable":        {Type: genai.TypeBoolean},
			"applicability_reason": str,
			"data": {
				Type:     genai.TypeObject,
				Nullable: genai.Ptr(true),
				Properties: map[string]*genai.Schema{
					"min_unit":              {Type: genai.TypeNumber},
					"advance_days_required": {Type: genai.TypeInteger},
					"max_consecutive_days":  {Type: genai.TypeInteger},
					"approval_rules": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"condition": str,
								"approvers": {Type: genai.TypeArray, Items: str},
							},
							Required: []string{"condition", "approvers"},
						},
					},
					"citations": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"doc_name":    str,
								"chunk_index": {Type: genai.TypeInteger},
								"quote":       str,
							},
							Required: []string{"doc_name", "chunk_index", "quote"},
						},
					},
				},
				Required: []string{"min_unit", "advance_days_required", "max_consecutive_days", "approval_rules", "citations"},
			},
		},
		Required:         []string{"policy_type", "policy_group", "is_applicable", "applicability_reason"},
		PropertyOrdering: []string{"policy_type", "policy_group", "is_applicable", "applicability_reason", "data"},
	}
}
