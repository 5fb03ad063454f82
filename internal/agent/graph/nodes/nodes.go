package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/leave-agent-poc-v1/server/internal/agent/graph/conversations"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

// Loop states.
const (
	NodeAwaitModel    = "AwaitModel"
	NodeDispatchTools = "DispatchTools"
	NodeDone          = "Done"
	NodeStopped       = "Stopped"
)

// Dispatcher executes one tool call. *tools.Registry satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, call schema.ToolCall) (model.ToolResult, error)
}

// NewAwaitModelPreHandler builds the model input: system prompt plus the
// full session history. It also spends one round of the budget.
func NewAwaitModelPreHandler(mm *conversations.MessagesManager, maxRounds int) func(context.Context, string, *model.TurnState) ([]*schema.Message, error) {
	return func(ctx context.Context, systemPrompt string, state *model.TurnState) ([]*schema.Message, error) {
		if budgetExhausted(state, maxRounds) {
			return nil, errBudgetExhausted
		}
		messages, err := mm.BuildModelInput(ctx, state.ConversationID, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("build model input: %w", err)
		}
		state.Round++
		state.History = messages[1:]

		logx.Debug().
			Str("conversation_id", state.ConversationID).
			Int("round", state.Round).
			Int("history_len", len(state.History)).
			Msg("AI thinking...")
		return messages, nil
	}
}

var errBudgetExhausted = errors.New("round budget exhausted")

// IsBudgetExhausted reports whether err came from the round budget check.
func IsBudgetExhausted(err error) bool {
	return errors.Is(err, errBudgetExhausted)
}

// NewAwaitModelPostHandler accounts usage cost, assigns missing tool call
// ids and persists the assistant turn.
func NewAwaitModelPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.TurnState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("model returned no message")
		}

		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			logx.Debug().
				Str("conversation_id", state.ConversationID).
				Str("node", NodeAwaitModel).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")

			state.TotalCostUSD += totalC
		}

		// Gemini can omit tool call ids; the tool turn needs one to refer back to.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		if err := mm.SaveAssistant(ctx, state.ConversationID, out); err != nil {
			logx.Error().
				Str("conversation_id", state.ConversationID).
				Err(err).
				Msg("Error saving assistant turn")
			return nil, fmt.Errorf("save assistant turn: %w", err)
		}
		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("AI response ready")
		}
		return out, nil
	}
}

// NewDispatchCondition routes a model turn: tool calls go to dispatch,
// anything else ends the turn.
func NewDispatchCondition() func(context.Context, *schema.Message) string {
	return func(_ context.Context, out *schema.Message) string {
		if len(out.ToolCalls) > 0 {
			return NodeDispatchTools
		}
		return NodeDone
	}
}

// NewDispatchToolsNode runs the calls of one model turn in order. The first
// failure stops the round; calls after it are never attempted.
func NewDispatchToolsNode(
	d Dispatcher,
	mm *conversations.MessagesManager,
) func(context.Context, *schema.Message, *model.TurnState, model.TurnObserver) error {
	return func(ctx context.Context, in *schema.Message, state *model.TurnState, obs model.TurnObserver) error {
		for _, call := range in.ToolCalls {
			res, err := d.Dispatch(ctx, call)
			if err != nil {
				// an unknown tool never ran, so there is nothing to report as a tool result
				if !errors.Is(err, errx.ErrUnknownTool) {
					obs.OnToolResult(ctx, res)
				}
				logx.Error().
					Err(err).
					Str("conversation_id", state.ConversationID).
					Str("tool_name", call.Function.Name).
					Int("round", state.Round).
					Msg("Tool dispatch aborted the turn")
				return fmt.Errorf("dispatch %s: %w", call.Function.Name, err)
			}
			obs.OnToolResult(ctx, res)

			if err := mm.SaveToolResult(ctx, state.ConversationID, res.CallID, res.Content); err != nil {
				return fmt.Errorf("save tool result: %w", err)
			}
			state.History = append(state.History, schema.ToolMessage(res.Content, res.CallID))
		}
		return nil
	}
}
