package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// TurnState is the per-turn scratch state of the orchestration loop.
// It is created at the start of a turn and only touched by the goroutine
// running that turn.
type TurnState struct {
	ConversationID string
	History        []*schema.Message // everything but the system prompt
	Round          int
	ToolCallIDSeq  int // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// QueryInput represents one user turn. SystemPrompt is fixed for the
// lifetime of a session and is never stored in history.
type QueryInput struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
	SystemPrompt   string `json:"-"`
}

// TurnResult is the user-visible outcome of a turn. Stopped marks round
// budget exhaustion; the caller may simply retry the turn.
type TurnResult struct {
	Content      string  `json:"content"`
	Stopped      bool    `json:"stopped"`
	Rounds       int     `json:"rounds"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// ToolResult records one tool dispatch.
type ToolResult struct {
	CallID    string    `json:"call_id"`
	Name      string    `json:"name"`
	Args      any       `json:"args"`
	Success   bool      `json:"success"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	ElapsedMS float64   `json:"elapsed_ms"`

	// Content is the JSON payload appended to history as the tool turn.
	Content string `json:"-"`
}

// TurnObserver is the side channel notified after each loop transition.
// Implementations must not fail the turn; they have no way to.
type TurnObserver interface {
	OnAssistant(ctx context.Context, round int, msg *schema.Message)
	OnToolResult(ctx context.Context, res ToolResult)
	OnStopped(ctx context.Context, rounds int)
	OnError(ctx context.Context, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnAssistant(context.Context, int, *schema.Message) {}
func (NopObserver) OnToolResult(context.Context, ToolResult) {}
func (NopObserver) OnStopped(context.Context, int) {}
func (NopObserver) OnError(context.Context, error) {}
