package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository stores the turns of one chat session under its
// session id. The system prompt is never stored.
type ConversationRepository interface {
	// AddMessage appends one turn; turns are never rewritten.
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// LoadHistory returns the turns in append order. An unknown session
	// has an empty history, not an error.
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory drops the session when it closes.
	ClearHistory(ctx context.Context, conversationID string) error

	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// Snapshot copies the turns so callers cannot mutate stored messages or
// their tool calls. Nil entries are skipped.
func (h *ConversationHistory) Snapshot() []*schema.Message {
	if h == nil {
		return []*schema.Message{}
	}
	out := make([]*schema.Message, 0, len(h.Messages))
	for _, m := range h.Messages {
		if m == nil {
			continue
		}
		c := *m
		if len(m.ToolCalls) > 0 {
			c.ToolCalls = append([]schema.ToolCall(nil), m.ToolCalls...)
		}
		out = append(out, &c)
	}
	return out
}
