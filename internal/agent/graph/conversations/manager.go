package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

// MessagesManager owns the ordering rules of a session's history. Every
// write goes straight to the repository so a failed turn keeps the turns
// it already produced.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
}

func NewMessagesManager(conversationRepo model.ConversationRepository) *MessagesManager {
	return &MessagesManager{conversationRepo: conversationRepo}
}

func (cm *MessagesManager) AppendUser(ctx context.Context, conversationID string, query string) error {
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.UserMessage(query))
}

// SaveAssistant stores the model turn as returned, tool calls included.
func (cm *MessagesManager) SaveAssistant(ctx context.Context, conversationID string, msg *schema.Message) error {
	stored := &schema.Message{
		Role:      schema.Assistant,
		Content:   msg.Content,
		ToolCalls: msg.ToolCalls,
	}
	return cm.conversationRepo.AddMessage(ctx, conversationID, stored)
}

func (cm *MessagesManager) SaveToolResult(ctx context.Context, conversationID string, callID string, content string) error {
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.ToolMessage(content, callID))
}

// BuildModelInput prepends the system prompt to the full history.
func (cm *MessagesManager) BuildModelInput(ctx context.Context, conversationID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.History(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, history...)
	return messages, nil
}

// History returns a snapshot; callers may not mutate the stored turns
// through it.
func (cm *MessagesManager) History(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return history.Snapshot(), nil
}

// Count reports the stored turns without loading them.
func (cm *MessagesManager) Count(ctx context.Context, conversationID string) (int, error) {
	return cm.conversationRepo.GetMessageCount(ctx, conversationID)
}

func (cm *MessagesManager) Clear(ctx context.Context, conversationID string) error {
	return cm.conversationRepo.ClearHistory(ctx, conversationID)
}
