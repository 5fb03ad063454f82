package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

func exerciseRepository(t *testing.T, r model.ConversationRepository) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hello")))
	require.NoError(t, r.AddMessage(ctx, "s1", schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call_1",
		Function: schema.FunctionCall{Name: "directory_lookup", Arguments: `{"lookup_by":"email","value":"a@b.c"}`},
	}})))
	require.NoError(t, r.AddMessage(ctx, "s1", schema.ToolMessage(`{"ok":true}`, "call_1")))
	require.NoError(t, r.AddMessage(ctx, "s2", schema.UserMessage("other session")))

	h, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 3)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "hello", h.Messages[0].Content)
	require.Len(t, h.Messages[1].ToolCalls, 1)
	assert.Equal(t, "directory_lookup", h.Messages[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "call_1", h.Messages[2].ToolCallID)

	n, err := r.GetMessageCount(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.ClearHistory(ctx, "s1"))
	h, err = r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, h.Messages)

	n, err = r.GetMessageCount(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "clearing one session must not touch another")
}

func TestMemoryConversationRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryConversationRepository())
}

func TestMemoryConversationRepository_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversationRepository()
	require.NoError(t, r.AddMessage(ctx, "s", schema.UserMessage("one")))

	h, err := r.LoadHistory(ctx, "s")
	require.NoError(t, err)
	h.Messages = append(h.Messages, schema.UserMessage("leak"))

	n, err := r.GetMessageCount(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisConversationRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	exerciseRepository(t, NewRedisConversationRepository(rdb, time.Hour))
}

func TestRedisConversationRepository_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := NewRedisConversationRepository(rdb, time.Minute)
	require.NoError(t, r.AddMessage(context.Background(), "s", schema.UserMessage("hi")))

	ttl := mr.TTL("leave-agent:session:s:messages")
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	n, err := r.GetMessageCount(context.Background(), "s")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisConversationRepository_NoTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := NewRedisConversationRepository(rdb, 0)
	require.NoError(t, r.AddMessage(context.Background(), "s", schema.UserMessage("hi")))
	assert.Zero(t, mr.TTL(sessionKey("s")))
}

func TestRedisConversationRepository_CorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := NewRedisConversationRepository(rdb, time.Hour)
	require.NoError(t, r.AddMessage(context.Background(), "s", schema.UserMessage("ok")))
	_, err := mr.RPush(sessionKey("s"), "{not json")
	require.NoError(t, err)

	_, err = r.LoadHistory(context.Background(), "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")
}
