package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

const sessionKeyPrefix = "leave-agent:session:"

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID + ":messages"
}

// RedisConversationRepository stores each session as one Redis list of
// JSON-encoded messages. A positive ttl is refreshed on every append, so
// an abandoned session expires on its own.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", message.Role, err)
	}
	key := sessionKey(sessionID)

	var expire *redis.BoolCmd
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, b)
		if r.ttl > 0 {
			expire = p.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Str("role", string(message.Role)).Msg("append session message")
		return errx.WrapRedis("rpush", err)
	}
	if expire != nil && !expire.Val() {
		logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("session ttl not applied")
	}
	return nil
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	rows, err := r.rdb.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("conversation_id", sessionID).Msg("load session history")
		return nil, errx.WrapRedis("lrange", err)
	}
	msgs, err := decodeMessages(rows)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", sessionID).Msg("decode session history")
		return nil, err
	}
	return &model.ConversationHistory{ConversationID: sessionID, Messages: msgs}, nil
}

func decodeMessages(rows []string) ([]*schema.Message, error) {
	msgs := make([]*schema.Message, len(rows))
	for i, row := range rows {
		m := new(schema.Message)
		if err := json.Unmarshal([]byte(row), m); err != nil {
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs[i] = m
	}
	return msgs, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return errx.WrapRedis("del", err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, sessionID string) (int, error) {
	n, err := r.rdb.LLen(ctx, sessionKey(sessionID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, errx.WrapRedis("llen", err)
	}
	return int(n), nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
