package turnlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

// Section titles.
const (
	TitleSessionStart   = "SESSION_START"
	TitleUser           = "USER"
	TitleUserNormalized = "USER_NORMALIZED"
	TitleAssistant      = "ASSISTANT"
	TitleAssistantFinal = "ASSISTANT_FINAL"
	TitleTurnStopped    = "TURN_STOPPED"
	TitleTurnError      = "TURN_ERROR"
	toolTitlePrefix     = "TOOL::"
)

// Logger is fire-and-forget: write failures are reported through logx
// and never returned. A nil *Logger discards everything.
type Logger struct {
	sink Sink
}

func New(sink Sink) *Logger {
	return &Logger{sink: sink}
}

func (l *Logger) Text(title, body string) {
	if l == nil || l.sink == nil {
		return
	}
	if err := l.sink.Append(title, body); err != nil {
		logx.Warn().Err(err).Str("title", title).Msg("Failed to append turn log")
	}
}

// JSON writes v as 2-space indented JSON with non-ASCII text kept as is.
func (l *Logger) JSON(title string, v any) {
	if l == nil || l.sink == nil {
		return
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		l.Text(title, fmt.Sprintf("%+v", v))
		return
	}
	l.Text(title, string(bytes.TrimRight(buf.Bytes(), "\n")))
}

type assistantEntry struct {
	Round     int                `json:"round"`
	Content   string             `json:"content"`
	ToolCalls []toolCallEntry    `json:"tool_calls"`
	Usage     *schema.TokenUsage `json:"usage,omitempty"`
}

type toolCallEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args any    `json:"args"`
}

type toolEntry struct {
	CallID    string  `json:"call_id"`
	Args      any     `json:"args"`
	Success   bool    `json:"success"`
	Result    any     `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
	StartedAt string  `json:"started_at"`
	EndedAt   string  `json:"ended_at"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

// OnAssistant logs every model response, tool calls included.
func (l *Logger) OnAssistant(_ context.Context, round int, msg *schema.Message) {
	if l == nil || msg == nil {
		return
	}
	entry := assistantEntry{Round: round, Content: msg.Content, ToolCalls: make([]toolCallEntry, 0, len(msg.ToolCalls))}
	for _, tc := range msg.ToolCalls {
		var args any = tc.Function.Arguments
		var decoded any
		if json.Unmarshal([]byte(tc.Function.Arguments), &decoded) == nil {
			args = decoded
		}
		entry.ToolCalls = append(entry.ToolCalls, toolCallEntry{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	if msg.ResponseMeta != nil {
		entry.Usage = msg.ResponseMeta.Usage
	}
	l.JSON(TitleAssistant, entry)
}

func (l *Logger) OnToolResult(_ context.Context, res model.ToolResult) {
	if l == nil {
		return
	}
	l.JSON(toolTitlePrefix+res.Name, toolEntry{
		CallID:    res.CallID,
		Args:      res.Args,
		Success:   res.Success,
		Result:    res.Result,
		Error:     res.Error,
		StartedAt: res.StartedAt.Format(time.RFC3339Nano),
		EndedAt:   res.EndedAt.Format(time.RFC3339Nano),
		ElapsedMS: res.ElapsedMS,
	})
}

func (l *Logger) OnStopped(_ context.Context, rounds int) {
	l.Text(TitleTurnStopped, fmt.Sprintf("round budget of %d exhausted", rounds))
}

func (l *Logger) OnError(_ context.Context, err error) {
	if err == nil {
		return
	}
	l.Text(TitleTurnError, err.Error())
}
