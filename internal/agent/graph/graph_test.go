package graph

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leave-agent-poc-v1/server/internal/agent/graph/conversations"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/nodes"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/tools"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	"github.com/leave-agent-poc-v1/server/internal/agent/repo"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
)

// scriptedModel replays responses in order and repeats the last one.
type scriptedModel struct {
	responses []*schema.Message
	inputs    [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.inputs = append(m.inputs, input)
	i := len(m.inputs) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	// hand out a copy so id synthesis on one turn does not leak into the script
	out := *m.responses[i]
	out.ToolCalls = append([]schema.ToolCall(nil), m.responses[i].ToolCalls...)
	return &out, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type fakeDispatcher struct {
	calls []schema.ToolCall
	fail  map[string]error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, call schema.ToolCall) (model.ToolResult, error) {
	d.calls = append(d.calls, call)
	res := model.ToolResult{CallID: call.ID, Name: call.Function.Name}
	if err := d.fail[call.Function.Name]; err != nil {
		res.Error = err.Error()
		return res, err
	}
	res.Success = true
	res.Content = `{"ok":true}`
	return res, nil
}

type recordingObserver struct {
	assistants []*schema.Message
	results    []model.ToolResult
	stopped    int
	errs       []error
}

func (o *recordingObserver) OnAssistant(_ context.Context, _ int, msg *schema.Message) {
	o.assistants = append(o.assistants, msg)
}
func (o *recordingObserver) OnToolResult(_ context.Context, res model.ToolResult) {
	o.results = append(o.results, res)
}
func (o *recordingObserver) OnStopped(_ context.Context, rounds int) { o.stopped = rounds }
func (o *recordingObserver) OnError(_ context.Context, err error) { o.errs = append(o.errs, err) }

func toolCallMsg(calls ...schema.ToolCall) *schema.Message {
	return schema.AssistantMessage("", calls)
}

func tc(id, name string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: name, Arguments: `{}`}}
}

func newTestRunner(t *testing.T, m einomodel.BaseChatModel, d nodes.Dispatcher, maxRounds int) (Runner, *conversations.MessagesManager) {
	t.Helper()
	mm := conversations.NewMessagesManager(repo.NewMemoryConversationRepository())
	r, err := NewRunner(Config{ChatModel: m, ModelName: "gemini-2.0-flash", Tools: d, MessagesManager: mm, MaxRounds: maxRounds})
	require.NoError(t, err)
	return r, mm
}

func query(text string) model.QueryInput {
	return model.QueryInput{ConversationID: "s1", Query: text, SystemPrompt: "SYSTEM"}
}

func TestRunner_FinalAnswer(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{schema.AssistantMessage("你好", nil)}}
	r, mm := newTestRunner(t, m, &fakeDispatcher{}, 5)
	obs := &recordingObserver{}

	res, err := r.Invoke(context.Background(), query("hi"), WithObserver(obs))
	require.NoError(t, err)
	assert.Equal(t, "你好", res.Content)
	assert.False(t, res.Stopped)
	assert.Equal(t, 1, res.Rounds)

	require.Len(t, m.inputs, 1)
	assert.Equal(t, schema.System, m.inputs[0][0].Role)
	assert.Equal(t, "SYSTEM", m.inputs[0][0].Content)
	assert.Equal(t, "hi", m.inputs[0][1].Content)

	h, err := mm.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Len(t, obs.assistants, 1)
	assert.Empty(t, obs.errs)
}

func TestRunner_ToolThenFinal(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		toolCallMsg(tc("", "leave_balance_lookup"), tc("", "policy_lookup")),
		schema.AssistantMessage("You have 10 days.", nil),
	}}
	d := &fakeDispatcher{}
	r, mm := newTestRunner(t, m, d, 5)
	obs := &recordingObserver{}

	res, err := r.Invoke(context.Background(), query("balance?"), WithObserver(obs))
	require.NoError(t, err)
	assert.Equal(t, "You have 10 days.", res.Content)
	assert.Equal(t, 2, res.Rounds)

	require.Len(t, d.calls, 2)
	assert.Equal(t, "call_1", d.calls[0].ID)
	assert.Equal(t, "call_2", d.calls[1].ID)
	assert.Equal(t, "leave_balance_lookup", d.calls[0].Function.Name)

	h, err := mm.History(context.Background(), "s1")
	require.NoError(t, err)
	roles := make([]schema.RoleType, 0, len(h))
	for _, msg := range h {
		roles = append(roles, msg.Role)
	}
	assert.Equal(t, []schema.RoleType{schema.User, schema.Assistant, schema.Tool, schema.Tool, schema.Assistant}, roles)
	assert.Equal(t, "call_1", h[2].ToolCallID)
	assert.Equal(t, "call_2", h[3].ToolCallID)

	// second model call sees system + user + assistant + two tool turns
	require.Len(t, m.inputs, 2)
	assert.Len(t, m.inputs[1], 5)
	assert.Len(t, obs.results, 2)
	assert.Len(t, obs.assistants, 2)
}

func TestRunner_RoundBudget(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{toolCallMsg(tc("x", "case_get"))}}
	d := &fakeDispatcher{}
	r, _ := newTestRunner(t, m, d, 3)
	obs := &recordingObserver{}

	res, err := r.Invoke(context.Background(), query("loop forever"), WithObserver(obs))
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Equal(t, nodes.StoppedContent, res.Content)
	assert.Equal(t, 3, res.Rounds)
	assert.Len(t, m.inputs, 3)
	assert.Len(t, d.calls, 3)
	assert.Equal(t, 3, obs.stopped)
}

func TestRunner_DefaultBudgetIsFive(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{toolCallMsg(tc("x", "case_get"))}}
	r, _ := newTestRunner(t, m, &fakeDispatcher{}, 0)

	res, err := r.Invoke(context.Background(), query("again"))
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Len(t, m.inputs, nodes.DefaultMaxRounds)
}

func TestRunner_UnknownToolAbortsTurn(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{toolCallMsg(tc("call_9", "transfer_salary"))}}
	reg := tools.NewRegistryWith(map[tools.ToolName]tool.InvokableTool{})
	r, mm := newTestRunner(t, m, reg, 5)
	obs := &recordingObserver{}

	res, err := r.Invoke(context.Background(), query("do it"), WithObserver(obs))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errx.ErrUnknownTool))

	h, err := mm.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, h, 2, "user and assistant turns stay, no tool result is appended")
	assert.Equal(t, schema.Assistant, h[1].Role)
	assert.Empty(t, obs.results)
	assert.Len(t, obs.errs, 1)
}

func TestRunner_ToolFailureStopsRound(t *testing.T) {
	remote := errx.WrapRemote("leave_balance", 502, errors.New("backend down"))
	m := &scriptedModel{responses: []*schema.Message{
		toolCallMsg(tc("a", "directory_lookup"), tc("b", "leave_balance_lookup"), tc("c", "case_create")),
		schema.AssistantMessage("unreachable", nil),
	}}
	d := &fakeDispatcher{fail: map[string]error{"leave_balance_lookup": remote}}
	r, mm := newTestRunner(t, m, d, 5)
	obs := &recordingObserver{}

	_, err := r.Invoke(context.Background(), query("take leave"), WithObserver(obs))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrRemote))

	require.Len(t, d.calls, 2, "case_create is never attempted")
	assert.Len(t, m.inputs, 1)

	require.Len(t, obs.results, 2)
	assert.True(t, obs.results[0].Success)
	assert.False(t, obs.results[1].Success)

	h, err := mm.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, h, 3, "user, assistant and the first tool result")
}

func TestRunner_AccumulatesCost(t *testing.T) {
	usage := &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000}}
	first := toolCallMsg(tc("a", "case_get"))
	first.ResponseMeta = usage
	final := schema.AssistantMessage("done", nil)
	final.ResponseMeta = usage

	r, _ := newTestRunner(t, &scriptedModel{responses: []*schema.Message{first, final}}, &fakeDispatcher{}, 5)
	res, err := r.Invoke(context.Background(), query("cost"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.TotalCostUSD, 1e-9)
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(Config{})
	require.Error(t, err)
}
