package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/leave-agent-poc-v1/server/internal/agent/eligibility"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

// Registry maps the closed tool name set onto invokable tools.
type Registry struct {
	tools    map[ToolName]tool.InvokableTool
	now      func() time.Time
	handlers []einocb.Handler
}

// NewRegistry registers every tool in AllToolNames.
func NewRegistry(hr HRClient, engine *eligibility.Engine) *Registry {
	if engine == nil {
		engine = eligibility.NewEngine()
	}
	return NewRegistryWith(map[ToolName]tool.InvokableTool{
		ToolDirectoryLookup:    newDirectoryLookupTool(hr),
		ToolPolicyLookup:       newPolicyLookupTool(hr),
		ToolLeaveBalanceLookup: newLeaveBalanceLookupTool(hr),
		ToolCaseCreate:         newCaseCreateTool(hr),
		ToolCaseGet:            newCaseGetTool(hr),
		ToolCaseUpdate:         newCaseUpdateTool(hr),
		ToolEligibilityEngine:  newEligibilityTool(engine),
	})
}

// NewRegistryWith builds a registry from explicit tools, mostly for tests.
func NewRegistryWith(tools map[ToolName]tool.InvokableTool) *Registry {
	return &Registry{tools: tools, now: time.Now}
}

// WithCallbacks attaches eino callback handlers that observe every run.
func (r *Registry) WithCallbacks(handlers ...einocb.Handler) *Registry {
	r.handlers = append(r.handlers, handlers...)
	return r
}

// Infos returns the tool declarations in registration order, ready for
// BindTools.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, name := range AllToolNames {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		info, err := t.Info(ctx)
		if err != nil {
			logx.Error().Err(err).Str("tool_name", name.String()).Msg("Failed to get tool info")
			return nil, fmt.Errorf("tool info %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Dispatch runs exactly one tool call. An unknown name fails with
// errx.ErrUnknownTool before anything executes. A failed run returns the
// populated ToolResult together with the error.
func (r *Registry) Dispatch(ctx context.Context, call schema.ToolCall) (model.ToolResult, error) {
	res := model.ToolResult{
		CallID: call.ID,
		Name:   call.Function.Name,
		Args:   decodeArgs(call.Function.Arguments),
	}

	name, ok := ParseToolName(call.Function.Name)
	t, registered := r.tools[name]
	if !ok || !registered {
		err := errx.New(fmt.Errorf("%w: %q", errx.ErrUnknownTool, call.Function.Name), http.StatusBadRequest, errx.ValidationErrorMessage)
		res.Error = err.Error()
		return res, err
	}

	args := strings.TrimSpace(call.Function.Arguments)
	if args == "" {
		args = "{}"
	}

	ctx = r.startCallbacks(ctx, name, args)
	res.StartedAt = r.now()
	out, err := t.InvokableRun(ctx, args)
	res.EndedAt = r.now()
	r.endCallbacks(ctx, out, err)
	res.ElapsedMS = float64(res.EndedAt.Sub(res.StartedAt).Microseconds()) / 1000.0

	if err != nil {
		res.Error = err.Error()
		logx.Warn().
			Err(err).
			Str("tool_name", res.Name).
			Str("call_id", res.CallID).
			Float64("elapsed_ms", res.ElapsedMS).
			Msg("Tool call failed")
		return res, err
	}

	res.Success = true
	res.Content = out
	res.Result = json.RawMessage(out)
	if !json.Valid([]byte(out)) {
		res.Result = out
	}
	logx.Debug().
		Str("tool_name", res.Name).
		Str("call_id", res.CallID).
		Float64("elapsed_ms", res.ElapsedMS).
		Msg("Tool call done")
	return res, nil
}

func (r *Registry) startCallbacks(ctx context.Context, name ToolName, args string) context.Context {
	if len(r.handlers) == 0 {
		return ctx
	}
	ctx = einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      name.String(),
		Type:      "LocalTool",
		Component: components.ComponentOfTool,
	}, r.handlers...)
	return einocb.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: args})
}

func (r *Registry) endCallbacks(ctx context.Context, out string, err error) {
	if len(r.handlers) == 0 {
		return
	}
	if err != nil {
		einocb.OnError(ctx, err)
		return
	}
	einocb.OnEnd(ctx, &tool.CallbackOutput{Response: out})
}

// decodeArgs keeps the arguments readable in logs; unparsable input is
// kept verbatim.
func decodeArgs(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
