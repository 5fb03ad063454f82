package graph

import (
	"context"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/leave-agent-poc-v1/server/internal/agent/graph/conversations"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/nodes"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/observers"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

// Runner executes one user turn against the agent loop.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput, opts ...Option) (*model.TurnResult, error)
}

// Config holds everything needed to drive the loop.
type Config struct {
	ChatModel       einomodel.BaseChatModel
	ModelName       string
	Tools           nodes.Dispatcher
	MessagesManager *conversations.MessagesManager
	MaxRounds       int
	Callbacks       []einocb.Handler
}

type Option func(*invokeOptions)

type invokeOptions struct {
	observer model.TurnObserver
}

// WithObserver reports loop transitions of this turn to obs.
func WithObserver(obs model.TurnObserver) Option {
	return func(o *invokeOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

type loopRunner struct {
	chatModel einomodel.BaseChatModel
	modelName string
	handlers  []einocb.Handler
	maxRounds int

	preModel  func(context.Context, string, *model.TurnState) ([]*schema.Message, error)
	postModel func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error)
	route     func(context.Context, *schema.Message) string
	dispatch  func(context.Context, *schema.Message, *model.TurnState, model.TurnObserver) error
	mm        *conversations.MessagesManager
}

// NewRunner validates cfg and wires the loop states.
func NewRunner(cfg Config) (Runner, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool dispatcher is nil")
	}
	if cfg.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}

	maxRounds := nodes.NormalizeMaxRounds(cfg.MaxRounds)
	return &loopRunner{
		chatModel: cfg.ChatModel,
		modelName: cfg.ModelName,
		handlers:  cfg.Callbacks,
		maxRounds: maxRounds,
		preModel:  nodes.NewAwaitModelPreHandler(cfg.MessagesManager, maxRounds),
		postModel: nodes.NewAwaitModelPostHandler(cfg.MessagesManager, cfg.ModelName),
		route:     nodes.NewDispatchCondition(),
		dispatch:  nodes.NewDispatchToolsNode(cfg.Tools, cfg.MessagesManager),
		mm:        cfg.MessagesManager,
	}, nil
}

// Invoke appends the user turn and then alternates model calls and tool
// dispatch until the model answers without tool calls or the round budget
// runs out. Turns appended before a failure stay in history.
func (r *loopRunner) Invoke(ctx context.Context, in model.QueryInput, opts ...Option) (*model.TurnResult, error) {
	o := &invokeOptions{observer: model.NopObserver{}}
	for _, opt := range opts {
		opt(o)
	}
	obs := o.observer

	if err := r.mm.AppendUser(ctx, in.ConversationID, in.Query); err != nil {
		obs.OnError(ctx, err)
		return nil, fmt.Errorf("append user turn: %w", err)
	}

	state := &model.TurnState{ConversationID: in.ConversationID}
	node := nodes.NodeAwaitModel
	var last *schema.Message

	for {
		switch node {
		case nodes.NodeAwaitModel:
			input, err := r.preModel(ctx, in.SystemPrompt, state)
			if nodes.IsBudgetExhausted(err) {
				node = nodes.NodeStopped
				continue
			}
			if err != nil {
				return nil, r.fail(ctx, obs, state, err)
			}

			out, err := r.chatModel.Generate(r.modelContext(ctx), input)
			if err != nil {
				return nil, r.fail(ctx, obs, state, fmt.Errorf("model generate: %w", err))
			}
			if last, err = r.postModel(ctx, out, state); err != nil {
				return nil, r.fail(ctx, obs, state, err)
			}
			obs.OnAssistant(ctx, state.Round, last)
			node = r.route(ctx, last)

		case nodes.NodeDispatchTools:
			if err := r.dispatch(ctx, last, state, obs); err != nil {
				return nil, r.fail(ctx, obs, state, err)
			}
			node = nodes.NodeAwaitModel

		case nodes.NodeStopped:
			logx.Warn().
				Str("conversation_id", state.ConversationID).
				Int("max_rounds", r.maxRounds).
				Msg("Round budget exhausted")
			obs.OnStopped(ctx, r.maxRounds)
			return &model.TurnResult{
				Content:      nodes.StoppedContent,
				Stopped:      true,
				Rounds:       state.Round,
				TotalCostUSD: state.TotalCostUSD,
			}, nil

		case nodes.NodeDone:
			logx.Debug().
				Str("conversation_id", state.ConversationID).
				Int("rounds", state.Round).
				Float64("total_cost_usd", state.TotalCostUSD).
				Msg("Turn complete")
			return &model.TurnResult{
				Content:      last.Content,
				Rounds:       state.Round,
				TotalCostUSD: state.TotalCostUSD,
			}, nil

		default:
			return nil, r.fail(ctx, obs, state, fmt.Errorf("unknown loop state %q", node))
		}
	}
}

func (r *loopRunner) fail(ctx context.Context, obs model.TurnObserver, state *model.TurnState, err error) error {
	logx.Error().Err(err).Str("conversation_id", state.ConversationID).Int("round", state.Round).Msg("Turn failed")
	obs.OnError(ctx, err)
	return err
}

func (r *loopRunner) modelContext(ctx context.Context) context.Context {
	return observers.Attach(ctx, nodes.NodeAwaitModel, r.modelName, components.ComponentOfChatModel, r.handlers...)
}
