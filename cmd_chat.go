package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/leave-agent-poc-v1/server/internal/agent/eligibility"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/conversations"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/nodes"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/observers"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/tools"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	"github.com/leave-agent-poc-v1/server/internal/agent/repo"
	"github.com/leave-agent-poc-v1/server/internal/agent/session"
	"github.com/leave-agent-poc-v1/server/internal/hrapi"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

var (
	chatEmail     string
	chatCallbacks bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive leave assistant session as the fake SSO user",
	Args:  cobra.NoArgs,
	RunE:  runChatCommand,
}

func init() {
	chatCmd.Flags().StringVar(&chatEmail, "email", "", "sign in as this email (defaults to SSO_EMAIL)")
	chatCmd.Flags().BoolVar(&chatCallbacks, "callbacks", false, "log eino model, prompt and tool callbacks at debug level")
	rootCmd.AddCommand(chatCmd)
}

// conversationRepository picks Redis when REDIS_URL is set, memory otherwise.
// The returned func closes whatever was opened.
func conversationRepository(ctx context.Context) (model.ConversationRepository, func(), error) {
	if !appCfg.Redis.Enabled() {
		logx.Info().Msg("REDIS_URL not set, keeping conversation history in memory")
		return repo.NewMemoryConversationRepository(), func() {}, nil
	}

	ttl, err := conversationTTL()
	if err != nil {
		return nil, nil, err
	}
	rdb, err := appCfg.Redis.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise redis client: %w", err)
	}
	logx.Info().Msg("Connected to Redis successfully")
	return repo.NewRedisConversationRepository(rdb, ttl), func() { _ = rdb.Close() }, nil
}

// buildSessionDeps wires the Gemini agent model, the tool registry and the
// loop runner into the dependencies of a chat session.
func buildSessionDeps(ctx context.Context) (session.Deps, func(), error) {
	if err := requireAPIKey(); err != nil {
		return session.Deps{}, nil, err
	}

	var handlers []einocb.Handler
	if chatCallbacks {
		handlers = append(handlers, observers.NewAllCallbacks())
	}

	client, err := nodes.NewGenaiClient(ctx, appCfg.APIKey, appCfg.BaseURL)
	if err != nil {
		return session.Deps{}, nil, err
	}
	chatModels, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		Client:      client,
		AgentConfig: &appCfg.Agent,
	})
	if err != nil {
		return session.Deps{}, nil, err
	}

	hr := hrapi.NewClient(appCfg.HRAPI)
	registry := tools.NewRegistry(hr, eligibility.NewEngine()).WithCallbacks(handlers...)
	infos, err := registry.Infos(ctx)
	if err != nil {
		return session.Deps{}, nil, err
	}
	if err := chatModels.BindToolsToAgentModel(ctx, infos); err != nil {
		return session.Deps{}, nil, err
	}

	conversationRepo, closeRepo, err := conversationRepository(ctx)
	if err != nil {
		return session.Deps{}, nil, err
	}
	mm := conversations.NewMessagesManager(conversationRepo)

	runner, err := graph.NewRunner(graph.Config{
		ChatModel:       chatModels.Agent,
		ModelName:       chatModels.AgentModelName,
		Tools:           registry,
		MessagesManager: mm,
		MaxRounds:       appCfg.Conversation.MaxRounds,
		Callbacks:       handlers,
	})
	if err != nil {
		closeRepo()
		return session.Deps{}, nil, err
	}

	return session.Deps{
		Directory:       hr,
		Runner:          runner,
		MessagesManager: mm,
		Prompt:          appCfg.Prompt,
		LogDir:          appCfg.Conversation.LogDir,
		LogPrefix:       appCfg.LogPrefix,
		Callbacks:       handlers,
	}, closeRepo, nil
}

func runChatCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildSessionDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	email := chatEmail
	if email == "" {
		email = appCfg.SSOEmail
	}
	sess, err := session.Start(ctx, deps, email)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "身份识别失败: %v\n", err)
		return err
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			logx.Warn().Err(err).Str("conversation_id", sess.ID).Msg("Failed to clear session history")
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[Fake SSO] 当前用户: %s\n", sess.Email)
	fmt.Fprintln(out, sess.Greeting())
	fmt.Fprintf(out, "[Session Log] %s\n", sess.LogPath)

	return chatLoop(ctx, sess, bufio.NewScanner(cmd.InOrStdin()), out)
}

type turnSender interface {
	Send(ctx context.Context, text string) (*model.TurnResult, error)
}

// chatLoop reads one line per turn until an exit word, EOF or cancellation.
// A failed turn is reported and the loop keeps going.
func chatLoop(ctx context.Context, sess turnSender, in *bufio.Scanner, out io.Writer) error {
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		text := strings.TrimSpace(in.Text())
		if session.IsExitWord(text) {
			fmt.Fprintln(out, "已退出。")
			return nil
		}
		if text == "" {
			continue
		}

		res, err := sess.Send(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logx.Error().Err(err).Msg("Turn failed")
			fmt.Fprintf(out, "[error] %v\n", err)
			continue
		}
		fmt.Fprintln(out, res.Content)
	}
}
