// Package session ties one signed-in user to a history, a fixed system
// prompt and a markdown log.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/leave-agent-poc-v1/server/internal/agent/eligibility"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/conversations"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/observers"
	"github.com/leave-agent-poc-v1/server/internal/agent/graph/prompts"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	"github.com/leave-agent-poc-v1/server/internal/turnlog"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

// DefaultEmail is the fake SSO identity used when none is configured.
const DefaultEmail = "xiaoming@company.com"

var exitWords = map[string]struct{}{
	"exit": {}, "quit": {}, "bye": {}, "退出": {}, "再见": {},
}

// IsExitWord reports whether text asks to leave the chat.
func IsExitWord(text string) bool {
	_, ok := exitWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

type Directory interface {
	DirectoryByEmail(ctx context.Context, email string) (*model.DirectoryResponse, error)
}

// Normalizer may rewrite a user turn before it reaches the model, given the
// history so far. The default keeps the text unchanged.
type Normalizer func(ctx context.Context, history []*schema.Message, text string) (string, error)

func identity(_ context.Context, _ []*schema.Message, text string) (string, error) {
	return text, nil
}

type Deps struct {
	Directory       Directory
	Runner          graph.Runner
	MessagesManager *conversations.MessagesManager
	Prompt          model.AgentPromptConfig
	LogDir          string
	LogPrefix       string
	Normalizer      Normalizer
	Callbacks       []einocb.Handler
	Now             func() time.Time
}

type Session struct {
	ID           string
	Email        string
	Profile      *model.DirectoryResponse
	SystemPrompt string
	LogPath      string

	deps Deps
	log  *turnlog.Logger
}

// Start identifies the user through the directory, renders the system
// prompt once and opens the session log.
func Start(ctx context.Context, deps Deps, email string) (*Session, error) {
	if deps.Directory == nil || deps.Runner == nil || deps.MessagesManager == nil {
		return nil, fmt.Errorf("session deps are incomplete")
	}
	if deps.Normalizer == nil {
		deps.Normalizer = identity
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if email == "" {
		email = DefaultEmail
	}

	profile, err := deps.Directory.DirectoryByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("identify %s: %w", email, err)
	}

	started := deps.Now()
	promptCtx := observers.Attach(ctx, "AgentSystemPrompt", "GoTemplate", components.ComponentOfPrompt, deps.Callbacks...)
	systemPrompt, err := prompts.RenderAgentSystem(promptCtx, deps.Prompt, profile, started.Format(eligibility.DateLayout))
	if err != nil {
		return nil, err
	}

	path := turnlog.SessionPath(deps.LogDir, deps.LogPrefix, started)
	s := &Session{
		ID:           uuid.NewString(),
		Email:        email,
		Profile:      profile,
		SystemPrompt: systemPrompt,
		LogPath:      path,
		deps:         deps,
		log:          turnlog.New(turnlog.NewFileSink(path)),
	}
	s.log.Text(turnlog.TitleSessionStart, "sso_email="+email)

	logx.Info().
		Str("conversation_id", s.ID).
		Str("email", email).
		Str("employee_id", profile.EmployeeProfile.EmployeeID).
		Str("log_path", path).
		Msg("Session started")
	return s, nil
}

// DisplayName falls back to the email when the directory has no name.
func (s *Session) DisplayName() string {
	if n := strings.TrimSpace(s.Profile.EmployeeProfile.Name); n != "" {
		return n
	}
	return s.Email
}

func (s *Session) Greeting() string {
	return fmt.Sprintf("你好，%s。我能为你做些什么？", s.DisplayName())
}

// Send runs one user turn. A stopped turn is a normal result.
func (s *Session) Send(ctx context.Context, text string) (*model.TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errx.Invalid("empty message")
	}
	s.log.Text(turnlog.TitleUser, text)

	history, err := s.deps.MessagesManager.History(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	normalized, err := s.deps.Normalizer(ctx, history, text)
	if err != nil {
		return nil, fmt.Errorf("normalize user turn: %w", err)
	}
	if normalized != text {
		s.log.Text(turnlog.TitleUserNormalized, normalized)
	}

	res, err := s.deps.Runner.Invoke(ctx, model.QueryInput{
		ConversationID: s.ID,
		Query:          normalized,
		SystemPrompt:   s.SystemPrompt,
	}, graph.WithObserver(s.log))
	if err != nil {
		return nil, err
	}

	s.log.Text(turnlog.TitleAssistantFinal, res.Content)
	return res, nil
}

func (s *Session) History(ctx context.Context) ([]*schema.Message, error) {
	return s.deps.MessagesManager.History(ctx, s.ID)
}

// MessageCount is the number of turns stored for this session.
func (s *Session) MessageCount(ctx context.Context) (int, error) {
	return s.deps.MessagesManager.Count(ctx, s.ID)
}

// Close discards the session history.
func (s *Session) Close(ctx context.Context) error {
	n, err := s.MessageCount(ctx)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", s.ID).Msg("failed to count session messages")
	}
	if err := s.deps.MessagesManager.Clear(ctx, s.ID); err != nil {
		return err
	}
	logx.Info().
		Str("conversation_id", s.ID).
		Int("messages", n).
		Msg("Session closed")
	return nil
}
