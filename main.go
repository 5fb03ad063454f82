package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	"github.com/leave-agent-poc-v1/server/internal/backend/policy"
	"github.com/leave-agent-poc-v1/server/internal/backend/server"
	"github.com/leave-agent-poc-v1/server/internal/core"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
	pkgredis "github.com/leave-agent-poc-v1/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the agent and the demo
// backend, sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Agent        model.AgentModelConfig
	Extraction   model.ExtractionModelConfig
	Prompt       model.AgentPromptConfig
	Conversation model.ConversationConfig
	HRAPI        model.HRAPIConfig

	// Fake SSO identity of the chat user.
	SSOEmail  string `envconfig:"SSO_EMAIL" default:"xiaoming@company.com"`
	LogPrefix string `envconfig:"SESSION_LOG_PREFIX" default:"session"`

	Backend BackendConfig
}

type BackendConfig struct {
	Server   server.Config
	DBPath   string `envconfig:"BACKEND_DB_PATH" default:"data/hr.db"`
	Embedder policy.EmbedderConfig
}

var appCfg AppConfig

var rootCmd = &cobra.Command{
	Use:           "leave-agent",
	Short:         "HR leave-management agent with a demo HR backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	// Load structured config from env
	if err := envconfig.Process("", &appCfg); err != nil {
		return fmt.Errorf("process environment config: %w", err)
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(appCfg.Environment),
		Level:       appCfg.LogLevel,
	})
	return nil
}

func requireAPIKey() error {
	if appCfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required for this command")
	}
	return nil
}

func conversationTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(appCfg.Conversation.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", appCfg.Conversation.TTL, err)
	}
	return ttl, nil
}
