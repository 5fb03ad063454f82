package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL       string `envconfig:"CONVERSATION_TTL" default:"2h"`
	MaxRounds int    `envconfig:"CONVERSATION_MAX_ROUNDS" default:"5"`
	LogDir    string `envconfig:"CONVERSATION_LOG_DIR" default:"logs"`
}

type AgentModelConfig struct {
	Model          string  `envconfig:"AGENT_MODEL" default:"gemini-2.0-flash"`
	MaxTokens      int     `envconfig:"AGENT_MAX_TOKENS" default:"2000"`
	Temperature    float32 `envconfig:"AGENT_TEMPERATURE" default:"0.1"`
	ThinkingBudget int32   `envconfig:"AGENT_THINKING_BUDGET" default:"0"`
}

type ExtractionModelConfig struct {
	Model       string  `envconfig:"EXTRACTION_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int32   `envconfig:"EXTRACTION_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"EXTRACTION_TEMPERATURE" default:"0.1"`
}

// HRAPIConfig points the tools at the leave-management backend.
type HRAPIConfig struct {
	BaseURL       string        `envconfig:"API_BASE" default:"http://localhost:8000"`
	Timeout       time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	PolicyTimeout time.Duration `envconfig:"API_POLICY_TIMEOUT" default:"20s"`
}

type AgentPromptConfig struct {
	AgentName       string `envconfig:"PROMPT_AGENT_NAME" default:"LeaveAgentDemo"`
	UnsupportedNote string `envconfig:"PROMPT_UNSUPPORTED_NOTE" default:"目前还不支持这项工作，可以试试让我帮你提交工单。"`
}
