package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/leave-agent-poc-v1/server/internal/agent/graph/tools"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

//go:embed template/agent_system.txt
var agentSystemPrompt string

//go:embed template/policy_extraction.txt
var policyExtractionPrompt string

const missingValue = "None"

type toolNames struct {
	DirectoryLookup    string
	PolicyLookup       string
	LeaveBalanceLookup string
	CaseCreate         string
	CaseGet            string
	CaseUpdate         string
	EligibilityEngine  string
}

var templateTools = toolNames{
	DirectoryLookup:    tools.ToolDirectoryLookup.String(),
	PolicyLookup:       tools.ToolPolicyLookup.String(),
	LeaveBalanceLookup: tools.ToolLeaveBalanceLookup.String(),
	CaseCreate:         tools.ToolCaseCreate.String(),
	CaseGet:            tools.ToolCaseGet.String(),
	CaseUpdate:         tools.ToolCaseUpdate.String(),
	EligibilityEngine:  tools.ToolEligibilityEngine.String(),
}

// RenderAgentSystem builds the per-session system prompt from the
// directory entry of the signed-in user. today is YYYY-MM-DD.
func RenderAgentSystem(ctx context.Context, cfg model.AgentPromptConfig, dir *model.DirectoryResponse, today string) (string, error) {
	if dir == nil {
		return "", fmt.Errorf("agent prompt render: directory profile is nil")
	}
	emp := dir.EmployeeProfile
	vars := map[string]any{
		"AgentName":        cfg.AgentName,
		"UnsupportedNote":  cfg.UnsupportedNote,
		"EmployeeID":       orMissing(emp.EmployeeID),
		"Name":             orMissing(emp.Name),
		"Email":            orMissing(emp.Email),
		"LeavePolicyGroup": orMissing(emp.LeavePolicyGroup),
		"ManagerID":        missingValue,
		"ManagerEmail":     missingValue,
		"SkipManagerID":    "",
		"HRBPEmail":        "",
		"Today":            today,
		"Tools":            templateTools,
	}
	if m := dir.ManagerProfile; m != nil {
		vars["ManagerID"] = orMissing(m.EmployeeID)
		vars["ManagerEmail"] = orMissing(m.Email)
	}
	if s := dir.SkipManagerProfile; s != nil {
		vars["SkipManagerID"] = s.EmployeeID
	}
	if h := dir.HRBPProfile; h != nil {
		vars["HRBPEmail"] = h.Email
	}

	return render(ctx, "agent prompt", agentSystemPrompt, vars)
}

// RenderPolicyExtraction builds the structured extraction prompt around an
// already formatted context block.
func RenderPolicyExtraction(ctx context.Context, policyType, policyGroup, query, contextText string) (string, error) {
	return render(ctx, "policy extraction prompt", policyExtractionPrompt, map[string]any{
		"PolicyType":  policyType,
		"PolicyGroup": policyGroup,
		"Query":       query,
		"Context":     contextText,
	})
}

// render goes through the eino prompt component so prompt callbacks fire.
func render(ctx context.Context, what, text string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(text),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s render: %w", what, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s render: empty result", what)
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingValue
	}
	return s
}
