package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

func TestRenderAgentSystem(t *testing.T) {
	cfg := model.AgentPromptConfig{AgentName: "LeaveAgentDemo", UnsupportedNote: "目前还不支持这项工作"}
	dir := &model.DirectoryResponse{
		EmployeeProfile: model.PersonProfile{
			EmployeeID: "EMP1001", Name: "XiaoMing", Email: "xiaoming@company.com", LeavePolicyGroup: "FTE_CN_GZ",
		},
		ManagerProfile: &model.PersonProfile{EmployeeID: "EMP2001", Email: "zhaopeng@company.com"},
	}

	out, err := RenderAgentSystem(context.Background(), cfg, dir, "2026-03-10")
	require.NoError(t, err)

	assert.Contains(t, out, "You are LeaveAgentDemo.")
	assert.Contains(t, out, "- employee_id: EMP1001")
	assert.Contains(t, out, "- leave_policy_group: FTE_CN_GZ")
	assert.Contains(t, out, "- manager_email: zhaopeng@company.com")
	assert.Contains(t, out, "Today is 2026-03-10.")
	assert.Contains(t, out, "- policy_lookup(policy_group, query, top_k)")
	assert.Contains(t, out, "(case_update to PENDING_APPROVAL)")
	assert.Contains(t, out, `"目前还不支持这项工作"`)
	assert.NotContains(t, out, "skip_manager_id")
}

func TestRenderAgentSystem_NoManager(t *testing.T) {
	dir := &model.DirectoryResponse{EmployeeProfile: model.PersonProfile{EmployeeID: "EMP2001"}}

	out, err := RenderAgentSystem(context.Background(), model.AgentPromptConfig{AgentName: "A"}, dir, "2026-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, "- manager_id: None")
	assert.Contains(t, out, "- email: None")

	_, err = RenderAgentSystem(context.Background(), model.AgentPromptConfig{}, nil, "")
	require.Error(t, err)
}

func TestRenderPolicyExtraction(t *testing.T) {
	ctxText := "[doc=annual.md chunk=0 score=0.9100]\nApplies to FTE {{not a template}}"
	out, err := RenderPolicyExtraction(context.Background(), "leave_policy", "FTE_CN_GZ", "contractor leave?", ctxText)
	require.NoError(t, err)

	assert.Contains(t, out, `policy_type MUST be "leave_policy".`)
	assert.Contains(t, out, `policy_group MUST be "FTE_CN_GZ".`)
	assert.Contains(t, out, "User question: contractor leave?")
	assert.Contains(t, out, "Retrieved chunks:\n"+ctxText)
}
