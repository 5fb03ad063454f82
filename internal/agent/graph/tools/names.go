package tools

// ToolName is the closed set of tools the agent may call. Anything the
// model requests outside this set is rejected at dispatch.
type ToolName string

const (
	ToolDirectoryLookup    ToolName = "directory_lookup"
	ToolPolicyLookup       ToolName = "policy_lookup"
	ToolLeaveBalanceLookup ToolName = "leave_balance_lookup"
	ToolCaseCreate         ToolName = "case_create"
	ToolCaseGet            ToolName = "case_get"
	ToolCaseUpdate         ToolName = "case_update"
	ToolEligibilityEngine  ToolName = "eligibility_engine"
)

// AllToolNames lists every tool in registration order.
var AllToolNames = []ToolName{
	ToolDirectoryLookup,
	ToolPolicyLookup,
	ToolLeaveBalanceLookup,
	ToolCaseCreate,
	ToolCaseGet,
	ToolCaseUpdate,
	ToolEligibilityEngine,
}

func (n ToolName) String() string { return string(n) }

// ParseToolName maps a model supplied name onto the closed set.
func ParseToolName(s string) (ToolName, bool) {
	for _, n := range AllToolNames {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}
