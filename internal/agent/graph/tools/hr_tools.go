package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
)

const (
	defaultPolicyTopK = 4
	maxPolicyTopK     = 10
)

// HRClient is the backend surface the tools need. *hrapi.Client satisfies it.
type HRClient interface {
	DirectoryByEmail(ctx context.Context, email string) (*model.DirectoryResponse, error)
	DirectoryByID(ctx context.Context, employeeID string) (*model.DirectoryResponse, error)
	LeaveBalance(ctx context.Context, employeeID, leaveType string) (*model.LeaveBalance, error)
	CreateCase(ctx context.Context, req model.CaseCreateRequest) (*model.Case, error)
	GetCase(ctx context.Context, caseID string) (*model.Case, error)
	UpdateCase(ctx context.Context, caseID string, patch model.CasePatchRequest) (*model.Case, error)
	RetrievePolicy(ctx context.Context, req model.PolicyRetrieveRequest) (*model.PolicyRetrieval, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateInput(tool ToolName, in any) error {
	if err := validate.Struct(in); err != nil {
		return errx.Invalid("%s: %v", tool, err)
	}
	return nil
}

// ================ directory_lookup ================

type DirectoryLookupInput struct {
	LookupBy string `json:"lookup_by" validate:"oneof=email employee_id"`
	Value    string `json:"value" validate:"required"`
}

func newDirectoryLookupTool(hr HRClient) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolDirectoryLookup.String(),
			Desc: "Look up an employee profile by email or employee_id. Also returns the manager, skip-level manager and HRBP profiles when they exist.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"lookup_by": {
					Type:     schema.String,
					Desc:     "Which key the value is.",
					Enum:     []string{"email", "employee_id"},
					Required: true,
				},
				"value": {
					Type:     schema.String,
					Desc:     "The email address or employee id, e.g. EMP1001.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *DirectoryLookupInput) (*model.DirectoryResponse, error) {
			in.LookupBy = strings.TrimSpace(in.LookupBy)
			in.Value = strings.TrimSpace(in.Value)
			if err := validateInput(ToolDirectoryLookup, in); err != nil {
				return nil, err
			}
			if in.LookupBy == "email" {
				return hr.DirectoryByEmail(ctx, in.Value)
			}
			return hr.DirectoryByID(ctx, in.Value)
		},
	)
}

// ================ policy_lookup ================

type PolicyLookupInput struct {
	PolicyGroup string `json:"policy_group" validate:"required"`
	Query       string `json:"query" validate:"required"`
	TopK        int    `json:"top_k" validate:"min=1,max=10"`
}

func newPolicyLookupTool(hr HRClient) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolPolicyLookup.String(),
			Desc: "Retrieve the top-k most relevant leave policy chunks for a policy group. Use the employee's leave_policy_group from the directory.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"policy_group": {
					Type:     schema.String,
					Desc:     "Leave policy group, e.g. FTE_CN_GZ.",
					Required: true,
				},
				"query": {
					Type:     schema.String,
					Desc:     "What to look for in the policy.",
					Required: true,
				},
				"top_k": {
					Type: schema.Integer,
					Desc: fmt.Sprintf("Number of chunks to return, 1-%d. Defaults to %d.", maxPolicyTopK, defaultPolicyTopK),
				},
			}),
		},
		func(ctx context.Context, in *PolicyLookupInput) (*model.PolicyRetrieval, error) {
			if in.TopK == 0 {
				in.TopK = defaultPolicyTopK
			}
			if err := validateInput(ToolPolicyLookup, in); err != nil {
				return nil, err
			}
			return hr.RetrievePolicy(ctx, model.PolicyRetrieveRequest{
				PolicyGroup: in.PolicyGroup,
				Query:       in.Query,
				TopK:        in.TopK,
			})
		},
	)
}

// ================ leave_balance_lookup ================

type LeaveBalanceLookupInput struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	LeaveType  string `json:"leave_type" validate:"oneof=ANNUAL SICK"`
}

func newLeaveBalanceLookupTool(hr HRClient) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolLeaveBalanceLookup.String(),
			Desc: "Get the available units of one leave type for an employee. A missing balance is reported as zero.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"employee_id": {
					Type:     schema.String,
					Desc:     "Employee id, e.g. EMP1001.",
					Required: true,
				},
				"leave_type": {
					Type: schema.String,
					Desc: "Leave type. Defaults to ANNUAL.",
					Enum: []string{model.LeaveTypeAnnual, model.LeaveTypeSick},
				},
			}),
		},
		func(ctx context.Context, in *LeaveBalanceLookupInput) (*model.LeaveBalance, error) {
			in.LeaveType = strings.ToUpper(strings.TrimSpace(in.LeaveType))
			if in.LeaveType == "" {
				in.LeaveType = model.LeaveTypeAnnual
			}
			if err := validateInput(ToolLeaveBalanceLookup, in); err != nil {
				return nil, err
			}
			return hr.LeaveBalance(ctx, in.EmployeeID, in.LeaveType)
		},
	)
}

// ================ case_create / case_get / case_update ================

type CaseCreateInput struct {
	RequesterID string `json:"requester_id" validate:"required"`
	CaseType    string `json:"case_type" validate:"required"`
	PayloadJSON any    `json:"payload_json"`
}

type CaseGetInput struct {
	CaseID string `json:"case_id" validate:"required"`
}

type CaseUpdateInput struct {
	CaseID      string  `json:"case_id" validate:"required"`
	Status      *string `json:"status" validate:"omitnil,oneof=DRAFT PENDING_APPROVAL APPROVED REJECTED"`
	PayloadJSON any     `json:"payload_json"`
}

var payloadParam = &schema.ParameterInfo{
	Type: schema.String,
	Desc: "Case details as a JSON object string, e.g. {\"start_date\":\"2026-05-01\",\"days\":2}. Plain text is stored as a note.",
}

func newCaseCreateTool(hr HRClient) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCaseCreate.String(),
			Desc: "Create a new HR case in DRAFT status and return it.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"requester_id": {
					Type:     schema.String,
					Desc:     "Employee id of the requester.",
					Required: true,
				},
				"case_type": {
					Type:     schema.String,
					Desc:     "Case type, e.g. LEAVE_REQUEST or GENERAL_REQUEST.",
					Required: true,
				},
				"payload_json": payloadParam,
			}),
		},
		func(ctx context.Context, in *CaseCreateInput) (*model.Case, error) {
			if err := validateInput(ToolCaseCreate, in); err != nil {
				return nil, err
			}
			return hr.CreateCase(ctx, model.CaseCreateRequest{
				RequesterID: in.RequesterID,
				CaseType:    in.CaseType,
				PayloadJSON: NormalizePayload(in.PayloadJSON),
			})
		},
	)
}

func newCaseGetTool(hr HRClient) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCaseGet.String(),
			Desc: "Get a case by its case_id (UUID string).",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"case_id": {Type: schema.String, Desc: "Case id.", Required: true},
			}),
		},
		func(ctx context.Context, in *CaseGetInput) (*model.Case, error) {
			if err := validateInput(ToolCaseGet, in); err != nil {
				return nil, err
			}
			return hr.GetCase(ctx, in.CaseID)
		},
	)
}

func newCaseUpdateTool(hr HRClient) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCaseUpdate.String(),
			Desc: "Patch a case: change its status and/or replace its payload.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"case_id": {Type: schema.String, Desc: "Case id.", Required: true},
				"status": {
					Type: schema.String,
					Desc: "New status.",
					Enum: []string{
						string(model.CaseDraft),
						string(model.CasePendingApproval),
						string(model.CaseApproved),
						string(model.CaseRejected),
					},
				},
				"payload_json": payloadParam,
			}),
		},
		func(ctx context.Context, in *CaseUpdateInput) (*model.Case, error) {
			if err := validateInput(ToolCaseUpdate, in); err != nil {
				return nil, err
			}
			var patch model.CasePatchRequest
			if in.Status != nil {
				st := model.CaseStatus(*in.Status)
				patch.Status = &st
			}
			if in.PayloadJSON != nil {
				patch.PayloadJSON = NormalizePayload(in.PayloadJSON)
			}
			return hr.UpdateCase(ctx, in.CaseID, patch)
		},
	)
}
