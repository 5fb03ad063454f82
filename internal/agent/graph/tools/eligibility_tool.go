package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/leave-agent-poc-v1/server/internal/agent/eligibility"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
)

func newEligibilityTool(engine *eligibility.Engine) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolEligibilityEngine.String(),
			Desc: "Deterministic leave eligibility check. Rejects when the balance is short, the advance notice is not met, " +
				"or the request exceeds the max consecutive limit. Returns the approval chain (manager first, dept head for more than 3 units).",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"available_units":       {Type: schema.Number, Desc: "Units left in the balance.", Required: true},
				"requested_units":       {Type: schema.Number, Desc: "Units requested.", Required: true},
				"start_date":            {Type: schema.String, Desc: "First day of leave, YYYY-MM-DD.", Required: true},
				"advance_days_required": {Type: schema.Integer, Desc: "Days of notice the policy requires.", Required: true},
				"max_consecutive":       {Type: schema.Number, Desc: "Max consecutive units the policy allows.", Required: true},
				"manager_id":            {Type: schema.String, Desc: "Employee id of the direct manager.", Required: true},
				"dept_head_id":          {Type: schema.String, Desc: "Employee id of the department head, when known."},
				"today":                 {Type: schema.String, Desc: "Override for today's date, YYYY-MM-DD."},
			}),
		},
		func(ctx context.Context, in *eligibility.Request) (*eligibility.Result, error) {
			if err := validateInput(ToolEligibilityEngine, in); err != nil {
				return nil, err
			}
			res, err := engine.Evaluate(*in)
			if err != nil {
				var pe *eligibility.ParseError
				if errors.As(err, &pe) {
					return nil, errx.New(fmt.Errorf("%w: %w", errx.ErrInvalidArgument, err), http.StatusBadRequest, errx.ValidationErrorMessage)
				}
				return nil, err
			}
			return res, nil
		},
	)
}
