package store

import (
	"context"
	"fmt"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

// SeedResult reports which demo tables were filled on this run.
type SeedResult struct {
	Employees int `json:"employees"`
	Balances  int `json:"balances"`
}

func strPtr(s string) *string { return &s }

// DemoEmployees is a manager and one direct report in Guangzhou.
func DemoEmployees() []model.PersonProfile {
	return []model.PersonProfile{
		{
			EmployeeID:       "EMP2001",
			Name:             "ZhaoPeng",
			Email:            "zhaopeng@company.com",
			EmploymentType:   "FTE",
			Location:         "Guangzhou",
			Department:       "DataTech",
			Grade:            "M2",
			LeavePolicyGroup: "FTE_CN_GZ",
		},
		{
			EmployeeID:       "EMP1001",
			Name:             "XiaoMing",
			Email:            "xiaoming@company.com",
			EmploymentType:   "FTE",
			Location:         "Guangzhou",
			Department:       "DataTech",
			Grade:            "IC2",
			LeavePolicyGroup: "FTE_CN_GZ",
			ManagerID:        strPtr("EMP2001"),
		},
	}
}

func DemoBalances() []model.LeaveBalance {
	return []model.LeaveBalance{
		{EmployeeID: "EMP1001", LeaveType: model.LeaveTypeAnnual, AvailableUnits: 10},
		{EmployeeID: "EMP1001", LeaveType: model.LeaveTypeSick, AvailableUnits: 5},
	}
}

// Seed inserts the demo data. Each table is skipped when it already has rows.
func (s *SQLiteStore) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult

	n, err := s.count(ctx, queryCountEmployees)
	if err != nil {
		return res, err
	}
	if n > 0 {
		logx.Info().Int("rows", n).Msg("employees already seeded, skipping")
	} else {
		// Managers come first so the foreign key resolves.
		for _, p := range DemoEmployees() {
			if err := s.InsertEmployee(ctx, p); err != nil {
				return res, err
			}
			res.Employees++
		}
	}

	n, err = s.count(ctx, queryCountBalances)
	if err != nil {
		return res, err
	}
	if n > 0 {
		logx.Info().Int("rows", n).Msg("leave balances already seeded, skipping")
		return res, nil
	}
	for _, b := range DemoBalances() {
		if err := s.UpsertBalance(ctx, b); err != nil {
			return res, err
		}
		res.Balances++
	}

	return res, nil
}

func (s *SQLiteStore) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
