package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*model.PersonProfile, error) {
	var (
		p         model.PersonProfile
		managerID sql.NullString
	)
	err := row.Scan(&p.EmployeeID, &p.Name, &p.Email, &p.EmploymentType, &p.Location,
		&p.Department, &p.Grade, &p.LeavePolicyGroup, &managerID)
	if err != nil {
		return nil, err
	}
	if managerID.Valid {
		p.ManagerID = &managerID.String
	}
	return &p, nil
}

func scanBalances(rows *sql.Rows) ([]model.LeaveBalance, error) {
	var out []model.LeaveBalance
	for rows.Next() {
		var b model.LeaveBalance
		if err := rows.Scan(&b.EmployeeID, &b.LeaveType, &b.AvailableUnits); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}

func scanCase(row rowScanner) (*model.Case, error) {
	var (
		c       model.Case
		status  string
		payload string
	)
	if err := row.Scan(&c.CaseID, &c.RequesterID, &c.CaseType, &status, &payload, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = model.CaseStatus(status)
	if err := json.Unmarshal([]byte(payload), &c.PayloadJSON); err != nil {
		return nil, fmt.Errorf("decode payload of case %s: %w", c.CaseID, err)
	}
	if c.PayloadJSON == nil {
		c.PayloadJSON = map[string]any{}
	}
	return &c, nil
}

func scanCases(rows *sql.Rows) ([]model.Case, error) {
	out := []model.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

func scanChunks(rows *sql.Rows) ([]ChunkRecord, error) {
	var out []ChunkRecord
	for rows.Next() {
		var (
			ch  ChunkRecord
			vec string
		)
		if err := rows.Scan(&ch.ChunkID, &ch.DocName, &ch.ChunkIndex, &ch.Content, &vec); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(vec), &ch.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding of chunk %d: %w", ch.ChunkID, err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}
