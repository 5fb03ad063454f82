package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// ChunkRecord is a stored policy chunk with its embedding.
type ChunkRecord struct {
	ChunkID    int64
	DocName    string
	ChunkIndex int
	Content    string
	Embedding  []float32
}

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*SQLiteStore)

// WithClock overrides the timestamp source for created_at / updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initializeSchema() error {
	for _, stmt := range schemaStatements() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func (s *SQLiteStore) EmployeeByID(ctx context.Context, employeeID string) (*model.PersonProfile, error) {
	return s.queryEmployee(ctx, queryEmployeeByID, employeeID)
}

func (s *SQLiteStore) EmployeeByEmail(ctx context.Context, email string) (*model.PersonProfile, error) {
	return s.queryEmployee(ctx, queryEmployeeByEmail, email)
}

func (s *SQLiteStore) queryEmployee(ctx context.Context, query string, arg string) (*model.PersonProfile, error) {
	p, err := scanEmployee(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errx.NotFound("Employee")
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return p, nil
}

// Directory resolves the manager, the manager's manager and an HRBP at
// the same location. Missing links stay nil.
func (s *SQLiteStore) Directory(ctx context.Context, emp *model.PersonProfile) (*model.DirectoryResponse, error) {
	resp := &model.DirectoryResponse{EmployeeProfile: *emp}

	if emp.ManagerID != nil && *emp.ManagerID != "" {
		mgr, err := s.optionalEmployee(ctx, *emp.ManagerID)
		if err != nil {
			return nil, err
		}
		resp.ManagerProfile = mgr
		if mgr != nil && mgr.ManagerID != nil && *mgr.ManagerID != "" {
			skip, err := s.optionalEmployee(ctx, *mgr.ManagerID)
			if err != nil {
				return nil, err
			}
			resp.SkipManagerProfile = skip
		}
	}

	hrbp, err := scanEmployee(s.db.QueryRowContext(ctx, queryHRBPByLocation, emp.Location))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("query hrbp: %w", err)
	default:
		resp.HRBPProfile = hrbp
	}

	return resp, nil
}

func (s *SQLiteStore) optionalEmployee(ctx context.Context, employeeID string) (*model.PersonProfile, error) {
	p, err := s.EmployeeByID(ctx, employeeID)
	if errors.Is(err, errx.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStore) InsertEmployee(ctx context.Context, p model.PersonProfile) error {
	var managerID any
	if p.ManagerID != nil {
		managerID = *p.ManagerID
	}
	_, err := s.db.ExecContext(ctx, queryInsertEmployee,
		p.EmployeeID, p.Name, p.Email, p.EmploymentType, p.Location,
		p.Department, p.Grade, p.LeavePolicyGroup, managerID)
	if err != nil {
		return fmt.Errorf("insert employee %s: %w", p.EmployeeID, err)
	}
	return nil
}

// Balances returns every balance row; an employee with none is a 404.
func (s *SQLiteStore) Balances(ctx context.Context, employeeID string) ([]model.LeaveBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryBalancesByEmployee, employeeID)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	balances, err := scanBalances(rows)
	if err != nil {
		return nil, err
	}
	if len(balances) == 0 {
		return nil, errx.New(
			fmt.Errorf("%w: balances for %s", errx.ErrNotFound, employeeID),
			http.StatusNotFound,
			"No leave balances found for this employee",
		)
	}
	return balances, nil
}

// Balance returns a zero balance when no row exists so agent workflows
// keep going deterministically.
func (s *SQLiteStore) Balance(ctx context.Context, employeeID, leaveType string) (model.LeaveBalance, error) {
	var b model.LeaveBalance
	err := s.db.QueryRowContext(ctx, queryBalance, employeeID, leaveType).
		Scan(&b.EmployeeID, &b.LeaveType, &b.AvailableUnits)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LeaveBalance{EmployeeID: employeeID, LeaveType: leaveType}, nil
	}
	if err != nil {
		return model.LeaveBalance{}, fmt.Errorf("query balance: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) UpsertBalance(ctx context.Context, b model.LeaveBalance) error {
	_, err := s.db.ExecContext(ctx, queryUpsertBalance, b.EmployeeID, b.LeaveType, b.AvailableUnits, s.timestamp())
	if err != nil {
		return fmt.Errorf("upsert balance %s/%s: %w", b.EmployeeID, b.LeaveType, err)
	}
	return nil
}

// CreateCase stores a new DRAFT case for an existing requester.
func (s *SQLiteStore) CreateCase(ctx context.Context, req model.CaseCreateRequest) (*model.Case, error) {
	if _, err := s.EmployeeByID(ctx, req.RequesterID); err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			return nil, errx.New(
				fmt.Errorf("%w: requester %q", errx.ErrInvalidArgument, req.RequesterID),
				http.StatusBadRequest,
				"requester_id does not exist",
			)
		}
		return nil, err
	}

	payload := req.PayloadJSON
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errx.Invalid("payload_json: %v", err)
	}

	now := s.timestamp()
	c := &model.Case{
		CaseID:      uuid.NewString(),
		RequesterID: req.RequesterID,
		CaseType:    req.CaseType,
		Status:      model.CaseDraft,
		PayloadJSON: payload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = s.db.ExecContext(ctx, queryInsertCase,
		c.CaseID, c.RequesterID, c.CaseType, string(c.Status), string(raw), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert case: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) GetCase(ctx context.Context, caseID string) (*model.Case, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx, queryCaseByID, caseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errx.NotFound("Case")
	}
	if err != nil {
		return nil, fmt.Errorf("query case: %w", err)
	}
	return c, nil
}

// ListCases returns the requester's cases, newest first.
func (s *SQLiteStore) ListCases(ctx context.Context, requesterID string) ([]model.Case, error) {
	rows, err := s.db.QueryContext(ctx, queryCasesByRequester, requesterID)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	return scanCases(rows)
}

// UpdateCase applies the non-nil patch fields and always touches updated_at.
// The status is expected to be validated by the caller.
func (s *SQLiteStore) UpdateCase(ctx context.Context, caseID string, patch model.CasePatchRequest) (*model.Case, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	c, err := scanCase(tx.QueryRowContext(ctx, queryCaseByID, caseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errx.NotFound("Case")
	}
	if err != nil {
		return nil, fmt.Errorf("query case: %w", err)
	}

	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.PayloadJSON != nil {
		c.PayloadJSON = patch.PayloadJSON
	}
	c.UpdatedAt = s.timestamp()

	raw, err := json.Marshal(c.PayloadJSON)
	if err != nil {
		return nil, errx.Invalid("payload_json: %v", err)
	}
	if _, err := tx.ExecContext(ctx, queryUpdateCase, string(c.Status), string(raw), c.UpdatedAt, caseID); err != nil {
		return nil, fmt.Errorf("update case: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit case update: %w", err)
	}
	return c, nil
}

// ReplaceChunks swaps every chunk of (group, doc) for the given set.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, policyGroup, docName string, chunks []ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryDeleteChunks, policyGroup, docName); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	now := s.timestamp()
	for _, ch := range chunks {
		vec, err := json.Marshal(ch.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding: %w", err)
		}
		if _, err := tx.ExecContext(ctx, queryInsertChunk,
			policyGroup, docName, ch.ChunkIndex, ch.Content, string(vec), now); err != nil {
			return fmt.Errorf("insert chunk %d: %w", ch.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ChunksByGroup(ctx context.Context, policyGroup string) ([]ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryChunksByGroup, policyGroup)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}
