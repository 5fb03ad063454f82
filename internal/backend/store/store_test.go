package store

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
)

// steppingClock advances one second per call so ordering is stable.
func steppingClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "hr.db"), WithClock(steppingClock()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seededStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := setupTestStore(t)
	_, err := s.Seed(context.Background())
	require.NoError(t, err)
	return s
}

func TestSeedIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Employees: 2, Balances: 2}, first)

	second, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, second)
}

func TestDirectoryResolvesManagerChain(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	emp, err := s.EmployeeByEmail(ctx, "xiaoming@company.com")
	require.NoError(t, err)
	require.NotNil(t, emp.ManagerID)
	assert.Equal(t, "EMP2001", *emp.ManagerID)

	dir, err := s.Directory(ctx, emp)
	require.NoError(t, err)
	require.NotNil(t, dir.ManagerProfile)
	assert.Equal(t, "ZhaoPeng", dir.ManagerProfile.Name)
	assert.Nil(t, dir.SkipManagerProfile)
	assert.Nil(t, dir.HRBPProfile)
}

func TestDirectoryFindsSkipManagerAndHRBP(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEmployee(ctx, model.PersonProfile{
		EmployeeID: "EMP3001", Name: "LiNa", Email: "lina@company.com", EmploymentType: "FTE",
		Location: "Guangzhou", Department: "People Ops", Grade: "HRBP2", LeavePolicyGroup: "FTE_CN_GZ",
	}))
	require.NoError(t, s.InsertEmployee(ctx, model.PersonProfile{
		EmployeeID: "EMP4001", Name: "Wang", Email: "wang@company.com", EmploymentType: "FTE",
		Location: "Shanghai", Department: "hr", Grade: "M1", LeavePolicyGroup: "FTE_CN_SH",
	}))
	require.NoError(t, s.InsertEmployee(ctx, model.PersonProfile{
		EmployeeID: "EMP0500", Name: "Intern", Email: "intern@company.com", EmploymentType: "Contractor",
		Location: "Guangzhou", Department: "DataTech", Grade: "I1", LeavePolicyGroup: "CTR_CN_GZ",
		ManagerID: strPtr("EMP1001"),
	}))

	emp, err := s.EmployeeByID(ctx, "EMP0500")
	require.NoError(t, err)
	dir, err := s.Directory(ctx, emp)
	require.NoError(t, err)

	require.NotNil(t, dir.ManagerProfile)
	assert.Equal(t, "EMP1001", dir.ManagerProfile.EmployeeID)
	require.NotNil(t, dir.SkipManagerProfile)
	assert.Equal(t, "EMP2001", dir.SkipManagerProfile.EmployeeID)
	require.NotNil(t, dir.HRBPProfile)
	assert.Equal(t, "EMP3001", dir.HRBPProfile.EmployeeID)
}

func TestEmployeeNotFound(t *testing.T) {
	s := seededStore(t)

	_, err := s.EmployeeByEmail(context.Background(), "nobody@company.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))
}

func TestBalances(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	all, err := s.Balances(ctx, "EMP1001")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.LeaveTypeAnnual, all[0].LeaveType)
	assert.Equal(t, 10.0, all[0].AvailableUnits)

	_, err = s.Balances(ctx, "EMP2001")
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))

	one, err := s.Balance(ctx, "EMP1001", model.LeaveTypeSick)
	require.NoError(t, err)
	assert.Equal(t, 5.0, one.AvailableUnits)

	missing, err := s.Balance(ctx, "EMP2001", model.LeaveTypeAnnual)
	require.NoError(t, err)
	assert.Equal(t, model.LeaveBalance{EmployeeID: "EMP2001", LeaveType: model.LeaveTypeAnnual}, missing)
}

func TestCaseLifecycle(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	created, err := s.CreateCase(ctx, model.CaseCreateRequest{
		RequesterID: "EMP1001",
		CaseType:    model.CaseTypeLeaveRequest,
		PayloadJSON: map[string]any{"start_date": "2026-03-20", "units": 2.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.CaseDraft, created.Status)
	assert.Len(t, created.CaseID, 36)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.GetCase(ctx, created.CaseID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	pending := model.CasePendingApproval
	updated, err := s.UpdateCase(ctx, created.CaseID, model.CasePatchRequest{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, model.CasePendingApproval, updated.Status)
	assert.Equal(t, created.PayloadJSON, updated.PayloadJSON)
	assert.Greater(t, updated.UpdatedAt, created.UpdatedAt)

	replaced, err := s.UpdateCase(ctx, created.CaseID, model.CasePatchRequest{PayloadJSON: map[string]any{"note": "x"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"note": "x"}, replaced.PayloadJSON)
	assert.Equal(t, model.CasePendingApproval, replaced.Status)

	_, err = s.UpdateCase(ctx, "missing", model.CasePatchRequest{})
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))
}

func TestCreateCaseRejectsUnknownRequester(t *testing.T) {
	s := seededStore(t)

	_, err := s.CreateCase(context.Background(), model.CaseCreateRequest{RequesterID: "EMP9999", CaseType: "LEAVE_REQUEST"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrInvalidArgument))
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
}

func TestListCasesNewestFirst(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		c, err := s.CreateCase(ctx, model.CaseCreateRequest{RequesterID: "EMP1001", CaseType: "LEAVE_REQUEST"})
		require.NoError(t, err)
		ids = append(ids, c.CaseID)
	}

	cases, err := s.ListCases(ctx, "EMP1001")
	require.NoError(t, err)
	require.Len(t, cases, 3)
	assert.Equal(t, ids[2], cases[0].CaseID)
	assert.Equal(t, ids[0], cases[2].CaseID)
	assert.Equal(t, map[string]any{}, cases[0].PayloadJSON)

	none, err := s.ListCases(ctx, "EMP2001")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReplaceChunks(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := []ChunkRecord{
		{ChunkIndex: 0, Content: "a", Embedding: []float32{1, 0}},
		{ChunkIndex: 1, Content: "b", Embedding: []float32{0, 1}},
	}
	require.NoError(t, s.ReplaceChunks(ctx, "FTE_CN_GZ", "doc.md", first))
	require.NoError(t, s.ReplaceChunks(ctx, "FTE_CN_GZ", "other.md", first[:1]))
	require.NoError(t, s.ReplaceChunks(ctx, "FTE_CN_GZ", "doc.md", first[1:]))

	chunks, err := s.ChunksByGroup(ctx, "FTE_CN_GZ")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "other.md", chunks[0].DocName)
	assert.Equal(t, "doc.md", chunks[1].DocName)
	assert.Equal(t, "b", chunks[1].Content)
	assert.Equal(t, []float32{0, 1}, chunks[1].Embedding)

	empty, err := s.ChunksByGroup(ctx, "CTR_CN_GZ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
