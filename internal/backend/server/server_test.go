package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	"github.com/leave-agent-poc-v1/server/internal/backend/policy"
	"github.com/leave-agent-poc-v1/server/internal/backend/store"
)

// constEmbedder maps every text to the same direction except texts that
// mention "approv", which score higher against approval queries.
type constEmbedder struct{}

func (constEmbedder) vec(s string) []float32 {
	if strings.Contains(strings.ToLower(s), "approv") {
		return []float32{1, 1}
	}
	return []float32{0, 1}
}

func (e constEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

func (e constEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "hr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.Seed(context.Background())
	require.NoError(t, err)

	return New(Config{Port: 0}, st, policy.NewService(st, constEmbedder{}))
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDirectoryByEmail(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/directory/by-email/xiaoming@company.com", "")
	require.Equal(t, http.StatusOK, rec.Code)

	dir := decode[model.DirectoryResponse](t, rec)
	assert.Equal(t, "EMP1001", dir.EmployeeProfile.EmployeeID)
	require.NotNil(t, dir.ManagerProfile)
	assert.Equal(t, "EMP2001", dir.ManagerProfile.EmployeeID)
	assert.Nil(t, dir.SkipManagerProfile)
	assert.Contains(t, rec.Body.String(), `"hrbp_profile":null`)

	rec = do(t, s, http.MethodGet, "/directory/by-id/EMP2001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[model.DirectoryResponse](t, rec).ManagerProfile)

	rec = do(t, s, http.MethodGet, "/directory/by-id/EMP0000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Employee not found"}`, rec.Body.String())
}

func TestLeaveBalances(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/leave-balances/EMP1001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[model.LeaveBalances](t, rec)
	assert.Len(t, all.Balances, 2)

	rec = do(t, s, http.MethodGet, "/leave-balances/EMP2001", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/leave-balances/EMP1001/ANNUAL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"employee_id":"EMP1001","leave_type":"ANNUAL","available_units":10}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/leave-balances/EMP2001/ANNUAL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"employee_id":"EMP2001","leave_type":"ANNUAL","available_units":0}`, rec.Body.String())
}

func TestCaseEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/cases", `{"requester_id":"EMP1001","case_type":"LEAVE_REQUEST","payload_json":{"days":2}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[model.Case](t, rec)
	assert.Equal(t, model.CaseDraft, created.Status)

	rec = do(t, s, http.MethodGet, "/cases/"+created.CaseID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.CaseID, decode[model.Case](t, rec).CaseID)

	rec = do(t, s, http.MethodPatch, "/cases/"+created.CaseID, `{"status":"PENDING_APPROVAL"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decode[model.Case](t, rec)
	assert.Equal(t, model.CasePendingApproval, patched.Status)
	assert.Equal(t, map[string]any{"days": 2.0}, patched.PayloadJSON)

	rec = do(t, s, http.MethodPatch, "/cases/"+created.CaseID, `{"status":"CLOSED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid status. Allowed: [APPROVED DRAFT PENDING_APPROVAL REJECTED]"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/cases?requester_id=EMP1001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Case](t, rec), 1)

	rec = do(t, s, http.MethodGet, "/cases?requester_id=EMP2001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/cases", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/cases/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Case not found"}`, rec.Body.String())
}

func TestCreateCaseRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/cases", `{"requester_id":"EMP9999","case_type":"LEAVE_REQUEST"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"requester_id does not exist"}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/cases", `{"requester_id":"EMP1001"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CaseType failed required")

	rec = do(t, s, http.MethodPost, "/cases", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyIngestAndRetrieve(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/policy/retrieve", `{"policy_group":"FTE_CN_GZ","query":"who approves"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"No policy chunks found for policy_group"}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/policy/ingest", `{"policy_group":"FTE_CN_GZ"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ingested := decode[model.PolicyIngestResult](t, rec)
	assert.Equal(t, policy.DefaultDocName, ingested.DocName)

	rec = do(t, s, http.MethodPost, "/policy/retrieve", `{"policy_group":"FTE_CN_GZ","query":"who approves"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.PolicyRetrieval](t, rec)
	assert.Equal(t, 4, got.TopK)
	require.NotEmpty(t, got.Chunks)
	assert.Contains(t, strings.ToLower(got.Chunks[0].Content), "approv")

	rec = do(t, s, http.MethodPost, "/policy/retrieve", `{"policy_group":"FTE_CN_GZ","query":"q","top_k":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"top_k must be between 1 and 10"}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/policy/ingest", `{"policy_group":"FTE_CN_GZ","doc_path":"/missing.md"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
