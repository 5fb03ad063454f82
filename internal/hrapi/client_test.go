package hrapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(model.HRAPIConfig{BaseURL: srv.URL + "/", Timeout: time.Second, PolicyTimeout: time.Second})
}

func TestClient_DirectoryByEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/directory/by-email/xiaoming@company.com", r.URL.Path)
		mgr := "EMP2001"
		_ = json.NewEncoder(w).Encode(model.DirectoryResponse{
			EmployeeProfile: model.PersonProfile{EmployeeID: "EMP1001", Name: "XiaoMing", ManagerID: &mgr},
			ManagerProfile:  &model.PersonProfile{EmployeeID: "EMP2001", Name: "ZhaoPeng"},
		})
	})

	dir, err := c.DirectoryByEmail(context.Background(), "xiaoming@company.com")
	require.NoError(t, err)
	assert.Equal(t, "EMP1001", dir.EmployeeProfile.EmployeeID)
	require.NotNil(t, dir.ManagerProfile)
	assert.Equal(t, "ZhaoPeng", dir.ManagerProfile.Name)
	assert.Nil(t, dir.HRBPProfile)
}

func TestClient_UpdateCaseSendsPatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/cases/abc", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PENDING_APPROVAL", body["status"])
		_, hasPayload := body["payload_json"]
		assert.False(t, hasPayload)

		_ = json.NewEncoder(w).Encode(model.Case{CaseID: "abc", Status: model.CasePendingApproval})
	})

	st := model.CasePendingApproval
	got, err := c.UpdateCase(context.Background(), "abc", model.CasePatchRequest{Status: &st})
	require.NoError(t, err)
	assert.Equal(t, model.CasePendingApproval, got.Status)
}

func TestClient_Non2xxIsRemoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Case not found"}`, http.StatusNotFound)
	})

	_, err := c.GetCase(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrRemote))
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))
	assert.Contains(t, err.Error(), "Case not found")
}

func TestClient_TransportErrorIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(model.HRAPIConfig{BaseURL: srv.URL})

	_, err := c.LeaveBalance(context.Background(), "EMP1001", "ANNUAL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrRemote))
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestClient_PolicyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	c := NewClient(model.HRAPIConfig{BaseURL: srv.URL, Timeout: time.Second, PolicyTimeout: 50 * time.Millisecond})

	_, err := c.RetrievePolicy(context.Background(), model.PolicyRetrieveRequest{PolicyGroup: "G", Query: "q", TopK: 4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrRemote))
}

func TestClient_PathEscaping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leave-balances/EMP%2F1/ANNUAL", r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(model.LeaveBalance{EmployeeID: "EMP/1", LeaveType: "ANNUAL"})
	})

	_, err := c.LeaveBalance(context.Background(), "EMP/1", "ANNUAL")
	require.NoError(t, err)
}
