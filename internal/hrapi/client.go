// Package hrapi is the HTTP client for the leave-management backend.
package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

type Client struct {
	baseURL       string
	http          *http.Client
	timeout       time.Duration
	policyTimeout time.Duration
}

func NewClient(cfg model.HRAPIConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{})
}

func NewClientWithHTTP(cfg model.HRAPIConfig, hc *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PolicyTimeout <= 0 {
		cfg.PolicyTimeout = 20 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		http:          hc,
		timeout:       cfg.Timeout,
		policyTimeout: cfg.PolicyTimeout,
	}
}

func (c *Client) DirectoryByEmail(ctx context.Context, email string) (*model.DirectoryResponse, error) {
	var out model.DirectoryResponse
	err := c.do(ctx, "directory_by_email", http.MethodGet, "/directory/by-email/"+url.PathEscape(email), nil, &out, c.timeout)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DirectoryByID(ctx context.Context, employeeID string) (*model.DirectoryResponse, error) {
	var out model.DirectoryResponse
	err := c.do(ctx, "directory_by_id", http.MethodGet, "/directory/by-id/"+url.PathEscape(employeeID), nil, &out, c.timeout)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LeaveBalance(ctx context.Context, employeeID, leaveType string) (*model.LeaveBalance, error) {
	var out model.LeaveBalance
	path := "/leave-balances/" + url.PathEscape(employeeID) + "/" + url.PathEscape(leaveType)
	if err := c.do(ctx, "leave_balance", http.MethodGet, path, nil, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCase(ctx context.Context, req model.CaseCreateRequest) (*model.Case, error) {
	var out model.Case
	if err := c.do(ctx, "case_create", http.MethodPost, "/cases", req, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCase(ctx context.Context, caseID string) (*model.Case, error) {
	var out model.Case
	if err := c.do(ctx, "case_get", http.MethodGet, "/cases/"+url.PathEscape(caseID), nil, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCase(ctx context.Context, caseID string, patch model.CasePatchRequest) (*model.Case, error) {
	var out model.Case
	if err := c.do(ctx, "case_update", http.MethodPatch, "/cases/"+url.PathEscape(caseID), patch, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrievePolicy embeds the query server side, so it gets the longer timeout.
func (c *Client) RetrievePolicy(ctx context.Context, req model.PolicyRetrieveRequest) (*model.PolicyRetrieval, error) {
	var out model.PolicyRetrieval
	if err := c.do(ctx, "policy_retrieve", http.MethodPost, "/policy/retrieve", req, &out, c.policyTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// IngestPolicy has no client-side deadline beyond ctx; embedding a whole
// document can take a while.
func (c *Client) IngestPolicy(ctx context.Context, req model.PolicyIngestRequest) (*model.PolicyIngestResult, error) {
	var out model.PolicyIngestResult
	if err := c.do(ctx, "policy_ingest", http.MethodPost, "/policy/ingest", req, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("op", op).Str("path", path).Msg("hr api transport failure")
		return errx.WrapRemote(op, 0, err)
	}
	defer resp.Body.Close()

	logx.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("hr api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errx.WrapRemote(op, resp.StatusCode,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errx.WrapRemote(op, http.StatusBadGateway, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
