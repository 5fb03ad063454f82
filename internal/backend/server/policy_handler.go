package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

const defaultTopK = 4

type PolicyHandler struct {
	policies PolicyService
}

func NewPolicyHandler(policies PolicyService) *PolicyHandler {
	return &PolicyHandler{policies: policies}
}

func (h *PolicyHandler) Ingest(c echo.Context) error {
	var req model.PolicyIngestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.policies.Ingest(c.Request().Context(), req.PolicyGroup, req.DocPath)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Retrieve defaults an absent top_k to 4; an explicit out of range value
// is rejected by the service.
func (h *PolicyHandler) Retrieve(c echo.Context) error {
	req := model.PolicyRetrieveRequest{TopK: defaultTopK}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.policies.Retrieve(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
