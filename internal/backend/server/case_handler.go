package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

// allowedStatuses is sorted for the error message.
var allowedStatuses = []model.CaseStatus{
	model.CaseApproved,
	model.CaseDraft,
	model.CasePendingApproval,
	model.CaseRejected,
}

type CaseHandler struct {
	store HRStore
}

func NewCaseHandler(store HRStore) *CaseHandler {
	return &CaseHandler{store: store}
}

func (h *CaseHandler) Create(c echo.Context) error {
	var req model.CaseCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	created, err := h.store.CreateCase(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, created)
}

func (h *CaseHandler) Get(c echo.Context) error {
	found, err := h.store.GetCase(c.Request().Context(), c.Param("case_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

// List requires ?requester_id= and returns newest cases first.
func (h *CaseHandler) List(c echo.Context) error {
	requesterID := c.QueryParam("requester_id")
	if requesterID == "" {
		return respondError(c, badRequest("requester_id query parameter is required"))
	}

	cases, err := h.store.ListCases(c.Request().Context(), requesterID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cases)
}

func (h *CaseHandler) Patch(c echo.Context) error {
	var patch model.CasePatchRequest
	if err := c.Bind(&patch); err != nil {
		return respondError(c, badRequest("invalid request body"))
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return respondError(c, badRequest(fmt.Sprintf("Invalid status. Allowed: %v", allowedStatuses)))
	}

	updated, err := h.store.UpdateCase(c.Request().Context(), c.Param("case_id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}
