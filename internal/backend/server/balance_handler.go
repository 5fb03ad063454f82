package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

type BalanceHandler struct {
	store HRStore
}

func NewBalanceHandler(store HRStore) *BalanceHandler {
	return &BalanceHandler{store: store}
}

func (h *BalanceHandler) All(c echo.Context) error {
	employeeID := c.Param("employee_id")

	balances, err := h.store.Balances(c.Request().Context(), employeeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.LeaveBalances{EmployeeID: employeeID, Balances: balances})
}

// One never 404s; a missing row is reported as zero units.
func (h *BalanceHandler) One(c echo.Context) error {
	b, err := h.store.Balance(c.Request().Context(), c.Param("employee_id"), c.Param("leave_type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
