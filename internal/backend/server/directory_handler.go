package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

type DirectoryHandler struct {
	store HRStore
}

func NewDirectoryHandler(store HRStore) *DirectoryHandler {
	return &DirectoryHandler{store: store}
}

// ByEmail returns the employee profile plus reporting line for an email.
func (h *DirectoryHandler) ByEmail(c echo.Context) error {
	ctx := c.Request().Context()

	emp, err := h.store.EmployeeByEmail(ctx, c.Param("email"))
	if err != nil {
		return respondError(c, err)
	}
	return h.respond(c, emp)
}

func (h *DirectoryHandler) ByID(c echo.Context) error {
	ctx := c.Request().Context()

	emp, err := h.store.EmployeeByID(ctx, c.Param("employee_id"))
	if err != nil {
		return respondError(c, err)
	}
	return h.respond(c, emp)
}

func (h *DirectoryHandler) respond(c echo.Context, emp *model.PersonProfile) error {
	dir, err := h.store.Directory(c.Request().Context(), emp)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dir)
}
