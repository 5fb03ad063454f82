package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	errx "github.com/leave-agent-poc-v1/server/internal/core/error"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (r *requestValidator) Validate(i any) error {
	err := r.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return badRequest(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return badRequest(strings.Join(fields, "; "))
}

func badRequest(msg string) *errx.AppError {
	return errx.New(fmt.Errorf("%w: %s", errx.ErrInvalidArgument, msg), http.StatusBadRequest, msg)
}

// bindAndValidate decodes the request body into dst and checks its tags.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest("invalid request body")
	}
	return c.Validate(dst)
}

// respondError renders err as {"error": message} with the status it carries.
// Errors without a status are reported as a generic 500.
func respondError(c echo.Context, err error) error {
	status := errx.StatusOf(err)
	msg := errx.SystemErrorMessage

	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	}

	ev := logx.Debug()
	if status >= http.StatusInternalServerError {
		ev = logx.Error()
	}
	ev.Err(err).Int("status", status).Str("path", c.Path()).Msg("request failed")

	return c.JSON(status, map[string]string{"error": msg})
}
