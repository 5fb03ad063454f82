package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

type Config struct {
	Port            int           `envconfig:"BACKEND_PORT" default:"8000"`
	ReadTimeout     time.Duration `envconfig:"BACKEND_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"BACKEND_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"BACKEND_SHUTDOWN_TIMEOUT" default:"10s"`
}

// HRStore is the directory, balance and case storage behind the API.
type HRStore interface {
	EmployeeByID(ctx context.Context, employeeID string) (*model.PersonProfile, error)
	EmployeeByEmail(ctx context.Context, email string) (*model.PersonProfile, error)
	Directory(ctx context.Context, emp *model.PersonProfile) (*model.DirectoryResponse, error)
	Balances(ctx context.Context, employeeID string) ([]model.LeaveBalance, error)
	Balance(ctx context.Context, employeeID, leaveType string) (model.LeaveBalance, error)
	CreateCase(ctx context.Context, req model.CaseCreateRequest) (*model.Case, error)
	GetCase(ctx context.Context, caseID string) (*model.Case, error)
	ListCases(ctx context.Context, requesterID string) ([]model.Case, error)
	UpdateCase(ctx context.Context, caseID string, patch model.CasePatchRequest) (*model.Case, error)
}

type PolicyService interface {
	Ingest(ctx context.Context, policyGroup, docPath string) (*model.PolicyIngestResult, error)
	Retrieve(ctx context.Context, req model.PolicyRetrieveRequest) (*model.PolicyRetrieval, error)
}

type Server struct {
	echo   *echo.Echo
	config Config
}

func New(cfg Config, hr HRStore, policies PolicyService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	s := &Server{
		echo:   e,
		config: cfg,
	}

	s.setupMiddleware()
	s.setupRoutes(hr, policies)

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	logx.Info().Int("port", s.config.Port).Msg("starting HR backend")

	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	logx.Info().Msg("shutting down HR backend")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logx.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.echo.Use(middleware.Recover())
}

func (s *Server) setupRoutes(hr HRStore, policies PolicyService) {
	directory := NewDirectoryHandler(hr)
	balances := NewBalanceHandler(hr)
	cases := NewCaseHandler(hr)
	policy := NewPolicyHandler(policies)

	s.echo.GET("/health", s.handleHealth)

	s.echo.GET("/directory/by-email/:email", directory.ByEmail)
	s.echo.GET("/directory/by-id/:employee_id", directory.ByID)

	s.echo.GET("/leave-balances/:employee_id", balances.All)
	s.echo.GET("/leave-balances/:employee_id/:leave_type", balances.One)

	s.echo.POST("/cases", cases.Create)
	s.echo.GET("/cases", cases.List)
	s.echo.GET("/cases/:case_id", cases.Get)
	s.echo.PATCH("/cases/:case_id", cases.Patch)

	s.echo.POST("/policy/ingest", policy.Ingest)
	s.echo.POST("/policy/retrieve", policy.Retrieve)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
