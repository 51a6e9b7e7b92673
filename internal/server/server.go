package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"llmbridge/internal/agent"
	"llmbridge/internal/config"
	"llmbridge/internal/logging"
	"llmbridge/internal/provider"
	"llmbridge/internal/router"
	"llmbridge/internal/translator"
)

const (
	maxBodyBytes        = 8 << 20 // 8 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 5 * time.Minute
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg     config.Config
	router  *router.Router
	agents  map[string]*agent.Agent
	logger  *slog.Logger
	app     *echo.Echo
	address string
	now     func() time.Time
}

// New constructs an HTTP server wired with routing and middleware. Configured
// agents are bound against the router's registry up front.
func New(ctx context.Context, cfg config.Config, rt *router.Router, logger *slog.Logger) (*Server, error) {
	if rt == nil {
		return nil, errors.New("router must not be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	agents := make(map[string]*agent.Agent, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		a, err := agent.FromRegistry(ctx, rt.Registry(), ac)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", ac.Name, err)
		}
		agents[a.Name()] = a
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"request_id", v.RequestID,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:     cfg,
		router:  rt,
		agents:  agents,
		logger:  logger,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
		now:     time.Now,
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the echo instance, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	s.logger.Info("starting server", "addr", s.address, "agents", len(s.agents))

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/models", s.handleModels)
	s.app.POST("/v1/complete", s.handleComplete)
	s.app.POST("/v1/agents/:name/complete", s.handleAgentComplete)
	s.app.POST("/v1/batches", s.handleCreateBatch)
	s.app.GET("/v1/batches/:provider/:id", s.handleCheckBatch)
	s.app.GET("/v1/batches/:provider/:id/results", s.handleBatchResults)
	s.app.POST("/v1/batches/:provider/:id/cancel", s.handleCancelBatch)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.router.Registry().Names(),
	})
}

func (s *Server) handleModels(c echo.Context) error {
	list, err := s.router.ListModels(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.FromDescriptors(list))
}

func (s *Server) handleComplete(c echo.Context) error {
	var req translator.CompleteRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	resp, _, err := s.router.Complete(ctx, req.Model, translator.ToMessages(req.Messages), req.Options.ToUnified())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.FromResult(s.now().Unix(), resp))
}

func (s *Server) handleAgentComplete(c echo.Context) error {
	a, ok := s.agents[c.Param("name")]
	if !ok {
		return requestError{
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("agent %q is not configured", c.Param("name")),
			Type:    "invalid_request_error",
			Code:    "agent_not_found",
		}
	}

	var req translator.AgentCompleteRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return invalidRequest(err)
	}

	resp, err := a.Complete(c.Request().Context(), translator.ToMessages(req.Messages), req.Options.ToUnified())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.FromResult(s.now().Unix(), resp))
}

func (s *Server) handleCreateBatch(c echo.Context) error {
	var req translator.BatchRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	providerName, _, err := provider.SplitKey(req.Model)
	if err != nil {
		return toHTTPError(err)
	}

	items, opts := req.ToUnified()
	sub, err := s.router.CreateBatch(c.Request().Context(), req.Model, items, opts)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, translator.FromSubmission(providerName, sub))
}

func (s *Server) handleCheckBatch(c echo.Context) error {
	status, err := s.router.CheckBatch(c.Request().Context(), c.Param("provider"), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleBatchResults(c echo.Context) error {
	jobID := c.Param("id")
	results, err := s.router.RetrieveBatch(c.Request().Context(), c.Param("provider"), jobID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.FromResults(jobID, results))
}

func (s *Server) handleCancelBatch(c echo.Context) error {
	jobID := c.Param("id")
	ok, err := s.router.CancelBatch(c.Request().Context(), c.Param("provider"), jobID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.BatchCancelled{JobID: jobID, Cancelled: ok})
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("llmbridge ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /v1/models")
	fmt.Println("  POST /v1/complete")
	fmt.Println("  POST /v1/agents/:name/complete")
	fmt.Println("  POST /v1/batches")
	fmt.Println("  GET  /v1/batches/:provider/:id[/results]")
	fmt.Println("  POST /v1/batches/:provider/:id/cancel")
	fmt.Printf("Example:\n  curl http://%s:%d/v1/complete -H 'Content-Type: application/json' -d '{\"model\":\"openai/gpt-4o-mini\",\"messages\":[{\"role\":\"user\",\"content\":\"hello\"}]}'\n\n", host, port)
}
