package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ollama-gateway/internal/config"
	"ollama-gateway/internal/metrics"
	"ollama-gateway/internal/ollama"
)

const (
	maxBodyBytes        = 8 << 20 // 8 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg     config.Config
	backend *ollama.Client
	metrics *metrics.Metrics
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, backend *ollama.Client, m *metrics.Metrics) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend client must not be nil")
	}
	if m == nil {
		return nil, errors.New("metrics must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorEnvelopeHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(corsHeaders)
	e.Use(m.Middleware())

	srv := &Server{
		cfg:     cfg,
		backend: backend,
		metrics: m,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg)
	slog.Info("starting server", "addr", s.address)

	// No WriteTimeout: streamed responses are bounded by the backend
	// request timeout instead of a per-write deadline.
	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
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
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/", s.handleHealth)
	s.app.GET("/v1", s.handleHealth)
	s.app.GET("/v1/models", s.handleModels)
	s.app.GET("/favicon.ico", s.handleFavicon)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	s.app.POST("/chat/completions", s.handleChatCompletions)
	s.app.POST("/v1/chat/completions", s.handleChatCompletions)
	s.app.POST("/*", s.handlePassthrough)
	// The POST wildcard makes echo answer 405 for unknown GET paths;
	// a GET wildcard keeps those on the 404 envelope instead.
	s.app.GET("/*", s.handleUnknownPath)
}

// corsHeaders stamps every response, success or error, with the gateway's
// CORS allowances and answers preflights directly. Hand-rolled rather than
// echo's CORS middleware because that one skips the headers on requests
// without an Origin, and the wire contract requires them unconditionally.
func corsHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Response().Header()
		header.Set(echo.HeaderAccessControlAllowOrigin, "*")
		header.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS, GET")
		header.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")

		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusNoContent)
		}
		return next(c)
	}
}

// jsonWithLength sends a buffered JSON response with an explicit
// Content-Length header.
func jsonWithLength(c echo.Context, status int, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return serverError("encode response: %v", err)
	}
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	return c.Blob(status, echo.MIMEApplicationJSON, data)
}

func printStartupBanner(cfg config.Config) {
	fmt.Println()
	fmt.Println("ollama-gateway ready")
	fmt.Printf("Listening on http://127.0.0.1:%d\n", cfg.Server.Port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /v1/models")
	fmt.Println("  POST /v1/chat/completions")
	fmt.Println("  GET  /metrics")
	fmt.Printf("Point an OpenAI-compatible client at base URL http://127.0.0.1:%d/v1 (any API key works).\n", cfg.Server.Port)
	fmt.Printf("Backend: %s, default model %s\n\n", cfg.Ollama.URL, cfg.Ollama.DefaultModel)
}
