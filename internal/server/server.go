package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/todoagent/config"
	"github.com/mohammad-safakhou/todoagent/internal/agent/runtime"
	"github.com/mohammad-safakhou/todoagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/todoagent/internal/session"
	"github.com/mohammad-safakhou/todoagent/internal/todos"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

// Run serves the HTTP API until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config) error {
	tele := telemetry.NewTelemetry(nil)
	source := todos.NewClient(cfg.TodoSource.BaseURL, cfg.TodoSource.Timeout)
	rt := runtime.NewRuntime(cfg, source, tele, nil)

	e := newEcho(cfg, rt, tele)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(cfg.Server.Address); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newEcho assembles the router with middleware, health, metrics, and chat
// routes. Split from Run so tests can exercise the full routing table.
func newEcho(cfg *config.Config, rt *runtime.Runtime, tele *telemetry.Telemetry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	// Health endpoints never touch the agent runtime, so they keep serving
	// when the LLM side is misconfigured.
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": cfg.Telemetry.ServiceName,
			"version": Version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ch := &ChatHandler{
		Runtime:   rt,
		Sessions:  session.NewStore(0),
		Telemetry: tele,
	}
	ch.Register(e.Group("/api"))

	return e
}
