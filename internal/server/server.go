// Package server exposes the keep-alive, health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatusSource reports provider state for /healthz.
type StatusSource interface {
	Health() map[string]bool
	CacheSize() int
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    string          `json:"status"`
	Sources   map[string]bool `json:"sources"`
	Healthy   int             `json:"healthy_sources"`
	CacheSize int             `json:"cache_size"`
	Uptime    string          `json:"uptime"`
}

// Server wraps the Echo HTTP server.
type Server struct {
	echo    *echo.Echo
	addr    string
	status  StatusSource
	log     zerolog.Logger
	started time.Time
}

// New creates a server listening on addr.
func New(addr string, status StatusSource, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, addr: addr, status: status, log: log, started: time.Now()}

	e.Use(middleware.Recover())
	e.Use(s.requestLogging())

	e.GET("/", s.index)
	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return s
}

func (s *Server) requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			s.log.Debug().
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("http request")
			return err
		}
	}
}

func (s *Server) index(c echo.Context) error {
	return c.String(http.StatusOK, "SignalDesk is running")
}

func (s *Server) healthz(c echo.Context) error {
	health := s.status.Health()
	resp := HealthResponse{
		Status:    "ok",
		Sources:   health,
		CacheSize: s.status.CacheSize(),
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
	}
	for _, ok := range health {
		if ok {
			resp.Healthy++
		}
	}
	if resp.Healthy == 0 {
		resp.Status = "degraded"
	}
	return c.JSON(http.StatusOK, resp)
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server error")
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }
