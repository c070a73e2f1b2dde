// Package restapi is the HTTP façade over SessionCoordinator: route
// registration, request/response wire shapes, and the thin auth/topology
// collaborators the core algorithm treats as external (§6 of the design).
package restapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"domain-orchestrator/internal/logger"
	"domain-orchestrator/internal/session"
	"domain-orchestrator/internal/topology"
	"go.uber.org/zap"
)

// Config holds the façade's own HTTP server configuration.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns the façade's production defaults.
func DefaultConfig() Config {
	return Config{
		Port:         "8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server wraps an Echo instance bound to one Coordinator.
type Server struct {
	Echo   *echo.Echo
	cfg    Config
	coord  *session.Coordinator
	topo   *topology.Provider
	tokens *tokenIssuer
}

// New builds the façade, registering every route in the REST API table.
func New(cfg Config, coord *session.Coordinator, topo *topology.Provider) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout
	e.Server.IdleTimeout = cfg.IdleTimeout

	s := &Server{Echo: e, cfg: cfg, coord: coord, topo: topo, tokens: newTokenIssuer()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.POST("/login", s.handleLogin)
	s.Echo.GET("/topology", s.handleTopology, s.requireAuth)

	s.Echo.POST("/NF-FG/:id", s.handlePostGraph, s.requireAuth)
	s.Echo.PUT("/NF-FG/:id", s.handlePutGraph, s.requireAuth)
	s.Echo.GET("/NF-FG/:id", s.handleGetGraph, s.requireAuth)
	s.Echo.DELETE("/NF-FG/:id", s.handleDeleteGraph, s.requireAuth)
	s.Echo.GET("/NF-FG/", s.handleListGraphs, s.requireAuth)
	s.Echo.GET("/NF-FG/status/:id", s.handleStatusGraph, s.requireAuth)
	s.Echo.GET("/NF-FG/status/:id/stream", s.handleStatusStream, s.requireAuth)
}

// Start runs the HTTP server until it fails or is closed. It installs no
// signal handler and performs no graceful shutdown: SIGINT/SIGTERM end the
// process without draining in-flight requests.
func (s *Server) Start(addr string) error {
	logger.Info("restapi: listening", zap.String("addr", addr))
	err := s.Echo.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
