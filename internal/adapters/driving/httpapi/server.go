package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/permsync/internal/core/ports/driving"
	"github.com/custodia-labs/permsync/internal/logger"
	"github.com/custodia-labs/permsync/internal/metrics"
)

// ErrMissingPermissionService is returned when the permission service is not provided.
var ErrMissingPermissionService = errors.New("httpapi: permission service is required")

// ErrMissingConnectorService is returned when the connector service is not provided.
var ErrMissingConnectorService = errors.New("httpapi: connector service is required")

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	Permissions driving.PermissionManager
	Connectors  driving.ConnectorManager

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Permissions == nil {
		return ErrMissingPermissionService
	}
	if p.Connectors == nil {
		return ErrMissingConnectorService
	}
	return nil
}

// Server is the HTTP API.
type Server struct {
	ports *Ports
	echo  *echo.Echo
}

// NewServer builds the Echo instance and registers every route.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(requestLogger())

	s := &Server{ports: ports, echo: e}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if s.ports.MCP != nil {
		s.echo.Any("/mcp", echo.WrapHandler(s.ports.MCP))
	}

	g := s.echo.Group("/api/v1")

	g.GET("/connectors", s.listConnectors)
	g.POST("/connectors", s.createConnector)
	g.GET("/connectors/:id", s.getConnector)
	g.PATCH("/connectors/:id", s.updateConnector)
	g.DELETE("/connectors/:id", s.cleanupConnector)
	g.POST("/connectors/:id/stop", s.stopConnector)
	g.POST("/connectors/:id/resume", s.resumeConnector)

	g.POST("/connectors/:id/permissions", s.setPermissions)
	g.GET("/connectors/:id/nodes", s.listNodes)
	g.GET("/connectors/:id/ancestors", s.ancestors)
	g.POST("/connectors/:id/titles", s.titles)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			logger.Warn("httpapi: shutdown: %v", err)
		}
	}()

	logger.Info("httpapi: listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
