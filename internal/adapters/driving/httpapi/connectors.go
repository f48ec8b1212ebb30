package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
)

// ConnectorResponse is the public view of a connector. The workspace API
// key is never returned.
type ConnectorResponse struct {
	ID                int64     `json:"id"`
	Provider          string    `json:"provider"`
	ConnectionID      string    `json:"connection_id"`
	RemoteWorkspaceID string    `json:"remote_workspace_id"`
	WorkspaceID       string    `json:"workspace_id"`
	DataSourceName    string    `json:"data_source_name"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func connectorResponse(c *domain.Connector) ConnectorResponse {
	return ConnectorResponse{
		ID:                c.ID,
		Provider:          string(c.Provider),
		ConnectionID:      c.ConnectionID,
		RemoteWorkspaceID: c.RemoteWorkspaceID,
		WorkspaceID:       c.WorkspaceID,
		DataSourceName:    c.DataSourceName,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

type createConnectorRequest struct {
	Provider        string `json:"provider"`
	ConnectionID    string `json:"connection_id"`
	WorkspaceID     string `json:"workspace_id"`
	DataSourceName  string `json:"data_source_name"`
	WorkspaceAPIKey string `json:"workspace_api_key"`
}

type updateConnectorRequest struct {
	ConnectionID string `json:"connection_id"`
}

func connectorID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid connector id")
	}
	return id, nil
}

func (s *Server) listConnectors(c echo.Context) error {
	connectors, err := s.ports.Connectors.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]ConnectorResponse, len(connectors))
	for i := range connectors {
		out[i] = connectorResponse(&connectors[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getConnector(c echo.Context) error {
	id, err := connectorID(c)
	if err != nil {
		return err
	}
	connector, err := s.ports.Connectors.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, connectorResponse(connector))
}

func (s *Server) createConnector(c echo.Context) error {
	var req createConnectorRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	connector, err := s.ports.Connectors.Create(c.Request().Context(), driving.CreateConnectorRequest{
		Provider:        domain.ProviderType(req.Provider),
		ConnectionID:    req.ConnectionID,
		WorkspaceID:     req.WorkspaceID,
		DataSourceName:  req.DataSourceName,
		WorkspaceAPIKey: req.WorkspaceAPIKey,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, connectorResponse(connector))
}

func (s *Server) updateConnector(c echo.Context) error {
	id, err := connectorID(c)
	if err != nil {
		return err
	}
	var req updateConnectorRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.ConnectionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "connection_id is required")
	}
	if err := s.ports.Connectors.Update(c.Request().Context(), id, req.ConnectionID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) cleanupConnector(c echo.Context) error {
	return s.connectorAction(c, s.ports.Connectors.Cleanup)
}

func (s *Server) stopConnector(c echo.Context) error {
	return s.connectorAction(c, s.ports.Connectors.Stop)
}

func (s *Server) resumeConnector(c echo.Context) error {
	return s.connectorAction(c, s.ports.Connectors.Resume)
}

func (s *Server) connectorAction(c echo.Context, action func(context.Context, int64) error) error {
	id, err := connectorID(c)
	if err != nil {
		return err
	}
	if err := action(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
