package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

type setPermissionsRequest struct {
	Permissions map[string]string `json:"permissions"`
}

type titlesRequest struct {
	NodeIDs []string `json:"node_ids"`
}

// TitlesResponse maps node ids to titles; unknown ids map to null.
type TitlesResponse struct {
	Titles map[string]*string `json:"titles"`
}

// AncestorsResponse lists ancestor node ids, nearest first.
type AncestorsResponse struct {
	Ancestors []string `json:"ancestors"`
}

// NodesResponse is one level of a permission tree.
type NodesResponse struct {
	Nodes []domain.ConnectorNode `json:"nodes"`
}

func (s *Server) setPermissions(c echo.Context) error {
	id, err := connectorID(c)
	if err != nil {
		return err
	}
	var req setPermissionsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if len(req.Permissions) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "permissions are required")
	}
	if err := s.ports.Permissions.SetPermissions(c.Request().Context(), id, req.Permissions); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listNodes(c echo.Context) error {
	id, err := connectorID(c)
	if err != nil {
		return err
	}

	readOnly := false
	switch filter := c.QueryParam("filter"); filter {
	case "":
	case string(domain.PermissionRead):
		readOnly = true
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "filter must be read")
	}

	nodes, err := s.ports.Permissions.Retrieve(c.Request().Context(), id, c.QueryParam("parent_id"), readOnly)
	if err != nil {
		return err
	}
	if nodes == nil {
		nodes = []domain.ConnectorNode{}
	}
	return c.JSON(http.StatusOK, NodesResponse{Nodes: nodes})
}

func (s *Server) ancestors(c echo.Context) error {
	id, err := connectorID(c)
	if err != nil {
		return err
	}
	nodeID := c.QueryParam("node_id")
	if nodeID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "node_id is required")
	}

	ancestors, err := s.ports.Permissions.Ancestors(c.Request().Context(), id, nodeID)
	if err != nil {
		return err
	}
	if ancestors == nil {
		ancestors = []string{}
	}
	return c.JSON(http.StatusOK, AncestorsResponse{Ancestors: ancestors})
}

func (s *Server) titles(c echo.Context) error {
	id, err := connectorID(c)
	if err != nil {
		return err
	}
	var req titlesRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	titles, err := s.ports.Permissions.Titles(c.Request().Context(), id, req.NodeIDs)
	if err != nil {
		return err
	}
	if titles == nil {
		titles = map[string]*string{}
	}
	return c.JSON(http.StatusOK, TitlesResponse{Titles: titles})
}
