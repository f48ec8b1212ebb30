package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "permsync://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "connectors",
		Name:        "connectors",
		Description: "All configured connectors",
		MIMEType:    "application/json",
	}, s.handleConnectorsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "connectors/{connectorId}/nodes",
		Name:        "connector-roots",
		Description: "Root nodes of a connector's permission tree",
		MIMEType:    "application/json",
	}, s.handleRootsResource)
}

type connectorInfo struct {
	ID                int64  `json:"id"`
	Provider          string `json:"provider"`
	RemoteWorkspaceID string `json:"remote_workspace_id"`
	DataSourceName    string `json:"data_source_name"`
	URI               string `json:"uri"`
}

func (s *Server) handleConnectorsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Connectors == nil {
		return jsonResult(req.Params.URI, []connectorInfo{})
	}

	connectors, err := s.ports.Connectors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing connectors: %w", err)
	}

	infos := make([]connectorInfo, len(connectors))
	for i := range connectors {
		c := &connectors[i]
		infos[i] = connectorInfo{
			ID:                c.ID,
			Provider:          string(c.Provider),
			RemoteWorkspaceID: c.RemoteWorkspaceID,
			DataSourceName:    c.DataSourceName,
			URI:               fmt.Sprintf("%sconnectors/%d/nodes", uriScheme, c.ID),
		}
	}
	return jsonResult(req.Params.URI, infos)
}

func (s *Server) handleRootsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	connectorID, ok := extractConnectorID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	nodes, err := s.ports.Permissions.Retrieve(ctx, connectorID, "", false)
	if err != nil {
		return nil, fmt.Errorf("listing roots: %w", err)
	}

	out := make([]NodeOutput, len(nodes))
	for i := range nodes {
		out[i] = nodeOutput(&nodes[i])
	}
	return jsonResult(req.Params.URI, out)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractConnectorID parses permsync://connectors/{connectorId}/nodes.
func extractConnectorID(uri string) (int64, bool) {
	rest, ok := strings.CutPrefix(uri, uriScheme+"connectors/")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "/nodes")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
