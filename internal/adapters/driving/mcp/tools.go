package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

// SetPermissionsInput is the input schema for the set_permissions tool.
type SetPermissionsInput struct {
	ConnectorID int64             `json:"connector_id" jsonschema:"id of the connector to change"`
	Permissions map[string]string `json:"permissions" jsonschema:"map of internal node id to read or none"`
}

// SetPermissionsOutput is the output schema for the set_permissions tool.
type SetPermissionsOutput struct {
	Applied int `json:"applied"`
}

// AncestorsInput is the input schema for the get_ancestors tool.
type AncestorsInput struct {
	ConnectorID int64  `json:"connector_id" jsonschema:"id of the connector"`
	NodeID      string `json:"node_id" jsonschema:"internal node id"`
}

// AncestorsOutput is the output schema for the get_ancestors tool.
type AncestorsOutput struct {
	Ancestors []string `json:"ancestors"`
}

// TitlesInput is the input schema for the get_titles tool.
type TitlesInput struct {
	ConnectorID int64    `json:"connector_id" jsonschema:"id of the connector"`
	NodeIDs     []string `json:"node_ids" jsonschema:"internal node ids to resolve"`
}

// TitlesOutput is the output schema for the get_titles tool.
type TitlesOutput struct {
	Titles []TitleOutput `json:"titles"`
}

// TitleOutput is one resolved node. Found is false for unknown ids.
type TitleOutput struct {
	NodeID string `json:"node_id"`
	Title  string `json:"title,omitempty"`
	Found  bool   `json:"found"`
}

// ListNodesInput is the input schema for the list_nodes tool.
type ListNodesInput struct {
	ConnectorID int64  `json:"connector_id" jsonschema:"id of the connector"`
	ParentID    string `json:"parent_id,omitempty" jsonschema:"internal id of the parent node; omit for roots"`
	ReadOnly    bool   `json:"read_only,omitempty" jsonschema:"only return nodes currently synced"`
}

// ListNodesOutput is the output schema for the list_nodes tool.
type ListNodesOutput struct {
	Nodes []NodeOutput `json:"nodes"`
	Count int          `json:"count"`
}

// NodeOutput is one entry of a permission tree.
type NodeOutput struct {
	NodeID     string `json:"node_id"`
	ParentID   string `json:"parent_id,omitempty"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	SourceURL  string `json:"source_url,omitempty"`
	Expandable bool   `json:"expandable"`
	Permission string `json:"permission"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_permissions",
		Description: "Set read or none on nodes of a connector; read nodes are synced",
	}, s.handleSetPermissions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_ancestors",
		Description: "List the ancestor node ids of a node, nearest first",
	}, s.handleAncestors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_titles",
		Description: "Resolve node ids to display titles",
	}, s.handleTitles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_nodes",
		Description: "List the children of a node in the permission tree",
	}, s.handleListNodes)
}

func (s *Server) handleSetPermissions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetPermissionsInput,
) (*mcp.CallToolResult, SetPermissionsOutput, error) {
	if err := s.ports.Permissions.SetPermissions(ctx, input.ConnectorID, input.Permissions); err != nil {
		return nil, SetPermissionsOutput{}, err
	}
	return nil, SetPermissionsOutput{Applied: len(input.Permissions)}, nil
}

func (s *Server) handleAncestors(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AncestorsInput,
) (*mcp.CallToolResult, AncestorsOutput, error) {
	ancestors, err := s.ports.Permissions.Ancestors(ctx, input.ConnectorID, input.NodeID)
	if err != nil {
		return nil, AncestorsOutput{}, err
	}
	if ancestors == nil {
		ancestors = []string{}
	}
	return nil, AncestorsOutput{Ancestors: ancestors}, nil
}

func (s *Server) handleTitles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TitlesInput,
) (*mcp.CallToolResult, TitlesOutput, error) {
	titles, err := s.ports.Permissions.Titles(ctx, input.ConnectorID, input.NodeIDs)
	if err != nil {
		return nil, TitlesOutput{}, err
	}

	// Keep request order; the service answers with a map.
	output := TitlesOutput{Titles: make([]TitleOutput, 0, len(input.NodeIDs))}
	for _, id := range input.NodeIDs {
		entry := TitleOutput{NodeID: id}
		if title := titles[id]; title != nil {
			entry.Title = *title
			entry.Found = true
		}
		output.Titles = append(output.Titles, entry)
	}
	return nil, output, nil
}

func (s *Server) handleListNodes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListNodesInput,
) (*mcp.CallToolResult, ListNodesOutput, error) {
	nodes, err := s.ports.Permissions.Retrieve(ctx, input.ConnectorID, input.ParentID, input.ReadOnly)
	if err != nil {
		return nil, ListNodesOutput{}, err
	}

	output := ListNodesOutput{
		Nodes: make([]NodeOutput, len(nodes)),
		Count: len(nodes),
	}
	for i := range nodes {
		output.Nodes[i] = nodeOutput(&nodes[i])
	}
	return nil, output, nil
}

func nodeOutput(n *domain.ConnectorNode) NodeOutput {
	return NodeOutput{
		NodeID:     n.InternalID,
		ParentID:   n.ParentInternalID,
		Type:       string(n.Type),
		Title:      n.Title,
		SourceURL:  n.SourceURL,
		Expandable: n.Expandable,
		Permission: string(n.Permission),
	}
}
