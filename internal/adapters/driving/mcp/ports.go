package mcp

import (
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Permissions answers tree queries and applies permission changes.
	Permissions driving.PermissionManager

	// Connectors lists configured connectors. Optional.
	Connectors driving.ConnectorManager
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Permissions == nil {
		return ErrMissingPermissionService
	}
	return nil
}
