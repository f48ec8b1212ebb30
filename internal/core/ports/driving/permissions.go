package driving

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

// PermissionManager applies permission changes and answers hierarchy queries.
type PermissionManager interface {
	// Apply applies a validated batch and signals the sync workflow once.
	Apply(ctx context.Context, connectorID int64, batch domain.PermissionChangeBatch) error

	// SetPermissions parses raw values and applies them. Any value other
	// than read/none rejects the whole request before mutation.
	SetPermissions(ctx context.Context, connectorID int64, raw map[string]string) error

	// Ancestors returns the ancestor node ids of a node, nearest first.
	Ancestors(ctx context.Context, connectorID int64, nodeID string) ([]string, error)

	// Titles resolves node ids to display names. Unknown ids map to nil.
	Titles(ctx context.Context, connectorID int64, nodeIDs []string) (map[string]*string, error)

	// Retrieve lists the children of parentID (roots when empty).
	// With readOnly set only nodes with permission read are returned.
	Retrieve(ctx context.Context, connectorID int64, parentID string, readOnly bool) ([]domain.ConnectorNode, error)
}
