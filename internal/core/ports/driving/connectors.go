package driving

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

// CreateConnectorRequest carries the inputs of connector creation.
type CreateConnectorRequest struct {
	Provider        domain.ProviderType
	ConnectionID    string
	WorkspaceID     string
	DataSourceName  string
	WorkspaceAPIKey string
}

// ConnectorManager drives the connector lifecycle.
type ConnectorManager interface {
	// Create stores a connector, provisions its workspace and launches a sync.
	Create(ctx context.Context, req CreateConnectorRequest) (*domain.Connector, error)

	// Update rebinds a connector to a new OAuth connection. The new
	// connection must point at the same remote workspace.
	Update(ctx context.Context, connectorID int64, connectionID string) error

	// Cleanup tears the connector down atomically and deletes its connection.
	Cleanup(ctx context.Context, connectorID int64) error

	// Stop terminates the sync workflow.
	Stop(ctx context.Context, connectorID int64) error

	// Resume relaunches the sync workflow.
	Resume(ctx context.Context, connectorID int64) error

	// Get returns a connector.
	Get(ctx context.Context, connectorID int64) (*domain.Connector, error)

	// List returns all connectors.
	List(ctx context.Context) ([]domain.Connector, error)
}
