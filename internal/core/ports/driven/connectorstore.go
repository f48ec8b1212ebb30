package driven

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

// ConnectorStore persists connectors.
type ConnectorStore interface {
	// Create stores a new connector and assigns its ID.
	Create(ctx context.Context, connector *domain.Connector) error

	// Get retrieves a connector by ID.
	// Returns domain.ErrConnectorNotFound if it does not exist.
	Get(ctx context.Context, id int64) (*domain.Connector, error)

	// Update persists changes to an existing connector.
	Update(ctx context.Context, connector *domain.Connector) error

	// List returns all connectors.
	List(ctx context.Context) ([]domain.Connector, error)
}

// WebhookStore persists provider webhook registrations, one per connector.
type WebhookStore interface {
	// SaveWebhook creates or replaces the webhook of a connector.
	SaveWebhook(ctx context.Context, webhook *domain.Webhook) error

	// GetWebhook returns the webhook of a connector or nil if none is registered.
	GetWebhook(ctx context.Context, connectorID int64) (*domain.Webhook, error)

	// ListWebhooks returns every registered webhook.
	ListWebhooks(ctx context.Context) ([]domain.Webhook, error)
}
