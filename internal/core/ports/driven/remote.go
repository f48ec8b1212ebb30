package driven

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

// RemoteWorkspace identifies the remote account an OAuth connection points at.
type RemoteWorkspace struct {
	ID   string
	Name string
}

// RemoteProvider performs outbound calls to a SaaS provider.
// Failed HTTP calls return *domain.HTTPError.
type RemoteProvider interface {
	// Provider returns the provider this client talks to.
	Provider() domain.ProviderType

	// FetchWorkspace returns the remote account behind a connection.
	FetchWorkspace(ctx context.Context, connectionID string) (*RemoteWorkspace, error)

	// FetchObject returns one remote object with its parent linkage populated.
	// The returned record has no permission set.
	FetchObject(ctx context.Context, connector *domain.Connector, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error)

	// ListObjects returns the remote objects of kind whose direct parent is
	// (parentKind, parentID). An empty parentID lists top-level objects.
	ListObjects(ctx context.Context, connector *domain.Connector, kind, parentKind domain.ObjectKind, parentID string) ([]domain.ExternalObject, error)
}

// ConnectionManager talks to the OAuth connection broker.
type ConnectionManager interface {
	// AccessToken returns a valid access token for a connection.
	AccessToken(ctx context.Context, provider domain.ProviderType, connectionID string) (string, error)

	// DeleteConnection removes a connection from the broker.
	DeleteConnection(ctx context.Context, provider domain.ProviderType, connectionID string) error
}

// WebhookRegistrar registers push-notification channels with a provider.
type WebhookRegistrar interface {
	// RegisterWebhook returns the registered channel, or *domain.HTTPError
	// carrying the remote status code and body text.
	RegisterWebhook(ctx context.Context, connector *domain.Connector) (*domain.Webhook, error)
}
