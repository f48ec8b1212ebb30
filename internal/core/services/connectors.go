package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
	"github.com/custodia-labs/permsync/internal/logger"
)

var _ driving.ConnectorManager = (*ConnectorService)(nil)

// ConnectorService drives the connector lifecycle.
type ConnectorService struct {
	connectors  driven.ConnectorStore
	objects     driven.ObjectStore
	providers   *ProviderRegistry
	connections driven.ConnectionManager
	trigger     *SyncTrigger
	webhooks    *WebhookService
}

// NewConnectorService creates a connector service. webhooks may be nil.
func NewConnectorService(
	connectors driven.ConnectorStore,
	objects driven.ObjectStore,
	providers *ProviderRegistry,
	connections driven.ConnectionManager,
	trigger *SyncTrigger,
	webhooks *WebhookService,
) *ConnectorService {
	return &ConnectorService{
		connectors:  connectors,
		objects:     objects,
		providers:   providers,
		connections: connections,
		trigger:     trigger,
		webhooks:    webhooks,
	}
}

// Create stores a connector bound to the remote workspace behind its
// connection and launches the first sync.
func (s *ConnectorService) Create(ctx context.Context, req driving.CreateConnectorRequest) (*domain.Connector, error) {
	if !req.Provider.IsValid() {
		return nil, fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, req.Provider)
	}
	if req.ConnectionID == "" {
		return nil, fmt.Errorf("%w: connection id is required", domain.ErrInvalidInput)
	}
	remote, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	workspace, err := remote.FetchWorkspace(ctx, req.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s workspace: %w", req.Provider, err)
	}

	connector := &domain.Connector{
		Provider:          req.Provider,
		ConnectionID:      req.ConnectionID,
		RemoteWorkspaceID: workspace.ID,
		WorkspaceID:       req.WorkspaceID,
		DataSourceName:    req.DataSourceName,
		WorkspaceAPIKey:   req.WorkspaceAPIKey,
	}
	if err := s.connectors.Create(ctx, connector); err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}

	if req.Provider == domain.ProviderIntercom {
		if err := s.objects.Upsert(ctx, &domain.ExternalObject{
			ConnectorID: connector.ID,
			Kind:        domain.KindWorkspace,
			ExternalID:  workspace.ID,
			Name:        workspace.Name,
			Permission:  domain.PermissionNone,
			Metadata: map[string]string{
				domain.MetaConversationsSlidingWindow: domain.DefaultConversationsSlidingWindow,
			},
		}); err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}

	if req.Provider == domain.ProviderGoogleDrive && s.webhooks != nil {
		if _, err := s.webhooks.Register(ctx, connector); err != nil {
			logger.Warn("connector %d: webhook registration failed, renewal will retry: %v", connector.ID, err)
		}
	}

	if err := s.trigger.Launch(ctx, connector.ID, nil); err != nil {
		return nil, err
	}
	logger.L().Infow("connector created", "connector_id", connector.ID, "provider", connector.Provider)
	return connector, nil
}

// Update rebinds a connector to a new connection. The new connection must
// point at the same remote workspace; otherwise the new connection is
// deleted and ErrOAuthTargetMismatch is returned.
func (s *ConnectorService) Update(ctx context.Context, connectorID int64, connectionID string) error {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector %d: %w", connectorID, err)
	}
	if connectionID == "" || connectionID == connector.ConnectionID {
		return nil
	}

	remote, err := s.providers.Get(connector.Provider)
	if err != nil {
		return err
	}
	workspace, err := remote.FetchWorkspace(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("fetch %s workspace: %w", connector.Provider, err)
	}

	if workspace.ID != connector.RemoteWorkspaceID {
		s.deleteConnection(ctx, connector, connectionID)
		return fmt.Errorf("%w: connector %d is bound to %q, connection points at %q",
			domain.ErrOAuthTargetMismatch, connectorID, connector.RemoteWorkspaceID, workspace.ID)
	}

	oldConnectionID := connector.ConnectionID
	connector.ConnectionID = connectionID
	if err := s.connectors.Update(ctx, connector); err != nil {
		return fmt.Errorf("update connector %d: %w", connectorID, err)
	}

	if connector.Provider == domain.ProviderIntercom {
		ws, err := s.objects.Find(ctx, connectorID, domain.KindWorkspace, workspace.ID)
		if err != nil {
			return fmt.Errorf("find workspace: %w", err)
		}
		if ws != nil && ws.Name != workspace.Name {
			ws.Name = workspace.Name
			if err := s.objects.Upsert(ctx, ws); err != nil {
				return fmt.Errorf("rename workspace: %w", err)
			}
		}
	}

	s.deleteConnection(ctx, connector, oldConnectionID)
	return nil
}

// Cleanup destroys every record of the connector in one transaction, then
// deletes its connection from the broker.
func (s *ConnectorService) Cleanup(ctx context.Context, connectorID int64) error {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector %d: %w", connectorID, err)
	}

	if err := s.objects.BulkDestroy(ctx, connectorID); err != nil {
		if !errors.Is(err, domain.ErrStoreTransactionFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrStoreTransactionFailed, err)
		}
		return fmt.Errorf("destroy connector %d: %w", connectorID, err)
	}

	if err := s.connections.DeleteConnection(ctx, connector.Provider, connector.ConnectionID); err != nil {
		return fmt.Errorf("delete connection %s: %w", connector.ConnectionID, err)
	}
	logger.L().Infow("connector cleaned up", "connector_id", connectorID)
	return nil
}

// Stop terminates the sync workflow.
func (s *ConnectorService) Stop(ctx context.Context, connectorID int64) error {
	return s.trigger.Stop(ctx, connectorID)
}

// Resume relaunches the sync workflow. Launch failures are logged, not returned.
func (s *ConnectorService) Resume(ctx context.Context, connectorID int64) error {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector %d: %w", connectorID, err)
	}
	if err := s.trigger.Launch(ctx, connector.ID, nil); err != nil {
		logger.L().Errorw("resume: launching sync failed",
			"connector_id", connector.ID,
			"workspace_id", connector.WorkspaceID,
			"data_source", connector.DataSourceName,
			"error", err)
	}
	return nil
}

// Get returns a connector.
func (s *ConnectorService) Get(ctx context.Context, connectorID int64) (*domain.Connector, error) {
	return s.connectors.Get(ctx, connectorID)
}

// List returns all connectors.
func (s *ConnectorService) List(ctx context.Context) ([]domain.Connector, error) {
	return s.connectors.List(ctx)
}

// deleteConnection is best effort: failures are logged and swallowed.
func (s *ConnectorService) deleteConnection(ctx context.Context, connector *domain.Connector, connectionID string) {
	if err := s.connections.DeleteConnection(ctx, connector.Provider, connectionID); err != nil {
		logger.Warn("connector %d: deleting connection %s failed: %v", connector.ID, connectionID, err)
	}
}
