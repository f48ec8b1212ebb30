package mcp

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
)

// mockPermissionService is a mock implementation of driving.PermissionManager.
type mockPermissionService struct {
	ancestors []string
	titles    map[string]*string
	nodes     []domain.ConnectorNode
	err       error

	gotConnectorID int64
	gotRaw         map[string]string
	gotParentID    string
	gotReadOnly    bool
}

func (m *mockPermissionService) Apply(_ context.Context, connectorID int64, _ domain.PermissionChangeBatch) error {
	m.gotConnectorID = connectorID
	return m.err
}

func (m *mockPermissionService) SetPermissions(_ context.Context, connectorID int64, raw map[string]string) error {
	m.gotConnectorID = connectorID
	m.gotRaw = raw
	return m.err
}

func (m *mockPermissionService) Ancestors(_ context.Context, connectorID int64, _ string) ([]string, error) {
	m.gotConnectorID = connectorID
	return m.ancestors, m.err
}

func (m *mockPermissionService) Titles(_ context.Context, connectorID int64, _ []string) (map[string]*string, error) {
	m.gotConnectorID = connectorID
	return m.titles, m.err
}

func (m *mockPermissionService) Retrieve(
	_ context.Context,
	connectorID int64,
	parentID string,
	readOnly bool,
) ([]domain.ConnectorNode, error) {
	m.gotConnectorID = connectorID
	m.gotParentID = parentID
	m.gotReadOnly = readOnly
	return m.nodes, m.err
}

// mockConnectorService is a mock implementation of driving.ConnectorManager.
type mockConnectorService struct {
	connectors []domain.Connector
	err        error
}

func (m *mockConnectorService) Create(_ context.Context, _ driving.CreateConnectorRequest) (*domain.Connector, error) {
	return nil, m.err
}

func (m *mockConnectorService) Update(_ context.Context, _ int64, _ string) error { return m.err }
func (m *mockConnectorService) Cleanup(_ context.Context, _ int64) error         { return m.err }
func (m *mockConnectorService) Stop(_ context.Context, _ int64) error            { return m.err }
func (m *mockConnectorService) Resume(_ context.Context, _ int64) error          { return m.err }

func (m *mockConnectorService) Get(_ context.Context, id int64) (*domain.Connector, error) {
	for i := range m.connectors {
		if m.connectors[i].ID == id {
			return &m.connectors[i], nil
		}
	}
	return nil, domain.ErrConnectorNotFound
}

func (m *mockConnectorService) List(_ context.Context) ([]domain.Connector, error) {
	return m.connectors, m.err
}

var (
	_ driving.PermissionManager = (*mockPermissionService)(nil)
	_ driving.ConnectorManager  = (*mockConnectorService)(nil)
)

func strPtr(s string) *string { return &s }
