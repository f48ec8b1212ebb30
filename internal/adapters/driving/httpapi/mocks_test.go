package httpapi

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
)

type mockPermissions struct {
	setErr    error
	ancestors []string
	titles    map[string]*string
	nodes     []domain.ConnectorNode
	err       error

	gotID       int64
	gotRaw      map[string]string
	gotNodeID   string
	gotNodeIDs  []string
	gotParentID string
	gotReadOnly bool
}

func (m *mockPermissions) Apply(_ context.Context, id int64, _ domain.PermissionChangeBatch) error {
	m.gotID = id
	return m.setErr
}

func (m *mockPermissions) SetPermissions(_ context.Context, id int64, raw map[string]string) error {
	m.gotID = id
	m.gotRaw = raw
	return m.setErr
}

func (m *mockPermissions) Ancestors(_ context.Context, id int64, nodeID string) ([]string, error) {
	m.gotID = id
	m.gotNodeID = nodeID
	return m.ancestors, m.err
}

func (m *mockPermissions) Titles(_ context.Context, id int64, nodeIDs []string) (map[string]*string, error) {
	m.gotID = id
	m.gotNodeIDs = nodeIDs
	return m.titles, m.err
}

func (m *mockPermissions) Retrieve(_ context.Context, id int64, parentID string, readOnly bool) ([]domain.ConnectorNode, error) {
	m.gotID = id
	m.gotParentID = parentID
	m.gotReadOnly = readOnly
	return m.nodes, m.err
}

type mockConnectors struct {
	connectors []domain.Connector
	err        error

	gotCreate     driving.CreateConnectorRequest
	gotID         int64
	gotConnection string
	calls         []string
}

func (m *mockConnectors) Create(_ context.Context, req driving.CreateConnectorRequest) (*domain.Connector, error) {
	m.gotCreate = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Connector{
		ID:                1,
		Provider:          req.Provider,
		ConnectionID:      req.ConnectionID,
		RemoteWorkspaceID: "remote-1",
		WorkspaceID:       req.WorkspaceID,
		DataSourceName:    req.DataSourceName,
		WorkspaceAPIKey:   req.WorkspaceAPIKey,
	}, nil
}

func (m *mockConnectors) Update(_ context.Context, id int64, connectionID string) error {
	m.gotID = id
	m.gotConnection = connectionID
	m.calls = append(m.calls, "update")
	return m.err
}

func (m *mockConnectors) Cleanup(_ context.Context, id int64) error {
	m.gotID = id
	m.calls = append(m.calls, "cleanup")
	return m.err
}

func (m *mockConnectors) Stop(_ context.Context, id int64) error {
	m.gotID = id
	m.calls = append(m.calls, "stop")
	return m.err
}

func (m *mockConnectors) Resume(_ context.Context, id int64) error {
	m.gotID = id
	m.calls = append(m.calls, "resume")
	return m.err
}

func (m *mockConnectors) Get(_ context.Context, id int64) (*domain.Connector, error) {
	for i := range m.connectors {
		if m.connectors[i].ID == id {
			return &m.connectors[i], nil
		}
	}
	return nil, domain.ErrConnectorNotFound
}

func (m *mockConnectors) List(_ context.Context) ([]domain.Connector, error) {
	return m.connectors, m.err
}
