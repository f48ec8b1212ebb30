package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
)

type mockPermissions struct {
	ancestors []string
	titles    map[string]*string
	nodes     []domain.ConnectorNode
	err       error

	gotID       int64
	gotRaw      map[string]string
	gotParentID string
	gotReadOnly bool
}

func (m *mockPermissions) Apply(_ context.Context, id int64, _ domain.PermissionChangeBatch) error {
	m.gotID = id
	return m.err
}

func (m *mockPermissions) SetPermissions(_ context.Context, id int64, raw map[string]string) error {
	m.gotID = id
	m.gotRaw = raw
	return m.err
}

func (m *mockPermissions) Ancestors(_ context.Context, id int64, _ string) ([]string, error) {
	m.gotID = id
	return m.ancestors, m.err
}

func (m *mockPermissions) Titles(_ context.Context, id int64, _ []string) (map[string]*string, error) {
	m.gotID = id
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
	return &domain.Connector{ID: 11, Provider: req.Provider, RemoteWorkspaceID: "ws-remote"}, nil
}

func (m *mockConnectors) Update(_ context.Context, id int64, connectionID string) error {
	m.gotID, m.gotConnection = id, connectionID
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

type mockSettings struct {
	settings    domain.AppSettings
	validateErr error
	set         map[string]any
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Set(key string, value any) error {
	if m.set == nil {
		m.set = map[string]any{}
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Validate() error {
	return m.validateErr
}

// useServices installs s for the duration of the test.
func useServices(t *testing.T, s Services) {
	t.Helper()
	old := Services{
		Permissions: permissionService,
		Connectors:  connectorService,
		Settings:    settingsService,
		Scheduler:   scheduler,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(old) })
}

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	permissionsReadOnly = false
	permissionsJSON = false
	updateConnectionID = ""
	mcpAddr = ""
	serveNoMCP = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
