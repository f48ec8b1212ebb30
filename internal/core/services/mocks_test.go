package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/permsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockRemote implements driven.RemoteProvider.
type mockRemote struct {
	mu         sync.Mutex
	provider   domain.ProviderType
	objects    map[string]domain.ExternalObject
	workspaces map[string]driven.RemoteWorkspace
	listed     []domain.ExternalObject
	lists      []string
	listErr    error
	fetchErr   map[string]error
	fetches    []string
}

func newMockRemote(provider domain.ProviderType) *mockRemote {
	return &mockRemote{
		provider:   provider,
		objects:    make(map[string]domain.ExternalObject),
		workspaces: make(map[string]driven.RemoteWorkspace),
		fetchErr:   make(map[string]error),
	}
}

func (m *mockRemote) Provider() domain.ProviderType { return m.provider }

func (m *mockRemote) FetchWorkspace(_ context.Context, connectionID string) (*driven.RemoteWorkspace, error) {
	ws, ok := m.workspaces[connectionID]
	if !ok {
		return nil, &domain.HTTPError{StatusCode: 401, Body: "unknown connection"}
	}
	return &ws, nil
}

func (m *mockRemote) FetchObject(_ context.Context, _ *domain.Connector, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(kind) + "/" + externalID
	m.fetches = append(m.fetches, key)
	if err := m.fetchErr[key]; err != nil {
		return nil, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, &domain.HTTPError{StatusCode: 404, Body: "not found"}
	}
	return &obj, nil
}

// ListObjects lists top-level collections of a help center by scope, like
// the Intercom API, and everything else by parent id.
func (m *mockRemote) ListObjects(_ context.Context, _ *domain.Connector, kind, parentKind domain.ObjectKind, parentID string) ([]domain.ExternalObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = append(m.lists, string(kind)+"/"+parentID)
	if err := m.listErr; err != nil {
		return nil, err
	}
	var result []domain.ExternalObject
	for _, obj := range m.listed {
		if obj.Kind != kind {
			continue
		}
		if parentKind == domain.KindHelpCenter {
			if obj.ScopeID == parentID && obj.ParentID == "" {
				result = append(result, obj)
			}
			continue
		}
		if obj.ParentID == parentID {
			result = append(result, obj)
		}
	}
	return result, nil
}

func (m *mockRemote) addObject(obj domain.ExternalObject) {
	m.objects[string(obj.Kind)+"/"+obj.ExternalID] = obj
}

func (m *mockRemote) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fetches)
}

// mockWorkflow implements driven.WorkflowClient.
type mockWorkflow struct {
	mu        sync.Mutex
	launches  []domain.SyncRequest
	stops     []int64
	launchErr error
	stopErr   error
}

func (m *mockWorkflow) Launch(_ context.Context, req domain.SyncRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launches = append(m.launches, req)
	return m.launchErr
}

func (m *mockWorkflow) Stop(_ context.Context, connectorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops = append(m.stops, connectorID)
	return m.stopErr
}

// mockConnections implements driven.ConnectionManager.
type mockConnections struct {
	deleted   []string
	deleteErr error
}

func (m *mockConnections) AccessToken(_ context.Context, _ domain.ProviderType, connectionID string) (string, error) {
	return "token-" + connectionID, nil
}

func (m *mockConnections) DeleteConnection(_ context.Context, _ domain.ProviderType, connectionID string) error {
	m.deleted = append(m.deleted, connectionID)
	return m.deleteErr
}

// mockRegistrar implements driven.WebhookRegistrar.
type mockRegistrar struct {
	registered []int64
	expiresAt  int64
	err        error
}

func (m *mockRegistrar) RegisterWebhook(_ context.Context, connector *domain.Connector) (*domain.Webhook, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.registered = append(m.registered, connector.ID)
	return &domain.Webhook{ID: "chan", ExpirationTsMs: m.expiresAt, URL: "https://hooks.example/x"}, nil
}

// countingObjects counts Find calls of an ObjectStore.
type countingObjects struct {
	driven.ObjectStore
	mu    sync.Mutex
	finds int
}

func (c *countingObjects) Find(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	c.mu.Lock()
	c.finds++
	c.mu.Unlock()
	return c.ObjectStore.Find(ctx, connectorID, kind, externalID)
}

func (c *countingObjects) findCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finds
}

// failingDestroy fails BulkDestroy without touching the store.
type failingDestroy struct {
	driven.ObjectStore
}

func (f *failingDestroy) BulkDestroy(context.Context, int64) error {
	return errors.New("constraint violation")
}

// fixture wires services over the in-memory store.
type fixture struct {
	store       *memory.Store
	objects     driven.ObjectStore
	remote      *mockRemote
	workflow    *mockWorkflow
	connections *mockConnections
	resolver    *HierarchyResolver
	permissions *PermissionService
}

func newFixture(provider domain.ProviderType, connectorID int64) *fixture {
	store := memory.NewStore()
	store.AddConnector(domain.Connector{ID: connectorID, Provider: provider, ConnectionID: "conn-1", RemoteWorkspaceID: "ws-1"})

	f := &fixture{
		store:       store,
		objects:     store.ObjectStore(),
		remote:      newMockRemote(provider),
		workflow:    &mockWorkflow{},
		connections: &mockConnections{},
	}
	f.useCache(nil)
	return f
}

// useCache rebuilds the resolver and permission service over cache.
func (f *fixture) useCache(cache driven.AncestorCache) {
	f.resolver = NewHierarchyResolver(f.objects, cache)
	f.permissions = NewPermissionService(
		f.store.ConnectorStore(), f.objects, NewProviderRegistry(f.remote), f.resolver, NewSyncTrigger(f.workflow))
}

func (f *fixture) seed(objs ...domain.ExternalObject) {
	for i := range objs {
		if err := f.objects.Upsert(context.Background(), &objs[i]); err != nil {
			panic(err)
		}
	}
}
