package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

type objectKey struct {
	connectorID int64
	kind        domain.ObjectKind
	externalID  string
}

// Store is an in-memory implementation of the connector, object and
// webhook stores. All sub-stores share one lock so BulkDestroy is atomic.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	connectors map[int64]domain.Connector
	objects    map[objectKey]domain.ExternalObject
	webhooks   map[int64]domain.Webhook
	writes     int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		connectors: make(map[int64]domain.Connector),
		objects:    make(map[objectKey]domain.ExternalObject),
		webhooks:   make(map[int64]domain.Webhook),
	}
}

// ConnectorStore returns a ConnectorStore backed by this store.
func (s *Store) ConnectorStore() driven.ConnectorStore {
	return &connectorStore{store: s}
}

// ObjectStore returns an ObjectStore backed by this store.
func (s *Store) ObjectStore() driven.ObjectStore {
	return &objectStore{store: s}
}

// WebhookStore returns a WebhookStore backed by this store.
func (s *Store) WebhookStore() driven.WebhookStore {
	return &webhookStore{store: s}
}

// AddConnector inserts a connector with a fixed ID. Used to seed fixtures.
func (s *Store) AddConnector(connector domain.Connector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if connector.ID > s.nextID {
		s.nextID = connector.ID
	}
	s.connectors[connector.ID] = connector
}

// Writes returns the number of object mutations performed so far.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// ==================== Connector Store ====================

type connectorStore struct {
	store *Store
}

var _ driven.ConnectorStore = (*connectorStore)(nil)

func (c *connectorStore) Create(_ context.Context, connector *domain.Connector) error {
	if connector == nil {
		return domain.ErrInvalidInput
	}
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	connector.ID = s.nextID
	connector.CreatedAt = now
	connector.UpdatedAt = now
	s.connectors[connector.ID] = *connector
	return nil
}

func (c *connectorStore) Get(_ context.Context, id int64) (*domain.Connector, error) {
	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	connector, ok := s.connectors[id]
	if !ok {
		return nil, domain.ErrConnectorNotFound
	}
	return &connector, nil
}

func (c *connectorStore) Update(_ context.Context, connector *domain.Connector) error {
	if connector == nil {
		return domain.ErrInvalidInput
	}
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connectors[connector.ID]; !ok {
		return domain.ErrConnectorNotFound
	}
	connector.UpdatedAt = time.Now().UTC()
	s.connectors[connector.ID] = *connector
	return nil
}

func (c *connectorStore) List(_ context.Context) ([]domain.Connector, error) {
	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Connector, 0, len(s.connectors))
	for _, connector := range s.connectors {
		result = append(result, connector)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ==================== Object Store ====================

type objectStore struct {
	store *Store
}

var _ driven.ObjectStore = (*objectStore)(nil)

func (o *objectStore) Find(_ context.Context, connectorID int64, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	s := o.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[objectKey{connectorID, kind, externalID}]
	if !ok {
		return nil, nil
	}
	return cloneObject(obj), nil
}

func (o *objectStore) FindMany(_ context.Context, connectorID int64, kind domain.ObjectKind, externalIDs []string) ([]domain.ExternalObject, error) {
	s := o.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ExternalObject, 0, len(externalIDs))
	for _, id := range externalIDs {
		if obj, ok := s.objects[objectKey{connectorID, kind, id}]; ok {
			result = append(result, *cloneObject(obj))
		}
	}
	return result, nil
}

func (o *objectStore) FindAllByPermission(ctx context.Context, connectorID int64, kind domain.ObjectKind, permission domain.Permission) ([]domain.ExternalObject, error) {
	return o.List(ctx, connectorID, driven.ObjectFilter{Kind: kind, Permission: permission})
}

func (o *objectStore) List(_ context.Context, connectorID int64, filter driven.ObjectFilter) ([]domain.ExternalObject, error) {
	s := o.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ExternalObject
	for key, obj := range s.objects {
		if key.connectorID != connectorID || !matches(obj, filter) {
			continue
		}
		result = append(result, *cloneObject(obj))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ExternalID < result[j].ExternalID
	})
	return result, nil
}

func (o *objectStore) Upsert(_ context.Context, obj *domain.ExternalObject) error {
	if obj == nil || obj.ExternalID == "" || !obj.Kind.IsValid() {
		return domain.ErrInvalidInput
	}
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := objectKey{obj.ConnectorID, obj.Kind, obj.ExternalID}
	now := time.Now().UTC()
	if existing, ok := s.objects[key]; ok {
		obj.CreatedAt = existing.CreatedAt
	} else {
		obj.CreatedAt = now
	}
	obj.UpdatedAt = now
	if obj.Permission == "" {
		obj.Permission = domain.PermissionNone
	}
	s.objects[key] = *cloneObject(*obj)
	s.writes++
	return nil
}

func (o *objectStore) SetPermission(_ context.Context, connectorID int64, kind domain.ObjectKind, externalID string, permission domain.Permission) error {
	if !permission.IsValid() {
		return domain.ErrInvalidPermission
	}
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := objectKey{connectorID, kind, externalID}
	obj, ok := s.objects[key]
	if !ok {
		return domain.ErrNotFound
	}
	obj.Permission = permission
	obj.UpdatedAt = time.Now().UTC()
	s.objects[key] = obj
	s.writes++
	return nil
}

func (o *objectStore) BulkDestroy(_ context.Context, connectorID int64) error {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.connectors[connectorID]; !ok {
		return domain.ErrConnectorNotFound
	}
	for key := range s.objects {
		if key.connectorID == connectorID {
			delete(s.objects, key)
		}
	}
	delete(s.webhooks, connectorID)
	delete(s.connectors, connectorID)
	return nil
}

// ==================== Webhook Store ====================

type webhookStore struct {
	store *Store
}

var _ driven.WebhookStore = (*webhookStore)(nil)

func (w *webhookStore) SaveWebhook(_ context.Context, webhook *domain.Webhook) error {
	if webhook == nil {
		return domain.ErrInvalidInput
	}
	s := w.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connectors[webhook.ConnectorID]; !ok {
		return domain.ErrConnectorNotFound
	}
	s.webhooks[webhook.ConnectorID] = *webhook
	return nil
}

func (w *webhookStore) GetWebhook(_ context.Context, connectorID int64) (*domain.Webhook, error) {
	s := w.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	webhook, ok := s.webhooks[connectorID]
	if !ok {
		return nil, nil
	}
	return &webhook, nil
}

func (w *webhookStore) ListWebhooks(_ context.Context) ([]domain.Webhook, error) {
	s := w.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Webhook, 0, len(s.webhooks))
	for _, webhook := range s.webhooks {
		result = append(result, webhook)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ConnectorID < result[j].ConnectorID })
	return result, nil
}

// ==================== Helpers ====================

func matches(obj domain.ExternalObject, filter driven.ObjectFilter) bool {
	if filter.Kind != "" && obj.Kind != filter.Kind {
		return false
	}
	if filter.Permission != "" && obj.Permission != filter.Permission {
		return false
	}
	if filter.ScopeID != "" && obj.ScopeID != filter.ScopeID {
		return false
	}
	if filter.TopLevel {
		return obj.ParentID == ""
	}
	if filter.ParentID != "" && obj.ParentID != filter.ParentID {
		return false
	}
	return true
}

func cloneObject(obj domain.ExternalObject) *domain.ExternalObject {
	if obj.Metadata != nil {
		meta := make(map[string]string, len(obj.Metadata))
		for k, v := range obj.Metadata {
			meta[k] = v
		}
		obj.Metadata = meta
	}
	return &obj
}
