// Package postgres implements the permission store on PostgreSQL with
// sqlx and go-sqlbuilder.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

const (
	connectorsTable = "connectors"
	objectsTable    = "external_objects"
	webhooksTable   = "webhooks"
)

var (
	connectorColumns = []string{
		"id", "provider", "connection_id", "remote_workspace_id", "workspace_id",
		"data_source_name", "workspace_api_key", "created_at", "updated_at",
	}
	objectColumns = []string{
		"connector_id", "kind", "external_id", "name", "parent_id", "parent_kind",
		"scope_id", "permission", "url", "metadata", "created_at", "updated_at",
	}
)

// Store is a PostgreSQL-backed permission store.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ConnectorStore returns a ConnectorStore backed by this store.
func (s *Store) ConnectorStore() driven.ConnectorStore {
	return &connectorStore{db: s.db}
}

// ObjectStore returns an ObjectStore backed by this store.
func (s *Store) ObjectStore() driven.ObjectStore {
	return &objectStore{db: s.db}
}

// WebhookStore returns a WebhookStore backed by this store.
func (s *Store) WebhookStore() driven.WebhookStore {
	return &webhookStore{db: s.db}
}

// ==================== Rows ====================

type connectorRow struct {
	ID                int64     `db:"id"`
	Provider          string    `db:"provider"`
	ConnectionID      string    `db:"connection_id"`
	RemoteWorkspaceID string    `db:"remote_workspace_id"`
	WorkspaceID       string    `db:"workspace_id"`
	DataSourceName    string    `db:"data_source_name"`
	WorkspaceAPIKey   string    `db:"workspace_api_key"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r *connectorRow) toDomain() domain.Connector {
	return domain.Connector{
		ID:                r.ID,
		Provider:          domain.ProviderType(r.Provider),
		ConnectionID:      r.ConnectionID,
		RemoteWorkspaceID: r.RemoteWorkspaceID,
		WorkspaceID:       r.WorkspaceID,
		DataSourceName:    r.DataSourceName,
		WorkspaceAPIKey:   r.WorkspaceAPIKey,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type objectRow struct {
	ConnectorID int64          `db:"connector_id"`
	Kind        string         `db:"kind"`
	ExternalID  string         `db:"external_id"`
	Name        string         `db:"name"`
	ParentID    sql.NullString `db:"parent_id"`
	ParentKind  sql.NullString `db:"parent_kind"`
	ScopeID     sql.NullString `db:"scope_id"`
	Permission  string         `db:"permission"`
	URL         sql.NullString `db:"url"`
	Metadata    []byte         `db:"metadata"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r *objectRow) toDomain() (domain.ExternalObject, error) {
	obj := domain.ExternalObject{
		ConnectorID: r.ConnectorID,
		Kind:        domain.ObjectKind(r.Kind),
		ExternalID:  r.ExternalID,
		Name:        r.Name,
		ParentID:    r.ParentID.String,
		ParentKind:  domain.ObjectKind(r.ParentKind.String),
		ScopeID:     r.ScopeID.String,
		Permission:  domain.Permission(r.Permission),
		URL:         r.URL.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &obj.Metadata); err != nil {
			return obj, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return obj, nil
}

// ==================== Connector Store ====================

type connectorStore struct {
	db *sqlx.DB
}

var _ driven.ConnectorStore = (*connectorStore)(nil)

func (c *connectorStore) Create(ctx context.Context, connector *domain.Connector) error {
	if connector == nil {
		return domain.ErrInvalidInput
	}
	now := time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(connectorsTable)
	ib.Cols(connectorColumns[1:]...)
	ib.Values(string(connector.Provider), connector.ConnectionID, connector.RemoteWorkspaceID,
		connector.WorkspaceID, connector.DataSourceName, connector.WorkspaceAPIKey, now, now)
	ib.SQL("RETURNING id")

	query, args := ib.Build()
	if err := c.db.QueryRowxContext(ctx, query, args...).Scan(&connector.ID); err != nil {
		return fmt.Errorf("creating connector: %w", err)
	}
	connector.CreatedAt = now
	connector.UpdatedAt = now
	return nil
}

func (c *connectorStore) Get(ctx context.Context, id int64) (*domain.Connector, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(connectorColumns...)
	sb.From(connectorsTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row connectorRow
	if err := c.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConnectorNotFound
		}
		return nil, fmt.Errorf("getting connector %d: %w", id, err)
	}
	connector := row.toDomain()
	return &connector, nil
}

func (c *connectorStore) Update(ctx context.Context, connector *domain.Connector) error {
	if connector == nil {
		return domain.ErrInvalidInput
	}
	now := time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(connectorsTable)
	ub.Set(
		ub.Assign("connection_id", connector.ConnectionID),
		ub.Assign("remote_workspace_id", connector.RemoteWorkspaceID),
		ub.Assign("workspace_id", connector.WorkspaceID),
		ub.Assign("data_source_name", connector.DataSourceName),
		ub.Assign("workspace_api_key", connector.WorkspaceAPIKey),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", connector.ID))

	query, args := ub.Build()
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating connector %d: %w", connector.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrConnectorNotFound
	}
	connector.UpdatedAt = now
	return nil
}

func (c *connectorStore) List(ctx context.Context) ([]domain.Connector, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(connectorColumns...)
	sb.From(connectorsTable)
	sb.OrderBy("id")

	query, args := sb.Build()
	var rows []connectorRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing connectors: %w", err)
	}
	connectors := make([]domain.Connector, len(rows))
	for i := range rows {
		connectors[i] = rows[i].toDomain()
	}
	return connectors, nil
}

// ==================== Object Store ====================

type objectStore struct {
	db *sqlx.DB
}

var _ driven.ObjectStore = (*objectStore)(nil)

func (o *objectStore) Find(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(objectColumns...)
	sb.From(objectsTable)
	sb.Where(
		sb.Equal("connector_id", connectorID),
		sb.Equal("kind", string(kind)),
		sb.Equal("external_id", externalID),
	)

	query, args := sb.Build()
	var row objectRow
	if err := o.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding %s %s: %w", kind, externalID, err)
	}
	obj, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (o *objectStore) FindMany(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalIDs []string) ([]domain.ExternalObject, error) {
	if len(externalIDs) == 0 {
		return []domain.ExternalObject{}, nil
	}
	query, args := findManyQuery(connectorID, kind, externalIDs)
	return o.selectObjects(ctx, query, args)
}

func (o *objectStore) FindAllByPermission(ctx context.Context, connectorID int64, kind domain.ObjectKind, permission domain.Permission) ([]domain.ExternalObject, error) {
	return o.List(ctx, connectorID, driven.ObjectFilter{Kind: kind, Permission: permission})
}

func (o *objectStore) List(ctx context.Context, connectorID int64, filter driven.ObjectFilter) ([]domain.ExternalObject, error) {
	query, args := listQuery(connectorID, filter)
	return o.selectObjects(ctx, query, args)
}

func (o *objectStore) Upsert(ctx context.Context, obj *domain.ExternalObject) error {
	if obj == nil || obj.ExternalID == "" || !obj.Kind.IsValid() {
		return domain.ErrInvalidInput
	}
	if obj.Permission == "" {
		obj.Permission = domain.PermissionNone
	}
	now := time.Now().UTC()
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = now
	}
	obj.UpdatedAt = now

	query, args, err := upsertQuery(obj)
	if err != nil {
		return err
	}
	if _, err := o.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving %s %s: %w", obj.Kind, obj.ExternalID, err)
	}
	return nil
}

func (o *objectStore) SetPermission(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalID string, permission domain.Permission) error {
	if !permission.IsValid() {
		return domain.ErrInvalidPermission
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(objectsTable)
	ub.Set(
		ub.Assign("permission", string(permission)),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("connector_id", connectorID),
		ub.Equal("kind", string(kind)),
		ub.Equal("external_id", externalID),
	)

	query, args := ub.Build()
	res, err := o.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating permission: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (o *objectStore) BulkDestroy(ctx context.Context, connectorID int64) error {
	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreTransactionFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{objectsTable, webhooksTable} {
		db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		db.DeleteFrom(table)
		db.Where(db.Equal("connector_id", connectorID))
		query, args := db.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStoreTransactionFailed, err)
		}
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(connectorsTable)
	db.Where(db.Equal("id", connectorID))
	query, args := db.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreTransactionFailed, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrConnectorNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %w", domain.ErrStoreTransactionFailed, err)
	}
	return nil
}

func (o *objectStore) selectObjects(ctx context.Context, query string, args []any) ([]domain.ExternalObject, error) {
	var rows []objectRow
	if err := o.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying objects: %w", err)
	}
	objs := make([]domain.ExternalObject, 0, len(rows))
	for i := range rows {
		obj, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

func findManyQuery(connectorID int64, kind domain.ObjectKind, externalIDs []string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(objectColumns...)
	sb.From(objectsTable)
	sb.Where(
		sb.Equal("connector_id", connectorID),
		sb.Equal("kind", string(kind)),
		"external_id = ANY("+sb.Var(pq.Array(externalIDs))+")",
	)
	sb.OrderBy("external_id")
	return sb.Build()
}

func listQuery(connectorID int64, filter driven.ObjectFilter) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(objectColumns...)
	sb.From(objectsTable)

	where := []string{sb.Equal("connector_id", connectorID)}
	if filter.Kind != "" {
		where = append(where, sb.Equal("kind", string(filter.Kind)))
	}
	if filter.Permission != "" {
		where = append(where, sb.Equal("permission", string(filter.Permission)))
	}
	if filter.ScopeID != "" {
		where = append(where, sb.Equal("scope_id", filter.ScopeID))
	}
	switch {
	case filter.TopLevel:
		where = append(where, sb.Or(sb.IsNull("parent_id"), sb.Equal("parent_id", "")))
	case filter.ParentID != "":
		where = append(where, sb.Equal("parent_id", filter.ParentID))
	}
	sb.Where(where...)
	sb.OrderBy("name", "external_id")
	return sb.Build()
}

func upsertQuery(obj *domain.ExternalObject) (string, []any, error) {
	var metadata any
	if obj.Metadata != nil {
		raw, err := json.Marshal(obj.Metadata)
		if err != nil {
			return "", nil, fmt.Errorf("marshalling metadata: %w", err)
		}
		metadata = string(raw)
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(objectsTable)
	ib.Cols(objectColumns...)
	ib.Values(obj.ConnectorID, string(obj.Kind), obj.ExternalID, obj.Name,
		nullString(obj.ParentID), nullString(string(obj.ParentKind)), nullString(obj.ScopeID),
		string(obj.Permission), nullString(obj.URL), metadata, obj.CreatedAt, obj.UpdatedAt)
	ib.SQL(`ON CONFLICT (connector_id, kind, external_id) DO UPDATE SET
		name = EXCLUDED.name,
		parent_id = EXCLUDED.parent_id,
		parent_kind = EXCLUDED.parent_kind,
		scope_id = EXCLUDED.scope_id,
		permission = EXCLUDED.permission,
		url = EXCLUDED.url,
		metadata = EXCLUDED.metadata,
		updated_at = EXCLUDED.updated_at`)
	query, args := ib.Build()
	return query, args, nil
}

// ==================== Webhook Store ====================

type webhookStore struct {
	db *sqlx.DB
}

var _ driven.WebhookStore = (*webhookStore)(nil)

type webhookRow struct {
	ConnectorID    int64  `db:"connector_id"`
	ID             string `db:"id"`
	ExpirationTsMs int64  `db:"expiration_ts_ms"`
	URL            string `db:"url"`
}

func (w *webhookStore) SaveWebhook(ctx context.Context, webhook *domain.Webhook) error {
	if webhook == nil {
		return domain.ErrInvalidInput
	}

	_, err := w.db.NamedExecContext(ctx, `
		INSERT INTO webhooks (connector_id, id, expiration_ts_ms, url)
		VALUES (:connector_id, :id, :expiration_ts_ms, :url)
		ON CONFLICT (connector_id) DO UPDATE SET
			id = EXCLUDED.id,
			expiration_ts_ms = EXCLUDED.expiration_ts_ms,
			url = EXCLUDED.url
	`, webhookRow{
		ConnectorID:    webhook.ConnectorID,
		ID:             webhook.ID,
		ExpirationTsMs: webhook.ExpirationTsMs,
		URL:            webhook.URL,
	})
	if err != nil {
		return fmt.Errorf("saving webhook: %w", err)
	}
	return nil
}

func (w *webhookStore) GetWebhook(ctx context.Context, connectorID int64) (*domain.Webhook, error) {
	var row webhookRow
	err := w.db.GetContext(ctx, &row,
		"SELECT connector_id, id, expiration_ts_ms, url FROM webhooks WHERE connector_id = $1", connectorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting webhook: %w", err)
	}
	return &domain.Webhook{ID: row.ID, ConnectorID: row.ConnectorID, ExpirationTsMs: row.ExpirationTsMs, URL: row.URL}, nil
}

func (w *webhookStore) ListWebhooks(ctx context.Context) ([]domain.Webhook, error) {
	var rows []webhookRow
	if err := w.db.SelectContext(ctx, &rows,
		"SELECT connector_id, id, expiration_ts_ms, url FROM webhooks ORDER BY connector_id"); err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}
	webhooks := make([]domain.Webhook, len(rows))
	for i, row := range rows {
		webhooks[i] = domain.Webhook{ID: row.ID, ConnectorID: row.ConnectorID, ExpirationTsMs: row.ExpirationTsMs, URL: row.URL}
	}
	return webhooks, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
