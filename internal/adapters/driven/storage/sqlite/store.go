package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/permsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// objectColumns lists external_objects columns in scan order.
var objectColumns = []string{
	"connector_id", "kind", "external_id", "name", "parent_id", "parent_kind",
	"scope_id", "permission", "url", "metadata", "created_at", "updated_at",
}

// Store is a unified SQLite-based storage that provides access to
// all permission store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.permsync/data/permsync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".permsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "permsync.db")

	// WAL mode lets readers proceed while a batch is being written.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
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

// SchedulerStore returns a SchedulerStore backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate applies every pending .up.sql migration, recording each version
// in the same transaction as its statements.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, statements string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(statements); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Connector Store ====================

// connectorStore implements driven.ConnectorStore.
type connectorStore struct {
	store *Store
}

var _ driven.ConnectorStore = (*connectorStore)(nil)

// Create inserts a connector and assigns its ID.
func (c *connectorStore) Create(ctx context.Context, connector *domain.Connector) error {
	if connector == nil {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	res, err := c.store.db.ExecContext(ctx, `
		INSERT INTO connectors (provider, connection_id, remote_workspace_id, workspace_id,
			data_source_name, workspace_api_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, connector.Provider, connector.ConnectionID, connector.RemoteWorkspaceID, connector.WorkspaceID,
		connector.DataSourceName, connector.WorkspaceAPIKey, now, now)
	if err != nil {
		return fmt.Errorf("creating connector: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading connector id: %w", err)
	}
	connector.ID = id
	connector.CreatedAt = now
	connector.UpdatedAt = now
	return nil
}

// Get retrieves a connector by ID.
func (c *connectorStore) Get(ctx context.Context, id int64) (*domain.Connector, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT id, provider, connection_id, remote_workspace_id, workspace_id,
			data_source_name, workspace_api_key, created_at, updated_at
		FROM connectors WHERE id = ?
	`, id)

	connector, err := scanConnector(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConnectorNotFound
	}
	return connector, err
}

// Update persists the mutable fields of a connector.
func (c *connectorStore) Update(ctx context.Context, connector *domain.Connector) error {
	if connector == nil {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	res, err := c.store.db.ExecContext(ctx, `
		UPDATE connectors SET
			connection_id = ?,
			remote_workspace_id = ?,
			workspace_id = ?,
			data_source_name = ?,
			workspace_api_key = ?,
			updated_at = ?
		WHERE id = ?
	`, connector.ConnectionID, connector.RemoteWorkspaceID, connector.WorkspaceID,
		connector.DataSourceName, connector.WorkspaceAPIKey, now, connector.ID)
	if err != nil {
		return fmt.Errorf("updating connector: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrConnectorNotFound
	}
	connector.UpdatedAt = now
	return nil
}

// List returns all connectors ordered by ID.
func (c *connectorStore) List(ctx context.Context) ([]domain.Connector, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, provider, connection_id, remote_workspace_id, workspace_id,
			data_source_name, workspace_api_key, created_at, updated_at
		FROM connectors ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying connectors: %w", err)
	}
	defer rows.Close()

	var connectors []domain.Connector //nolint:prealloc // size unknown from query
	for rows.Next() {
		connector, err := scanConnector(rows)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, *connector)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connectors: %w", err)
	}
	return connectors, nil
}

// ==================== Object Store ====================

// objectStore implements driven.ObjectStore.
type objectStore struct {
	store *Store
}

var _ driven.ObjectStore = (*objectStore)(nil)

// Find retrieves a record, or nil if it does not exist.
func (o *objectStore) Find(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(objectColumns...)
	sb.From("external_objects")
	sb.Where(
		sb.Equal("connector_id", connectorID),
		sb.Equal("kind", string(kind)),
		sb.Equal("external_id", externalID),
	)

	query, args := sb.Build()
	obj, err := scanObject(o.store.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return obj, err
}

// FindMany retrieves the records matching externalIDs.
func (o *objectStore) FindMany(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalIDs []string) ([]domain.ExternalObject, error) {
	if len(externalIDs) == 0 {
		return []domain.ExternalObject{}, nil
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(objectColumns...)
	sb.From("external_objects")
	sb.Where(
		sb.Equal("connector_id", connectorID),
		sb.Equal("kind", string(kind)),
		sb.In("external_id", sqlbuilder.List(externalIDs)),
	)
	sb.OrderBy("external_id")
	return o.query(ctx, sb)
}

// FindAllByPermission returns every record of kind with the given permission.
func (o *objectStore) FindAllByPermission(ctx context.Context, connectorID int64, kind domain.ObjectKind, permission domain.Permission) ([]domain.ExternalObject, error) {
	return o.List(ctx, connectorID, driven.ObjectFilter{Kind: kind, Permission: permission})
}

// List returns the records matching filter, ordered by name.
func (o *objectStore) List(ctx context.Context, connectorID int64, filter driven.ObjectFilter) ([]domain.ExternalObject, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(objectColumns...)
	sb.From("external_objects")

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
		where = append(where, "(parent_id IS NULL OR parent_id = '')")
	case filter.ParentID != "":
		where = append(where, sb.Equal("parent_id", filter.ParentID))
	}
	sb.Where(where...)
	sb.OrderBy("name", "external_id")

	return o.query(ctx, sb)
}

// Upsert creates or updates a record.
func (o *objectStore) Upsert(ctx context.Context, obj *domain.ExternalObject) error {
	if obj == nil || obj.ExternalID == "" || !obj.Kind.IsValid() {
		return domain.ErrInvalidInput
	}
	if obj.Permission == "" {
		obj.Permission = domain.PermissionNone
	}

	metadataJSON, err := json.Marshal(obj.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now().UTC()
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = now
	}
	obj.UpdatedAt = now

	_, err = o.store.db.ExecContext(ctx, `
		INSERT INTO external_objects (connector_id, kind, external_id, name, parent_id, parent_kind,
			scope_id, permission, url, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(connector_id, kind, external_id) DO UPDATE SET
			name = excluded.name,
			parent_id = excluded.parent_id,
			parent_kind = excluded.parent_kind,
			scope_id = excluded.scope_id,
			permission = excluded.permission,
			url = excluded.url,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, obj.ConnectorID, obj.Kind, obj.ExternalID, obj.Name,
		nullString(obj.ParentID), nullString(string(obj.ParentKind)), nullString(obj.ScopeID),
		obj.Permission, nullString(obj.URL), string(metadataJSON), obj.CreatedAt, obj.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving %s %s: %w", obj.Kind, obj.ExternalID, err)
	}
	return nil
}

// SetPermission updates the permission of an existing record.
func (o *objectStore) SetPermission(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalID string, permission domain.Permission) error {
	if !permission.IsValid() {
		return domain.ErrInvalidPermission
	}

	res, err := o.store.db.ExecContext(ctx, `
		UPDATE external_objects SET permission = ?, updated_at = ?
		WHERE connector_id = ? AND kind = ? AND external_id = ?
	`, permission, time.Now().UTC(), connectorID, kind, externalID)
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

// BulkDestroy deletes the connector with all its records in one transaction.
func (o *objectStore) BulkDestroy(ctx context.Context, connectorID int64) error {
	tx, err := o.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreTransactionFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{
		"DELETE FROM external_objects WHERE connector_id = ?",
		"DELETE FROM webhooks WHERE connector_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, connectorID); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStoreTransactionFailed, err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM connectors WHERE id = ?", connectorID)
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

func (o *objectStore) query(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]domain.ExternalObject, error) {
	query, args := sb.Build()
	rows, err := o.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying objects: %w", err)
	}
	defer rows.Close()

	objs := []domain.ExternalObject{}
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objs = append(objs, *obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating objects: %w", err)
	}
	return objs, nil
}

// ==================== Webhook Store ====================

// webhookStore implements driven.WebhookStore.
type webhookStore struct {
	store *Store
}

var _ driven.WebhookStore = (*webhookStore)(nil)

// SaveWebhook creates or replaces the webhook of a connector.
func (w *webhookStore) SaveWebhook(ctx context.Context, webhook *domain.Webhook) error {
	if webhook == nil {
		return domain.ErrInvalidInput
	}

	_, err := w.store.db.ExecContext(ctx, `
		INSERT INTO webhooks (connector_id, id, expiration_ts_ms, url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(connector_id) DO UPDATE SET
			id = excluded.id,
			expiration_ts_ms = excluded.expiration_ts_ms,
			url = excluded.url
	`, webhook.ConnectorID, webhook.ID, webhook.ExpirationTsMs, webhook.URL)
	if err != nil {
		return fmt.Errorf("saving webhook: %w", err)
	}
	return nil
}

// GetWebhook returns the webhook of a connector, or nil if none.
func (w *webhookStore) GetWebhook(ctx context.Context, connectorID int64) (*domain.Webhook, error) {
	row := w.store.db.QueryRowContext(ctx, `
		SELECT connector_id, id, expiration_ts_ms, url FROM webhooks WHERE connector_id = ?
	`, connectorID)

	var webhook domain.Webhook
	if err := row.Scan(&webhook.ConnectorID, &webhook.ID, &webhook.ExpirationTsMs, &webhook.URL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning webhook: %w", err)
	}
	return &webhook, nil
}

// ListWebhooks returns every webhook ordered by connector.
func (w *webhookStore) ListWebhooks(ctx context.Context) ([]domain.Webhook, error) {
	rows, err := w.store.db.QueryContext(ctx, `
		SELECT connector_id, id, expiration_ts_ms, url FROM webhooks ORDER BY connector_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying webhooks: %w", err)
	}
	defer rows.Close()

	webhooks := []domain.Webhook{}
	for rows.Next() {
		var webhook domain.Webhook
		if err := rows.Scan(&webhook.ConnectorID, &webhook.ID, &webhook.ExpirationTsMs, &webhook.URL); err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		webhooks = append(webhooks, webhook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating webhooks: %w", err)
	}
	return webhooks, nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnector(row rowScanner) (*domain.Connector, error) {
	var connector domain.Connector
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&connector.ID, &connector.Provider, &connector.ConnectionID,
		&connector.RemoteWorkspaceID, &connector.WorkspaceID, &connector.DataSourceName,
		&connector.WorkspaceAPIKey, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning connector: %w", err)
	}
	if createdAt.Valid {
		connector.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		connector.UpdatedAt = updatedAt.Time
	}
	return &connector, nil
}

func scanObject(row rowScanner) (*domain.ExternalObject, error) {
	var obj domain.ExternalObject
	var parentID, parentKind, scopeID, url, metadataJSON sql.NullString
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&obj.ConnectorID, &obj.Kind, &obj.ExternalID, &obj.Name,
		&parentID, &parentKind, &scopeID, &obj.Permission, &url, &metadataJSON,
		&createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning object: %w", err)
	}

	obj.ParentID = parentID.String
	obj.ParentKind = domain.ObjectKind(parentKind.String)
	obj.ScopeID = scopeID.String
	obj.URL = url.String
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON.String), &obj.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	if createdAt.Valid {
		obj.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		obj.UpdatedAt = updatedAt.Time
	}
	return &obj, nil
}
