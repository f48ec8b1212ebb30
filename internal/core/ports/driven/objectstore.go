package driven

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

// ObjectFilter narrows an ObjectStore listing. Zero fields do not filter.
type ObjectFilter struct {
	Kind       domain.ObjectKind
	Permission domain.Permission
	ScopeID    string

	// ParentID filters on the parent external id. TopLevel selects objects
	// without a parent and takes precedence over ParentID.
	ParentID string
	TopLevel bool
}

// ObjectStore persists external object records.
// Every method is scoped to a single connector.
type ObjectStore interface {
	// Find returns the record or nil and no error if it does not exist.
	Find(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error)

	// FindMany returns the records matching externalIDs. Missing ids are skipped.
	FindMany(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalIDs []string) ([]domain.ExternalObject, error)

	// FindAllByPermission returns every record of kind with the given permission.
	FindAllByPermission(ctx context.Context, connectorID int64, kind domain.ObjectKind, permission domain.Permission) ([]domain.ExternalObject, error)

	// List returns the records matching filter, ordered by name.
	List(ctx context.Context, connectorID int64, filter ObjectFilter) ([]domain.ExternalObject, error)

	// Upsert creates or updates a record keyed by connector, kind and external id.
	Upsert(ctx context.Context, obj *domain.ExternalObject) error

	// SetPermission updates the permission of an existing record.
	// Returns domain.ErrNotFound if the record does not exist.
	SetPermission(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalID string, permission domain.Permission) error

	// BulkDestroy deletes every record, webhook and the connector row itself
	// in one transaction. On failure nothing is deleted and the error wraps
	// domain.ErrStoreTransactionFailed.
	BulkDestroy(ctx context.Context, connectorID int64) error
}
