package driven

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

// WorkflowClient is the entry point to the external sync workflow runtime.
type WorkflowClient interface {
	// Launch starts a sync, or signals the running one with changed scopes.
	Launch(ctx context.Context, req domain.SyncRequest) error

	// Stop terminates the sync workflow of a connector.
	Stop(ctx context.Context, connectorID int64) error
}
