package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/metrics"
)

// SyncTrigger is the gateway to the external sync workflow runtime.
// Failures are surfaced to the caller; nothing already committed to the
// store is rolled back.
type SyncTrigger struct {
	workflow driven.WorkflowClient
}

// NewSyncTrigger creates a trigger over a workflow client.
func NewSyncTrigger(workflow driven.WorkflowClient) *SyncTrigger {
	return &SyncTrigger{workflow: workflow}
}

// Signal notifies the running sync that the given scopes changed.
func (t *SyncTrigger) Signal(ctx context.Context, connectorID int64, scopeIDs []string) error {
	err := t.workflow.Launch(ctx, domain.SyncRequest{
		ConnectorID: connectorID,
		ScopeIDs:    scopeIDs,
	})
	metrics.WorkflowSignalsTotal.WithLabelValues("signal", metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("%w: connector %d: %w", domain.ErrSignalDeliveryFailed, connectorID, err)
	}
	return nil
}

// Launch starts a sync from cursor, or from scratch when cursor is nil.
func (t *SyncTrigger) Launch(ctx context.Context, connectorID int64, cursor *string) error {
	err := t.workflow.Launch(ctx, domain.SyncRequest{
		ConnectorID: connectorID,
		Cursor:      cursor,
	})
	metrics.WorkflowSignalsTotal.WithLabelValues("launch", metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("%w: connector %d: %w", domain.ErrSignalDeliveryFailed, connectorID, err)
	}
	return nil
}

// Stop terminates the sync workflow of a connector.
func (t *SyncTrigger) Stop(ctx context.Context, connectorID int64) error {
	err := t.workflow.Stop(ctx, connectorID)
	metrics.WorkflowSignalsTotal.WithLabelValues("stop", metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("%w: stop connector %d: %w", domain.ErrSignalDeliveryFailed, connectorID, err)
	}
	return nil
}
