package driven

import (
	"context"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

// SchedulerStore persists background task state across restarts.
type SchedulerStore interface {
	// GetTask returns the task or nil and no error if it does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns all scheduled tasks.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or updates a task.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordResult appends a run to the task history.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// TaskHistory returns the most recent runs of a task, newest first.
	TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the most recent 'keep' results per task.
	PruneHistory(ctx context.Context, keep int) error
}
