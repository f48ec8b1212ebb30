package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

// taskRow mirrors a scheduled_tasks row. Times are stored as RFC3339 text.
type taskRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	IntervalSeconds int64          `db:"interval_seconds"`
	LastRun         sql.NullString `db:"last_run"`
	NextRun         sql.NullString `db:"next_run"`
	LastError       sql.NullString `db:"last_error"`
	LastSuccess     sql.NullString `db:"last_success"`
	Enabled         bool           `db:"enabled"`
}

// resultRow mirrors a task_results row without its autoincrement id.
type resultRow struct {
	TaskID         string         `db:"task_id"`
	StartedAt      string         `db:"started_at"`
	EndedAt        string         `db:"ended_at"`
	Success        bool           `db:"success"`
	Error          sql.NullString `db:"error"`
	ItemsProcessed int            `db:"items_processed"`
}

var (
	taskStruct   = sqlbuilder.NewStruct(new(taskRow)).For(sqlbuilder.SQLite)
	resultStruct = sqlbuilder.NewStruct(new(resultRow)).For(sqlbuilder.SQLite)
)

type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	sb := taskStruct.SelectFrom("scheduled_tasks")
	sb.Where(sb.Equal("id", taskID))
	query, args := sb.Build()

	var row taskRow
	err := s.store.db.QueryRowContext(ctx, query, args...).Scan(taskStruct.Addr(&row)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}
	return row.task(), nil
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	sb := taskStruct.SelectFrom("scheduled_tasks")
	sb.OrderBy("id")
	query, args := sb.Build()

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		var row taskRow
		if err := rows.Scan(taskStruct.Addr(&row)...); err != nil {
			return nil, fmt.Errorf("scanning scheduled task: %w", err)
		}
		tasks = append(tasks, *row.task())
	}
	return tasks, rows.Err()
}

// SaveTask upserts the task keyed by its ID.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	ib := taskStruct.InsertInto("scheduled_tasks", newTaskRow(task))
	ib.SQL(`ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		interval_seconds = excluded.interval_seconds,
		last_run = excluded.last_run,
		next_run = excluded.next_run,
		last_error = excluded.last_error,
		last_success = excluded.last_success,
		enabled = excluded.enabled`)
	query, args := ib.Build()

	if _, err := s.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	row := resultRow{
		TaskID:         result.TaskID,
		StartedAt:      result.StartedAt.UTC().Format(time.RFC3339Nano),
		EndedAt:        result.EndedAt.UTC().Format(time.RFC3339Nano),
		Success:        result.Success,
		Error:          textOrNull(result.Error),
		ItemsProcessed: result.ItemsProcessed,
	}
	query, args := resultStruct.InsertInto("task_results", &row).Build()
	if _, err := s.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

// TaskHistory returns the newest results first, by insertion order.
func (s *schedulerStore) TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	sb := resultStruct.SelectFrom("task_results")
	sb.Where(sb.Equal("task_id", taskID))
	sb.OrderBy("id").Desc()
	sb.Limit(limit)
	query, args := sb.Build()

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	defer rows.Close()

	var history []domain.TaskResult
	for rows.Next() {
		var row resultRow
		if err := rows.Scan(resultStruct.Addr(&row)...); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}
		history = append(history, domain.TaskResult{
			TaskID:         row.TaskID,
			StartedAt:      parseTime(row.StartedAt),
			EndedAt:        parseTime(row.EndedAt),
			Success:        row.Success,
			Error:          row.Error.String,
			ItemsProcessed: row.ItemsProcessed,
		})
	}
	return history, rows.Err()
}

func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY id DESC) AS pos
				FROM task_results
			) WHERE pos > ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

func newTaskRow(t *domain.ScheduledTask) *taskRow {
	return &taskRow{
		ID:              t.ID,
		Name:            t.Name,
		IntervalSeconds: int64(t.Interval / time.Second),
		LastRun:         timeOrNull(t.LastRun),
		NextRun:         timeOrNull(t.NextRun),
		LastError:       textOrNull(t.LastError),
		LastSuccess:     timeOrNull(t.LastSuccess),
		Enabled:         t.Enabled,
	}
}

func (r *taskRow) task() *domain.ScheduledTask {
	return &domain.ScheduledTask{
		ID:          r.ID,
		Name:        r.Name,
		Interval:    time.Duration(r.IntervalSeconds) * time.Second,
		Enabled:     r.Enabled,
		LastRun:     parseTime(r.LastRun.String),
		NextRun:     parseTime(r.NextRun.String),
		LastSuccess: parseTime(r.LastSuccess.String),
		LastError:   r.LastError.String,
	}
}

func timeOrNull(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func textOrNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// parseTime returns the zero time for empty or malformed text.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
