package domain

import "time"

// Built-in background tasks.
const (
	TaskIDWebhookRenewal = "webhook-renewal"
	TaskIDCacheSweep     = "ancestor-cache-sweep"
)

// WebhookRenewalWindow is how long before expiry a webhook is re-registered.
const WebhookRenewalWindow = time.Hour

// TaskDefinition names a built-in task.
type TaskDefinition struct {
	ID   string
	Name string
}

// BuiltinTasks lists the tasks the scheduler knows how to run, in id order.
func BuiltinTasks() []TaskDefinition {
	return []TaskDefinition{
		{ID: TaskIDCacheSweep, Name: "Ancestor Cache Sweep"},
		{ID: TaskIDWebhookRenewal, Name: "Webhook Renewal"},
	}
}

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	LastError   string
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Complete records a finished run and schedules the next one one interval
// after it ended.
func (t *ScheduledTask) Complete(r *TaskResult) {
	t.LastRun = r.StartedAt
	t.NextRun = r.EndedAt.Add(t.Interval)
	if r.Success {
		t.LastSuccess = r.EndedAt
		t.LastError = ""
		return
	}
	t.LastError = r.Error
}

// TaskResult is one run of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts renewed webhooks or swept cache entries.
	ItemsProcessed int
}

// Duration is how long the run took.
func (r *TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig controls the scheduler loop and each task.
type SchedulerConfig struct {
	Enabled      bool
	TickInterval time.Duration
	TaskConfigs  map[string]TaskConfig
}

// TaskConfig enables a task and sets its interval.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration of a task, or the zero value
// (disabled) when the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig renews webhooks every 30 minutes and sweeps the
// ancestor cache once per cache TTL.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		TickInterval: time.Minute,
		TaskConfigs: map[string]TaskConfig{
			TaskIDWebhookRenewal: {Enabled: true, Interval: 30 * time.Minute},
			TaskIDCacheSweep:     {Enabled: true, Interval: AncestorCacheTTL},
		},
	}
}
