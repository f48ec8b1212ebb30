package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
	"github.com/custodia-labs/permsync/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// CacheSweeper drops expired ancestor cache entries.
type CacheSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// historyRetention is how many results are kept per task.
const historyRetention = 100

// taskFunc runs one pass of a task and reports how many items it touched.
type taskFunc func(ctx context.Context) (int, error)

// Scheduler runs the webhook renewal and cache sweep tasks on their
// configured intervals. Task state survives restarts through the store.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	tasks  map[string]taskFunc
	now    func() time.Time

	mu       sync.Mutex
	running  bool
	stopping bool
	inFlight map[string]struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. webhooks and sweeper may be nil, in
// which case their tasks complete without doing anything.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	webhooks *WebhookService,
	sweeper CacheSweeper,
) *Scheduler {
	tasks := map[string]taskFunc{
		domain.TaskIDWebhookRenewal: noop,
		domain.TaskIDCacheSweep:     noop,
	}
	if webhooks != nil {
		tasks[domain.TaskIDWebhookRenewal] = webhooks.RenewExpiring
	}
	if sweeper != nil {
		tasks[domain.TaskIDCacheSweep] = sweeper.Sweep
	}

	return &Scheduler{
		config:   config,
		store:    store,
		tasks:    tasks,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

func noop(context.Context) (int, error) { return 0, nil }

// Start runs the scheduler loop until Stop is called or ctx is done.
// It returns nil straight away when the scheduler is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || !s.config.Enabled {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopping = false
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}
	return s.loop(ctx, stop)
}

// Stop ends the loop and waits for running tasks. Once it is called,
// RunDue starts nothing until the next Start.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	s.stopping = true
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, def := range domain.BuiltinTasks() {
		if err := s.ensureTask(ctx, def.ID, def.Name, s.config.GetTaskConfig(def.ID)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates the task or applies a changed configuration to it.
// A new task is due immediately; a changed interval restarts the countdown.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	switch {
	case task == nil:
		task = &domain.ScheduledTask{ID: id, Name: name, Interval: cfg.Interval, NextRun: now}
	case task.Interval != cfg.Interval:
		task.Interval = cfg.Interval
		task.NextRun = now.Add(cfg.Interval)
	}
	task.Enabled = cfg.Enabled
	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}) error {
	s.RunDue(ctx)

	tick := s.config.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.stopping = true
			s.mu.Unlock()
			s.wg.Wait()
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue starts every due task that is not already running.
func (s *Scheduler) RunDue(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.IsDue(now) {
			continue
		}
		fn, ok := s.tasks[task.ID]
		if !ok {
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			continue
		}
		if !s.claim(task.ID) {
			continue
		}

		go func() {
			defer s.wg.Done()
			defer s.release(task.ID)
			s.execute(ctx, &task, fn)
		}()
	}
}

// Wait blocks until every started task has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// claim marks a task in flight and registers it with the wait group. The
// Add happens under mu so it can never race a Stop already waiting.
func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		logger.Debug("scheduler: stopping, not starting task %s", id)
		return false
	}
	if _, busy := s.inFlight[id]; busy {
		logger.Debug("scheduler: task %s still running, skipping", id)
		return false
	}
	s.inFlight[id] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask, fn taskFunc) {
	result := &domain.TaskResult{TaskID: task.ID, StartedAt: s.now()}
	items, err := fn(ctx)
	result.EndedAt = s.now()
	result.ItemsProcessed = items

	if err != nil {
		result.Error = err.Error()
		logger.Warn("scheduler: task %s failed: %v", task.ID, err)
	} else {
		result.Success = true
		logger.L().Debugw("scheduler task finished",
			"task", task.ID, "items", items, "duration", result.Duration())
	}
	task.Complete(result)

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, historyRetention); err != nil {
		logger.Warn("scheduler: failed to prune history: %v", err)
	}
}
