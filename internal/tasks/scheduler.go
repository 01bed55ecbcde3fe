package tasks

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"brandhub/internal/config"
	"brandhub/internal/utils/logger"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *logger.Logger
	sweepSpec string
}

// NewScheduler creates a new task scheduler. sweepSpec is the cron spec of the
// invitation expiry sweep.
func NewScheduler(redisCfg config.RedisConfig, sweepSpec string, log *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(
		RedisClientOpt(redisCfg),
		&asynq.SchedulerOpts{Location: time.UTC},
	)

	return &Scheduler{
		scheduler: scheduler,
		logger:    log,
		sweepSpec: sweepSpec,
	}
}

// Start registers the periodic tasks and blocks running the scheduler.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// registerTasks registers all periodic tasks
func (s *Scheduler) registerTasks() error {
	if s.sweepSpec == "" {
		s.logger.Warn("invitation expiry sweep disabled")
		return nil
	}
	if err := s.RegisterCustomTask(s.sweepSpec, TaskTypeInvitationsExpire, []byte("{}"), optionsFor(TaskTypeInvitationsExpire)...); err != nil {
		return err
	}
	next, _ := NextRun(s.sweepSpec, time.Now().UTC())
	s.logger.Info("registered all periodic tasks, next invitation sweep at %s", next.Format(time.RFC3339))
	return nil
}

// RegisterCustomTask registers a custom periodic task
func (s *Scheduler) RegisterCustomTask(spec string, taskType string, payload []byte, opts ...asynq.Option) error {
	if _, err := NextRun(spec, time.Now()); err != nil {
		return err
	}
	entryID, err := s.scheduler.Register(spec, asynq.NewTask(taskType, payload, opts...))
	if err != nil {
		return fmt.Errorf("failed to register custom task: %w", err)
	}

	s.logger.Info("registered custom task %s %s %s", taskType, spec, entryID)
	return nil
}
