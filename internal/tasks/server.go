package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"brandhub/internal/config"
	"brandhub/internal/utils/logger"
)

var queues = map[string]int{
	QueueCritical: 6, // High priority
	QueueDefault:  3, // Medium priority
	QueueLow:      1, // Low priority
}

// Server handles task processing
type Server struct {
	server      *asynq.Server
	handler     *TaskHandler
	logger      *logger.Logger
	concurrency int
}

// NewServer creates a new task processing server
func NewServer(redisCfg config.RedisConfig, concurrency int, handler *TaskHandler, log *logger.Logger) *Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	server := asynq.NewServer(
		RedisClientOpt(redisCfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
			// Claims propagation must not wait behind cleanup work.
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				_ = log.Error("Task %s failed (attempt %d/%d)", err, task.Type(), retried+1, maxRetry+1)
			}),
		},
	)

	return &Server{
		server:      server,
		handler:     handler,
		logger:      log,
		concurrency: concurrency,
	}
}

// Start starts the task processing server
func (s *Server) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	s.handler.Register(mux)

	s.logger.Info("starting task processing server concurrency %d queues %v", s.concurrency, queues)

	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	return nil
}

// Stop stops the task processing server
func (s *Server) Stop() {
	s.server.Stop()
	s.logger.Info("task processing server stopped")
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("shutting down task processing server")
	s.server.Shutdown()
}
