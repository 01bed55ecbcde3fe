package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"brandhub/internal/config"
	"brandhub/internal/services"
	"brandhub/internal/utils/logger"
)

var (
	_ services.Mailer          = (*TaskClient)(nil)
	_ services.ClaimsRefresher = (*TaskClient)(nil)
	_ services.ObjectCleaner   = (*TaskClient)(nil)
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// TaskClient handles task enqueuing. It is how the services hand work to the
// background workers.
type TaskClient struct {
	client      enqueuer
	logger      *logger.Logger
	redisClient *redis.Client
}

// RedisClientOpt converts the redis settings into asynq's connection options.
func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig) *TaskClient {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &TaskClient{
		client:      asynq.NewClient(RedisClientOpt(cfg)),
		redisClient: redisClient,
		logger:      logger.New("TASKS"),
	}
}

// Redis returns the plain redis client sharing the task queue's connection
// settings.
func (c *TaskClient) Redis() *redis.Client {
	return c.redisClient
}

// Enqueue marshals payload and queues it with the task type's default options.
func (c *TaskClient) Enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), optionsFor(taskType, opts...)...)
	if err != nil {
		return nil, c.logger.Error("Failed to enqueue %s", err, taskType)
	}

	c.logger.Debug("Enqueued %s as %s on %s", taskType, info.ID, info.Queue)
	return info, nil
}

// RefreshClaims queues a claims rebuild for userID.
func (c *TaskClient) RefreshClaims(ctx context.Context, userID string) error {
	_, err := c.Enqueue(ctx, TaskTypeClaimsUpdate, ClaimsUpdatePayload{UserID: userID})
	return err
}

// Send queues email for delivery.
func (c *TaskClient) Send(ctx context.Context, email services.Email) error {
	_, err := c.Enqueue(ctx, TaskTypeEmailSend, EmailPayload{Email: email})
	return err
}

// DeleteObjectLater queues removal of key after StorageDeleteDelay.
func (c *TaskClient) DeleteObjectLater(ctx context.Context, key string) error {
	_, err := c.Enqueue(ctx, TaskTypeStorageDelete, StorageDeletePayload{Key: key})
	return err
}

// ExpireInvitations queues an immediate expiry sweep.
func (c *TaskClient) ExpireInvitations(ctx context.Context) error {
	_, err := c.Enqueue(ctx, TaskTypeInvitationsExpire, struct{}{})
	return err
}

// Close closes the underlying asynq client and redis connection.
func (c *TaskClient) Close() error {
	err := c.client.Close()
	if c.redisClient != nil {
		if rerr := c.redisClient.Close(); err == nil {
			err = rerr
		}
	}
	return err
}
