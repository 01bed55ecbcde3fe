package tasks

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// taskOptions are the enqueue defaults per task type. Options passed at
// enqueue time are appended and win.
var taskOptions = map[string][]asynq.Option{
	TaskTypeClaimsUpdate: {
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(RetryMax),
		asynq.Timeout(TimeoutShort),
	},
	TaskTypeEmailSend: {
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutShort),
	},
	TaskTypeInvitationsExpire: {
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutLong),
	},
	TaskTypeStorageDelete: {
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutMedium),
		asynq.ProcessIn(StorageDeleteDelay),
	},
}

func optionsFor(taskType string, extra ...asynq.Option) []asynq.Option {
	base := taskOptions[taskType]
	out := make([]asynq.Option, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// NextRun returns the first activation of the standard cron spec after from.
func NextRun(spec string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return schedule.Next(from), nil
}

// CronSchedule returns an option that holds the task until the next activation
// of spec after from.
func CronSchedule(spec string, from time.Time) (asynq.Option, error) {
	next, err := NextRun(spec, from)
	if err != nil {
		return nil, err
	}
	return asynq.ProcessAt(next), nil
}
