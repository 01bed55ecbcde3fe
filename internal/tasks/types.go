package tasks

import (
	"time"

	"brandhub/internal/services"
)

// Task Types
const (
	// TaskTypeClaimsUpdate rebuilds and republishes one user's claims.
	TaskTypeClaimsUpdate = "claims:update"
	// TaskTypeEmailSend delivers one templated email.
	TaskTypeEmailSend = "email:send"
	// TaskTypeInvitationsExpire sweeps overdue pending invitations.
	TaskTypeInvitationsExpire = "invitations:expire"
	// TaskTypeStorageDelete removes an object from storage.
	TaskTypeStorageDelete = "storage:delete"
)

// Task Queues
const (
	QueueCritical = "critical" // For time-sensitive tasks like claims propagation
	QueueDefault  = "default"  // For regular tasks like email sending
	QueueLow      = "low"      // For background tasks like cleanup
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 10
	RetryDefault = 3
	RetryMin     = 1
)

// StorageDeleteDelay keeps replaced objects around long enough for signed URLs
// already handed out to finish loading.
const StorageDeleteDelay = 10 * time.Minute

type ClaimsUpdatePayload struct {
	UserID string `json:"user_id"`
}

type EmailPayload struct {
	Email services.Email `json:"email"`
}

type StorageDeletePayload struct {
	Key string `json:"key"`
}
