package services

import (
	"context"
	"io"
	"time"
)

// Email is one templated transactional message.
type Email struct {
	To            string                 `json:"to"`
	TemplateAlias string                 `json:"templateAlias"`
	Model         map[string]interface{} `json:"model"`
	Tag           string                 `json:"tag,omitempty"`
}

const (
	TemplateOrganizationInvitation = "organization-invitation"
	TemplateInvitationAccepted     = "invitation-accepted"
)

// Mailer dispatches email. Implementations may queue; callers treat every
// failure as best-effort.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// ClaimsRefresher schedules a claims rebuild for a user.
type ClaimsRefresher interface {
	RefreshClaims(ctx context.Context, userID string) error
}

// ObjectStorage stores brand assets.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	GetSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// ObjectCleaner removes stored objects out of band.
type ObjectCleaner interface {
	DeleteObjectLater(ctx context.Context, key string) error
}
