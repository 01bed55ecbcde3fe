package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"brandhub/internal/models"
	"brandhub/internal/services"
	"brandhub/internal/utils/logger"
)

type ClaimsUpdater interface {
	UpdateUserClaims(ctx context.Context, userID string) (services.ClaimsUpdate, error)
}

type EmailDeliverer interface {
	Deliver(ctx context.Context, email services.Email) error
}

type InvitationExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

type Limiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
}

// HandlerDeps are the collaborators task handlers delegate to. Objects and
// Limiter are optional.
type HandlerDeps struct {
	Claims      ClaimsUpdater
	Mailer      EmailDeliverer
	Invitations InvitationExpirer
	Objects     ObjectDeleter
	Limiter     Limiter
}

// TaskHandler handles task processing with improved error handling and logging
type TaskHandler struct {
	deps   HandlerDeps
	logger *logger.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(deps HandlerDeps) *TaskHandler {
	return &TaskHandler{
		deps:   deps,
		logger: logger.New("task_handler"),
	}
}

// Register routes every task type to its handler.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeClaimsUpdate, h.HandleClaimsUpdate)
	mux.HandleFunc(TaskTypeEmailSend, h.HandleEmailSend)
	mux.HandleFunc(TaskTypeInvitationsExpire, h.HandleInvitationsExpire)
	mux.HandleFunc(TaskTypeStorageDelete, h.HandleStorageDelete)
}

func decode(t *asynq.Task, v interface{}) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		return fmt.Errorf("invalid %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func (h *TaskHandler) HandleClaimsUpdate(ctx context.Context, t *asynq.Task) error {
	var p ClaimsUpdatePayload
	if err := decode(t, &p); err != nil {
		return err
	}
	if p.UserID == "" {
		return fmt.Errorf("claims update without user: %w", asynq.SkipRetry)
	}

	update, err := h.deps.Claims.UpdateUserClaims(ctx, p.UserID)
	if err != nil {
		return err
	}
	if update.Degraded {
		h.logger.Warn("User %s received fallback claims and will be checked server-side", p.UserID)
	}
	return nil
}

// HandleEmailSend delivers one email unless its recipient is over the
// per-recipient limit, in which case the task is archived without retry.
func (h *TaskHandler) HandleEmailSend(ctx context.Context, t *asynq.Task) error {
	var p EmailPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	if p.Email.To == "" {
		return fmt.Errorf("email without recipient: %w", asynq.SkipRetry)
	}

	if h.deps.Limiter != nil {
		allowed, err := h.deps.Limiter.Allow(ctx, models.NormalizeEmail(p.Email.To))
		switch {
		case err != nil:
			h.logger.Warn("Rate limiter unavailable, sending anyway: %v", err)
		case !allowed:
			h.logger.Warn("Rate limit reached for %s, dropping %s", p.Email.To, p.Email.TemplateAlias)
			return fmt.Errorf("recipient %s rate limited: %w", p.Email.To, asynq.SkipRetry)
		}
	}

	return h.deps.Mailer.Deliver(ctx, p.Email)
}

func (h *TaskHandler) HandleInvitationsExpire(ctx context.Context, t *asynq.Task) error {
	n, err := h.deps.Invitations.ExpireStale(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("Invitation sweep expired %d invitations", n)
	return nil
}

func (h *TaskHandler) HandleStorageDelete(ctx context.Context, t *asynq.Task) error {
	var p StorageDeletePayload
	if err := decode(t, &p); err != nil {
		return err
	}
	if h.deps.Objects == nil {
		h.logger.Warn("No object storage configured, leaving %s", p.Key)
		return nil
	}
	return h.deps.Objects.DeleteObject(ctx, p.Key)
}
