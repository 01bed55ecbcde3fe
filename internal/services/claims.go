package services

import (
	"context"
	"errors"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/events"
	"brandhub/internal/store"
	"brandhub/internal/utils/logger"
)

// ClaimsSink publishes claims payloads. SetClaims is a full overwrite.
type ClaimsSink interface {
	GetClaims(ctx context.Context, userID string) (*authz.ClaimsPayload, error)
	SetClaims(ctx context.Context, userID string, payload authz.ClaimsPayload) error
}

// ClaimsUpdate reports the outcome of a claims rebuild.
type ClaimsUpdate struct {
	Payload authz.ClaimsPayload
	// Degraded is set when the fallback payload was published.
	Degraded bool
	// ProfileErr holds the best-effort profile version bump failure, if any.
	ProfileErr error
}

type ClaimsService struct {
	store   store.Store
	sink    ClaimsSink
	encoder *authz.Encoder
	logger  *logger.Logger
}

func NewClaimsService(st store.Store, sink ClaimsSink, encoder *authz.Encoder) *ClaimsService {
	if encoder == nil {
		encoder = authz.NewEncoder()
	}
	return &ClaimsService{
		store:   st,
		sink:    sink,
		encoder: encoder,
		logger:  logger.New("Claims"),
	}
}

// UpdateUserClaims rebuilds and publishes the user's claims from their current
// memberships. The profile version bump runs last and never undoes the publish.
func (s *ClaimsService) UpdateUserClaims(ctx context.Context, userID string) (ClaimsUpdate, error) {
	if userID == "" {
		return ClaimsUpdate{}, apperr.Invalid("user id is required")
	}

	memberships, err := s.store.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return ClaimsUpdate{}, s.logger.Error("Failed to load memberships for %s", err, userID)
	}

	current, err := s.currentVersion(ctx, userID)
	if err != nil {
		return ClaimsUpdate{}, err
	}

	data := make([]authz.MembershipData, 0, len(memberships))
	for i := range memberships {
		data = append(data, memberships[i].MembershipData())
	}

	payload := s.encoder.Build(data, current)
	if err := s.sink.SetClaims(ctx, userID, payload); err != nil {
		return ClaimsUpdate{}, s.logger.Error("Failed to publish claims for %s", err, userID)
	}

	update := ClaimsUpdate{
		Payload:  payload,
		Degraded: payload.IsFallback() && len(memberships) > 0,
	}

	if _, err := s.store.IncrementClaimsVersion(ctx, userID); err != nil {
		update.ProfileErr = s.logger.Error("Claims published but profile version bump failed for %s", err, userID)
	}

	s.logger.Info("Published claims v%d for %s across %d orgs", payload.CV, userID, len(payload.Orgs))
	return update, nil
}

// currentVersion is the cv of the published payload. An undecodable payload
// counts as absent and falls back to the profile's version so the rebuild
// overwrites it.
func (s *ClaimsService) currentVersion(ctx context.Context, userID string) (int64, error) {
	existing, err := s.sink.GetClaims(ctx, userID)
	switch {
	case err == nil && existing != nil:
		return existing.CV, nil
	case err == nil:
		return 0, nil
	case !errors.Is(err, ErrCorruptClaims):
		return 0, s.logger.Error("Failed to read current claims for %s", err, userID)
	}

	s.logger.Warn("Replacing corrupt claims for %s: %v", userID, err)
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return 0, nil
		}
		return 0, s.logger.Error("Failed to load profile for %s", err, userID)
	}
	return max(0, profile.ClaimsVersion), nil
}

// IsDegraded reports whether payload is the fallback although userID holds
// memberships, meaning clients must fetch authorization from the server.
func (s *ClaimsService) IsDegraded(ctx context.Context, userID string, payload authz.ClaimsPayload) (bool, error) {
	if !payload.IsFallback() {
		return false, nil
	}
	memberships, err := s.store.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return false, s.logger.Error("Failed to load memberships for %s", err, userID)
	}
	return len(memberships) > 0, nil
}

// CurrentClaims returns the last published payload for userID, or nil.
func (s *ClaimsService) CurrentClaims(ctx context.Context, userID string) (*authz.ClaimsPayload, error) {
	return s.sink.GetClaims(ctx, userID)
}

// RegisterClaimsPropagation schedules a claims rebuild for every membership
// change emitted on bus.
func RegisterClaimsPropagation(bus *events.EventBus, refresher ClaimsRefresher) {
	log := logger.New("Claims-Propagation")
	bus.On(events.MembershipChanged, func(data interface{}) {
		change, ok := data.(events.MembershipChange)
		if !ok {
			log.Warn("Unexpected payload %T for %s", data, events.MembershipChanged)
			return
		}
		if err := refresher.RefreshClaims(context.Background(), change.UserID); err != nil {
			_ = log.Error("Failed to schedule claims refresh for %s", err, change.UserID)
		}
	})
}
