package services

import (
	"context"
	"strings"
	"time"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/models"
	"brandhub/internal/store"
	"brandhub/internal/utils/logger"
)

const MaxEventNameLength = 150

type EventInput struct {
	BrandID  string
	Name     string
	Venue    string
	StartsAt time.Time
	EndsAt   *time.Time
}

type EventService struct {
	store  store.Store
	logger *logger.Logger
}

func NewEventService(st store.Store) *EventService {
	return &EventService{store: st, logger: logger.New("Events")}
}

func validateSchedule(in EventInput) error {
	if in.StartsAt.IsZero() {
		return apperr.Invalid("event start time is required")
	}
	if in.EndsAt != nil && !in.EndsAt.After(in.StartsAt) {
		return apperr.Invalid("event must end after it starts")
	}
	return nil
}

func (s *EventService) Create(ctx context.Context, caller authz.Identity, orgID string, in EventInput) (*models.Event, error) {
	if in.BrandID == "" {
		return nil, apperr.Invalid("brand is required")
	}
	if _, err := authorize(ctx, s.store, orgID, caller, authz.EventsCreate, in.BrandID); err != nil {
		return nil, err
	}
	name, err := validateName("event", in.Name, MaxEventNameLength)
	if err != nil {
		return nil, err
	}
	if err := validateSchedule(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetBrand(ctx, orgID, in.BrandID); err != nil {
		return nil, err
	}

	event := &models.Event{
		OrganizationID: orgID,
		BrandID:        in.BrandID,
		Name:           name,
		Venue:          strings.TrimSpace(in.Venue),
		StartsAt:       in.StartsAt,
		EndsAt:         in.EndsAt,
		CreatedBy:      caller.UserID,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, s.logger.Error("Failed to create event in %s", err, orgID)
	}
	return event, nil
}

// load fetches an event after confirming caller belongs to orgID, then checks
// perm against the event's brand.
func (s *EventService) load(ctx context.Context, caller authz.Identity, orgID, eventID string, perm authz.Permission) (*models.Event, error) {
	member, err := actorIn(ctx, s.store, orgID, caller)
	if err != nil {
		return nil, err
	}
	event, err := s.store.GetEvent(ctx, orgID, eventID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(member.Authz(), perm, event.BrandID); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) Get(ctx context.Context, caller authz.Identity, orgID, eventID string) (*models.Event, error) {
	return s.load(ctx, caller, orgID, eventID, authz.EventsRead)
}

// List returns events the caller can see, optionally for one brand.
func (s *EventService) List(ctx context.Context, caller authz.Identity, orgID, brandID string) ([]models.Event, error) {
	member, err := authorize(ctx, s.store, orgID, caller, authz.EventsRead, brandID)
	if err != nil {
		return nil, err
	}
	evs, err := s.store.ListEvents(ctx, orgID, brandID)
	if err != nil {
		return nil, err
	}
	view := member.Authz()
	out := make([]models.Event, 0, len(evs))
	for _, ev := range evs {
		if authz.HasBrandAccess(view, ev.BrandID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Update edits name, venue and schedule. Events cannot move between brands.
func (s *EventService) Update(ctx context.Context, caller authz.Identity, orgID, eventID string, in EventInput) (*models.Event, error) {
	event, err := s.load(ctx, caller, orgID, eventID, authz.EventsUpdate)
	if err != nil {
		return nil, err
	}
	if in.BrandID != "" && in.BrandID != event.BrandID {
		return nil, apperr.Invalid("events cannot move between brands")
	}
	name, err := validateName("event", in.Name, MaxEventNameLength)
	if err != nil {
		return nil, err
	}
	if err := validateSchedule(in); err != nil {
		return nil, err
	}

	event.Name = name
	event.Venue = strings.TrimSpace(in.Venue)
	event.StartsAt = in.StartsAt
	event.EndsAt = in.EndsAt
	if err := s.store.UpdateEvent(ctx, event); err != nil {
		return nil, s.logger.Error("Failed to update event %s", err, eventID)
	}
	return event, nil
}

// Delete removes the event and the QR codes attached to it.
func (s *EventService) Delete(ctx context.Context, caller authz.Identity, orgID, eventID string) error {
	event, err := s.load(ctx, caller, orgID, eventID, authz.EventsDelete)
	if err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx store.Store) error {
		codes, err := tx.ListQRCodes(ctx, orgID, event.BrandID, event.ID)
		if err != nil {
			return err
		}
		for _, code := range codes {
			if err := tx.DeleteQRCode(ctx, orgID, code.ID); err != nil {
				return err
			}
		}
		return tx.DeleteEvent(ctx, orgID, event.ID)
	})
}
