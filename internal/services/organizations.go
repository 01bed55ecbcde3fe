package services

import (
	"context"
	"strings"
	"time"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/events"
	"brandhub/internal/models"
	"brandhub/internal/store"
	"brandhub/internal/utils/logger"
)

const MaxOrganizationNameLength = 100

type OrganizationService struct {
	store  store.Store
	bus    *events.EventBus
	logger *logger.Logger
	now    func() time.Time
}

func NewOrganizationService(st store.Store, bus *events.EventBus) *OrganizationService {
	return &OrganizationService{
		store:  st,
		bus:    bus,
		logger: logger.New("Organizations"),
		now:    time.Now,
	}
}

// OrganizationWithRole pairs an organization with the caller's membership.
type OrganizationWithRole struct {
	models.Organization
	Role authz.Role `json:"role"`
}

func validateOrganizationName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Invalid("organization name is required")
	}
	if len([]rune(name)) > MaxOrganizationNameLength {
		return "", apperr.Invalid("organization name must be at most %d characters", MaxOrganizationNameLength)
	}
	return name, nil
}

// Create stores the organization and the caller's owner membership in one
// transaction.
func (s *OrganizationService) Create(ctx context.Context, caller authz.Identity, name string) (*models.Organization, error) {
	if caller.UserID == "" {
		return nil, apperr.Unauthenticated("no authenticated caller")
	}
	name, err := validateOrganizationName(name)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{Name: name, OwnerID: caller.UserID}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return tx.CreateMember(ctx, &models.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         caller.UserID,
			Email:          caller.Email,
			DisplayName:    caller.Name,
			Role:           authz.RoleOwner,
		})
	})
	if err != nil {
		return nil, s.logger.Error("Failed to create organization %q", err, name)
	}

	s.logger.Success("Organization %s created by %s", org.ID, caller.UserID)
	s.bus.Emit(events.MembershipChanged, events.MembershipChange{
		OrganizationID: org.ID, UserID: caller.UserID, Reason: "organization created",
	})
	return org, nil
}

func (s *OrganizationService) Get(ctx context.Context, caller authz.Identity, orgID string) (*models.Organization, error) {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.OrganizationsRead, ""); err != nil {
		return nil, err
	}
	return s.store.GetOrganization(ctx, orgID)
}

// ListMine returns every organization the caller belongs to.
func (s *OrganizationService) ListMine(ctx context.Context, caller authz.Identity) ([]OrganizationWithRole, error) {
	memberships, err := s.store.ListMembershipsByUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	roles := make(map[string]authz.Role, len(memberships))
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		roles[m.OrganizationID] = m.Role
		ids = append(ids, m.OrganizationID)
	}

	orgs, err := s.store.ListOrganizations(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]OrganizationWithRole, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, OrganizationWithRole{Organization: org, Role: roles[org.ID]})
	}
	return out, nil
}

func (s *OrganizationService) Update(ctx context.Context, caller authz.Identity, orgID, name string) (*models.Organization, error) {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.OrganizationsUpdate, ""); err != nil {
		return nil, err
	}
	name, err := validateOrganizationName(name)
	if err != nil {
		return nil, err
	}

	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	org.Name = name
	if err := s.store.UpdateOrganization(ctx, org); err != nil {
		return nil, s.logger.Error("Failed to update organization %s", err, orgID)
	}
	return org, nil
}

// RequestDeletion records a deletion request and stamps the organization with
// it atomically. Only one request may be in flight.
func (s *OrganizationService) RequestDeletion(ctx context.Context, caller authz.Identity, orgID, reason string) (*models.DeletionRequest, error) {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.OrganizationsDelete, ""); err != nil {
		return nil, err
	}

	var req *models.DeletionRequest
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		org, err := tx.GetOrganization(ctx, orgID)
		if err != nil {
			return err
		}
		if org.DeletionRequestID != "" {
			return apperr.Conflict(org.DeletionRequestID, "organization deletion already requested")
		}

		req = &models.DeletionRequest{
			OrganizationID: orgID,
			RequestedBy:    caller.UserID,
			Reason:         strings.TrimSpace(reason),
			Status:         models.DeletionStatusRequested,
			RequestedAt:    s.now(),
		}
		if err := tx.CreateDeletionRequest(ctx, req); err != nil {
			return err
		}
		org.DeletionRequestID = req.ID
		return tx.UpdateOrganization(ctx, org)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("Deletion requested for organization %s by %s", orgID, caller.UserID)
	return req, nil
}
