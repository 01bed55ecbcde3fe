package services

import (
	"context"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/events"
	"brandhub/internal/models"
	"brandhub/internal/store"
	"brandhub/internal/utils/logger"
)

type MemberService struct {
	store  store.Store
	bus    *events.EventBus
	logger *logger.Logger
}

func NewMemberService(st store.Store, bus *events.EventBus) *MemberService {
	return &MemberService{
		store:  st,
		bus:    bus,
		logger: logger.New("Members"),
	}
}

// UpdateMemberInput replaces the given fields; nil fields are left alone.
type UpdateMemberInput struct {
	Role               *authz.Role
	Permissions        *[]string
	BrandAccess        *[]string
	AutoGrantNewBrands *bool
}

func (s *MemberService) List(ctx context.Context, caller authz.Identity, orgID string) ([]models.OrganizationMember, error) {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.UsersRead, ""); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, orgID)
}

// Me returns the caller's own membership in orgID.
func (s *MemberService) Me(ctx context.Context, caller authz.Identity, orgID string) (*models.OrganizationMember, error) {
	return actorIn(ctx, s.store, orgID, caller)
}

func (s *MemberService) Update(ctx context.Context, caller authz.Identity, orgID, userID string, in UpdateMemberInput) (*models.OrganizationMember, error) {
	actor, err := authorize(ctx, s.store, orgID, caller, authz.UsersUpdate, "")
	if err != nil {
		return nil, err
	}
	target, err := s.store.GetMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	wildcard := authz.IsWildcard(actor.Authz())
	if target.Role == authz.RoleOwner && !wildcard {
		return nil, apperr.Forbidden("only owners can change an owner's membership")
	}

	if in.Role != nil {
		role, ok := authz.ParseRole(string(*in.Role))
		if !ok {
			return nil, apperr.Invalid("unknown role %q", *in.Role)
		}
		if role == authz.RoleOwner && !wildcard {
			return nil, apperr.Forbidden("only owners can grant the owner role")
		}
		target.Role = role
	}
	if in.Permissions != nil {
		perms, err := parsePermissions(*in.Permissions)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			if authz.Permission(p) == authz.Wildcard && !wildcard {
				return nil, apperr.Forbidden("only owners can grant every permission")
			}
		}
		target.Permissions = perms
	}
	if in.BrandAccess != nil {
		brands := dedupe(*in.BrandAccess)
		if !authz.CoversBrands(actor.Authz(), brands) {
			return nil, apperr.Forbidden("cannot grant access to brands outside your own scope")
		}
		if err := requireBrands(ctx, s.store, orgID, brands); err != nil {
			return nil, err
		}
		target.BrandAccess = brands
	}
	if in.AutoGrantNewBrands != nil {
		target.AutoGrantNewBrands = *in.AutoGrantNewBrands
	}

	if target.UserID == caller.UserID && target.Role != authz.RoleOwner && actor.Role == authz.RoleOwner {
		if err := s.requireAnotherOwner(ctx, orgID, caller.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateMember(ctx, target); err != nil {
		return nil, s.logger.Error("Failed to update member %s in %s", err, userID, orgID)
	}

	s.bus.Emit(events.MembershipChanged, events.MembershipChange{
		OrganizationID: orgID, UserID: userID, Reason: "membership updated",
	})
	return target, nil
}

// Remove deletes a membership. Owners can only be removed by wildcard holders
// and the last owner cannot be removed.
func (s *MemberService) Remove(ctx context.Context, caller authz.Identity, orgID, userID string) error {
	actor, err := authorize(ctx, s.store, orgID, caller, authz.UsersRemove, "")
	if err != nil {
		return err
	}
	target, err := s.store.GetMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if target.Role == authz.RoleOwner {
		if !authz.IsWildcard(actor.Authz()) {
			return apperr.Forbidden("only owners can remove an owner")
		}
		if err := s.requireAnotherOwner(ctx, orgID, userID); err != nil {
			return err
		}
	}

	if err := s.store.DeleteMember(ctx, orgID, userID); err != nil {
		return err
	}

	s.logger.Info("Member %s removed from %s by %s", userID, orgID, caller.UserID)
	s.bus.Emit(events.MembershipChanged, events.MembershipChange{
		OrganizationID: orgID, UserID: userID, Reason: "membership removed",
	})
	return nil
}

func (s *MemberService) requireAnotherOwner(ctx context.Context, orgID, userID string) error {
	members, err := s.store.ListMembers(ctx, orgID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID != userID && m.Role == authz.RoleOwner {
			return nil
		}
	}
	return apperr.InvalidState("organization must keep at least one owner")
}

// EnsureProfile records the caller's email and display name locally.
func (s *MemberService) EnsureProfile(ctx context.Context, caller authz.Identity) (*models.UserProfile, error) {
	if caller.UserID == "" {
		return nil, apperr.Unauthenticated("no authenticated caller")
	}
	profile := &models.UserProfile{
		UserID:      caller.UserID,
		Email:       caller.Email,
		DisplayName: caller.Name,
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, s.logger.Error("Failed to upsert profile for %s", err, caller.UserID)
	}
	return profile, nil
}
