package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/events"
	"brandhub/internal/models"
	"brandhub/internal/store"
	"brandhub/internal/utils"
	"brandhub/internal/utils/logger"
)

const (
	DefaultInvitationTTL = 7 * 24 * time.Hour
	invitationTokenBytes = 32
	expireBatchSize      = 500
)

type InvitationOptions struct {
	TTL time.Duration
	// AppURL is the base of the invitation landing page link.
	AppURL string
}

type InvitationService struct {
	store  store.Store
	bus    *events.EventBus
	mailer Mailer
	ttl    time.Duration
	appURL string
	logger *logger.Logger
	now    func() time.Time
}

func NewInvitationService(st store.Store, bus *events.EventBus, mailer Mailer, opts InvitationOptions) *InvitationService {
	if opts.TTL <= 0 {
		opts.TTL = DefaultInvitationTTL
	}
	return &InvitationService{
		store:  st,
		bus:    bus,
		mailer: mailer,
		ttl:    opts.TTL,
		appURL: strings.TrimRight(opts.AppURL, "/"),
		logger: logger.New("Invitations"),
		now:    time.Now,
	}
}

type CreateInvitationInput struct {
	OrganizationID     string
	Email              string
	Role               authz.Role
	BrandAccess        []string
	AutoGrantNewBrands bool
}

// CheckAcceptable reports whether inv may still be accepted at now.
func CheckAcceptable(inv *models.Invitation, now time.Time) error {
	if inv.Status != models.InvitationStatusPending {
		return apperr.InvalidState("invitation is already %s", inv.Status)
	}
	if inv.IsExpired(now) {
		return apperr.InvalidState("invitation has expired")
	}
	return nil
}

func (s *InvitationService) Create(ctx context.Context, caller authz.Identity, in CreateInvitationInput) (*models.Invitation, error) {
	email := models.NormalizeEmail(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperr.Invalid("invalid email address %q", in.Email)
	}
	role, ok := authz.ParseRole(string(in.Role))
	if !ok {
		return nil, apperr.Invalid("unknown role %q", in.Role)
	}

	actor, err := authorize(ctx, s.store, in.OrganizationID, caller, authz.UsersInvite, "")
	if err != nil {
		return nil, err
	}
	if !authz.CanInviteRole(actor.Authz(), role) {
		return nil, apperr.Forbidden("not allowed to invite with role %s", role)
	}
	brands := dedupe(in.BrandAccess)
	if !authz.CoversBrands(actor.Authz(), brands) {
		return nil, apperr.Forbidden("cannot grant access to brands outside your own scope")
	}

	org, err := s.store.GetOrganization(ctx, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org.DeletionRequestID != "" {
		return nil, apperr.InvalidState("organization is scheduled for deletion")
	}
	if err := requireBrands(ctx, s.store, org.ID, brands); err != nil {
		return nil, err
	}

	token, err := utils.GenerateToken(invitationTokenBytes)
	if err != nil {
		return nil, s.logger.Error("Failed to generate invitation token", err)
	}

	now := s.now()
	inv := &models.Invitation{
		Email:              email,
		OrganizationID:     org.ID,
		Role:               role,
		BrandAccess:        brands,
		AutoGrantNewBrands: in.AutoGrantNewBrands,
		Token:              token,
		Status:             models.InvitationStatusPending,
		ExpiresAt:          now.Add(s.ttl),
		InvitedBy:          caller.UserID,
		InviterName:        inviterName(caller, actor),
		InvitedAt:          now,
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		pending, err := tx.FindPendingInvitation(ctx, org.ID, email)
		switch {
		case err == nil && pending.IsExpired(now):
			if err := s.markExpired(ctx, tx, pending, now); err != nil {
				return err
			}
		case err == nil:
			return apperr.Conflict(pending.ID, "an invitation for %s is already pending", email)
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}

		member, err := tx.FindMemberByEmail(ctx, org.ID, email)
		if err == nil {
			return apperr.Conflict(member.ID, "%s is already a member of this organization", email)
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return tx.CreateInvitation(ctx, inv)
	})
	if err != nil {
		return nil, s.pendingConflict(ctx, org.ID, email, err)
	}

	s.logger.Success("Invitation %s created for %s in %s as %s", inv.ID, email, org.ID, role)
	s.sendInvitationEmail(ctx, org, inv)
	s.bus.Emit(events.InvitationCreated, noticeFor(inv))
	return inv, nil
}

// pendingConflict resolves a unique-index violation from a concurrent create
// to the invitation that won, so the conflict carries its id.
func (s *InvitationService) pendingConflict(ctx context.Context, orgID, email string, err error) error {
	if !errors.Is(err, apperr.ErrConflict) || apperr.ResourceIDOf(err) != "" {
		return err
	}
	pending, findErr := s.store.FindPendingInvitation(ctx, orgID, email)
	if findErr != nil {
		return err
	}
	s.logger.Warn("Concurrent invitation for %s in %s lost to %s", email, orgID, pending.ID)
	return apperr.Conflict(pending.ID, "an invitation for %s is already pending", email)
}

func inviterName(caller authz.Identity, actor *models.OrganizationMember) string {
	switch {
	case caller.Name != "":
		return caller.Name
	case actor.DisplayName != "":
		return actor.DisplayName
	default:
		return caller.Email
	}
}

func noticeFor(inv *models.Invitation) events.InvitationNotice {
	return events.InvitationNotice{
		InvitationID:   inv.ID,
		OrganizationID: inv.OrganizationID,
		Email:          inv.Email,
		Status:         string(inv.Status),
	}
}

// loadForManager fetches an invitation and checks the caller may manage
// invitations in its organization.
func (s *InvitationService) loadForManager(ctx context.Context, caller authz.Identity, id string) (*models.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.store, inv.OrganizationID, caller, authz.UsersInvite, ""); err != nil {
		return nil, err
	}
	return inv, nil
}

// resolve moves a pending invitation to a terminal status.
func (s *InvitationService) resolve(ctx context.Context, st store.Store, inv *models.Invitation, to models.InvitationStatus) error {
	if inv.Status != models.InvitationStatusPending {
		return apperr.InvalidState("invitation is already %s", inv.Status)
	}
	now := s.now()
	next := *inv
	next.Status = to
	next.RespondedAt = &now
	if to == models.InvitationStatusAccepted {
		next.AcceptedAt = &now
	}
	if err := st.TransitionInvitation(ctx, &next, models.InvitationStatusPending); err != nil {
		return err
	}
	*inv = next
	return nil
}

func (s *InvitationService) markExpired(ctx context.Context, st store.Store, inv *models.Invitation, now time.Time) error {
	next := *inv
	next.Status = models.InvitationStatusExpired
	next.RespondedAt = &now
	if err := st.TransitionInvitation(ctx, &next, models.InvitationStatusPending); err != nil {
		return err
	}
	*inv = next
	return nil
}

func (s *InvitationService) Cancel(ctx context.Context, caller authz.Identity, id string) (*models.Invitation, error) {
	inv, err := s.loadForManager(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolve(ctx, s.store, inv, models.InvitationStatusCancelled); err != nil {
		return nil, err
	}
	s.logger.Info("Invitation %s cancelled by %s", id, caller.UserID)
	s.bus.Emit(events.InvitationResolved, noticeFor(inv))
	return inv, nil
}

// Resend pushes the expiry out by a full TTL and sends the email again. The
// token is unchanged so earlier links keep working.
func (s *InvitationService) Resend(ctx context.Context, caller authz.Identity, id string) (*models.Invitation, error) {
	inv, err := s.loadForManager(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, apperr.InvalidState("invitation is already %s", inv.Status)
	}

	next := *inv
	next.ExpiresAt = s.now().Add(s.ttl)
	if err := s.store.TransitionInvitation(ctx, &next, models.InvitationStatusPending); err != nil {
		return nil, err
	}

	org, err := s.store.GetOrganization(ctx, next.OrganizationID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Invitation %s resent by %s", id, caller.UserID)
	s.sendInvitationEmail(ctx, org, &next)
	return &next, nil
}

// Decline is performed by the invitee, identified by email rather than
// membership.
func (s *InvitationService) Decline(ctx context.Context, caller authz.Identity, id string) (*models.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.EmailsMatch(caller.Email, inv.Email) {
		return nil, apperr.Forbidden("this invitation was sent to a different email address")
	}
	if err := s.resolve(ctx, s.store, inv, models.InvitationStatusDeclined); err != nil {
		return nil, err
	}
	s.logger.Info("Invitation %s declined", id)
	s.bus.Emit(events.InvitationResolved, noticeFor(inv))
	return inv, nil
}

// Accept marks the invitation accepted and creates the membership in one
// transaction.
func (s *InvitationService) Accept(ctx context.Context, caller authz.Identity, token string) (*models.OrganizationMember, error) {
	if caller.UserID == "" {
		return nil, apperr.Unauthenticated("no authenticated caller")
	}
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !models.EmailsMatch(caller.Email, inv.Email) {
		return nil, apperr.Forbidden("this invitation was sent to a different email address")
	}

	now := s.now()
	if err := CheckAcceptable(inv, now); err != nil {
		if inv.Status == models.InvitationStatusPending {
			if expErr := s.markExpired(ctx, s.store, inv, now); expErr != nil {
				s.logger.Warn("Could not mark invitation %s expired: %v", inv.ID, expErr)
			}
		}
		return nil, err
	}

	member := &models.OrganizationMember{
		OrganizationID:     inv.OrganizationID,
		UserID:             caller.UserID,
		Email:              inv.Email,
		DisplayName:        caller.Name,
		Role:               inv.Role,
		BrandAccess:        append([]string(nil), inv.BrandAccess...),
		AutoGrantNewBrands: inv.AutoGrantNewBrands,
	}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := s.resolve(ctx, tx, inv, models.InvitationStatusAccepted); err != nil {
			return err
		}
		if existing, err := tx.GetMember(ctx, inv.OrganizationID, caller.UserID); err == nil {
			return apperr.Conflict(existing.ID, "already a member of this organization")
		}
		return tx.CreateMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Success("Invitation %s accepted by %s", inv.ID, caller.UserID)
	s.bus.Emit(events.MembershipChanged, events.MembershipChange{
		OrganizationID: inv.OrganizationID, UserID: caller.UserID, Reason: "invitation accepted",
	})
	s.bus.Emit(events.InvitationResolved, noticeFor(inv))
	s.notifyInviter(ctx, inv, caller)
	return member, nil
}

// Preview exposes only what an unauthenticated token holder may see.
func (s *InvitationService) Preview(ctx context.Context, token string) (*models.InvitationPreview, error) {
	if token == "" {
		return nil, apperr.Invalid("token is required")
	}
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, inv.OrganizationID)
	if err != nil {
		return nil, err
	}
	return &models.InvitationPreview{
		OrganizationName: org.Name,
		Role:             inv.Role,
		InviterName:      inv.InviterName,
	}, nil
}

func (s *InvitationService) List(ctx context.Context, caller authz.Identity, orgID string, status models.InvitationStatus) ([]models.Invitation, error) {
	if status != "" && !models.IsValidInvitationStatus(status) {
		return nil, apperr.Invalid("unknown invitation status %q", status)
	}
	if _, err := authorize(ctx, s.store, orgID, caller, authz.UsersRead, ""); err != nil {
		return nil, err
	}
	return s.store.ListInvitations(ctx, orgID, status)
}

// GetForInvitee returns the invitation behind token when it was sent to the
// caller, so the onboarding flow can show it after sign-in.
func (s *InvitationService) GetForInvitee(ctx context.Context, caller authz.Identity, token string) (*models.Invitation, error) {
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !models.EmailsMatch(caller.Email, inv.Email) {
		return nil, apperr.Forbidden("this invitation was sent to a different email address")
	}
	return inv, nil
}

// ExpireStale flips overdue pending invitations to expired and returns how
// many it changed. Invitations resolved concurrently are skipped.
func (s *InvitationService) ExpireStale(ctx context.Context) (int, error) {
	now := s.now()
	expired := 0
	for {
		batch, err := s.store.ListExpiredInvitations(ctx, now, expireBatchSize)
		if err != nil {
			return expired, s.logger.Error("Failed to list expired invitations", err)
		}
		changed := 0
		for i := range batch {
			err := s.markExpired(ctx, s.store, &batch[i], now)
			if errors.Is(err, apperr.ErrState) {
				continue
			}
			if err != nil {
				return expired, s.logger.Error("Failed to expire invitation %s", err, batch[i].ID)
			}
			changed++
			s.bus.Emit(events.InvitationResolved, noticeFor(&batch[i]))
		}
		expired += changed
		if len(batch) < expireBatchSize || changed == 0 {
			break
		}
	}
	if expired > 0 {
		s.logger.Info("Expired %d invitations", expired)
	}
	return expired, nil
}

func (s *InvitationService) inviteURL(token string) string {
	return fmt.Sprintf("%s/invitations/%s", s.appURL, token)
}

func (s *InvitationService) sendInvitationEmail(ctx context.Context, org *models.Organization, inv *models.Invitation) {
	if s.mailer == nil {
		return
	}
	err := s.mailer.Send(ctx, Email{
		To:            inv.Email,
		TemplateAlias: TemplateOrganizationInvitation,
		Tag:           "invitation",
		Model: map[string]interface{}{
			"organization_name": org.Name,
			"inviter_name":      inv.InviterName,
			"role":              string(inv.Role),
			"invite_url":        s.inviteURL(inv.Token),
			"expires_at":        inv.ExpiresAt.UTC().Format(time.RFC1123),
		},
	})
	if err != nil {
		_ = s.logger.Error("Failed to send invitation email for %s", err, inv.ID)
	}
}

func (s *InvitationService) notifyInviter(ctx context.Context, inv *models.Invitation, invitee authz.Identity) {
	if s.mailer == nil {
		return
	}
	profile, err := s.store.GetProfile(ctx, inv.InvitedBy)
	if err != nil || profile.Email == "" {
		s.logger.Debug("No inviter email on file for invitation %s", inv.ID)
		return
	}
	name := invitee.Name
	if name == "" {
		name = inv.Email
	}
	err = s.mailer.Send(ctx, Email{
		To:            profile.Email,
		TemplateAlias: TemplateInvitationAccepted,
		Tag:           "invitation",
		Model: map[string]interface{}{
			"invitee_name": name,
			"role":         string(inv.Role),
		},
	})
	if err != nil {
		_ = s.logger.Error("Failed to notify inviter for %s", err, inv.ID)
	}
}
