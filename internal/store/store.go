// Package store persists organizations, memberships, invitations and the
// brand/event/QR code documents they scope.
package store

import (
	"context"
	"time"

	"brandhub/internal/models"
)

// Store is the document store. Every method that writes is atomic on its own;
// Transaction groups several writes into one unit.
type Store interface {
	// Transaction runs fn against a transactional view of the store. If fn
	// returns an error nothing it wrote is visible.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	OrganizationStore
	MemberStore
	ProfileStore
	InvitationStore
	BrandStore
	EventStore
	QRCodeStore
}

type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	ListOrganizations(ctx context.Context, ids []string) ([]models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	CreateDeletionRequest(ctx context.Context, req *models.DeletionRequest) error
	GetDeletionRequest(ctx context.Context, id string) (*models.DeletionRequest, error)
}

type MemberStore interface {
	CreateMember(ctx context.Context, member *models.OrganizationMember) error
	GetMember(ctx context.Context, orgID, userID string) (*models.OrganizationMember, error)
	FindMemberByEmail(ctx context.Context, orgID, email string) (*models.OrganizationMember, error)
	ListMembers(ctx context.Context, orgID string) ([]models.OrganizationMember, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]models.OrganizationMember, error)
	UpdateMember(ctx context.Context, member *models.OrganizationMember) error
	DeleteMember(ctx context.Context, orgID, userID string) error
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error
	// IncrementClaimsVersion bumps the profile's claims version, creating the
	// profile if needed, and returns the new value.
	IncrementClaimsVersion(ctx context.Context, userID string) (int64, error)
}

type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitation(ctx context.Context, id string) (*models.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	// FindPendingInvitation returns the pending invitation for email in orgID,
	// or a not-found error.
	FindPendingInvitation(ctx context.Context, orgID, email string) (*models.Invitation, error)
	// ListInvitations filters by status when status is non-empty.
	ListInvitations(ctx context.Context, orgID string, status models.InvitationStatus) ([]models.Invitation, error)
	ListExpiredInvitations(ctx context.Context, now time.Time, limit int) ([]models.Invitation, error)
	// TransitionInvitation writes inv's mutable fields only if the stored
	// status still equals from. A mismatch is a state error.
	TransitionInvitation(ctx context.Context, inv *models.Invitation, from models.InvitationStatus) error
}

type BrandStore interface {
	CreateBrand(ctx context.Context, brand *models.Brand) error
	GetBrand(ctx context.Context, orgID, id string) (*models.Brand, error)
	ListBrands(ctx context.Context, orgID string) ([]models.Brand, error)
	UpdateBrand(ctx context.Context, brand *models.Brand) error
	DeleteBrand(ctx context.Context, orgID, id string) error
}

type EventStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, orgID, id string) (*models.Event, error)
	// ListEvents filters by brand when brandID is non-empty.
	ListEvents(ctx context.Context, orgID, brandID string) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, orgID, id string) error
}

type QRCodeStore interface {
	CreateQRCode(ctx context.Context, code *models.QRCode) error
	GetQRCode(ctx context.Context, orgID, id string) (*models.QRCode, error)
	// FindQRCode looks a code up by ID alone, for public scan redirects.
	FindQRCode(ctx context.Context, id string) (*models.QRCode, error)
	ListQRCodes(ctx context.Context, orgID, brandID, eventID string) ([]models.QRCode, error)
	UpdateQRCode(ctx context.Context, code *models.QRCode) error
	DeleteQRCode(ctx context.Context, orgID, id string) error
	RecordScan(ctx context.Context, id string) error
}
