package models

import (
	"time"

	"gorm.io/datatypes"

	"brandhub/internal/authz"
)

type Organization struct {
	Base
	Name    string `gorm:"not null" json:"name"`
	OwnerID string `gorm:"not null;index" json:"ownerId"`

	// DeletionRequestID is set while a deletion is in flight.
	DeletionRequestID string `gorm:"index" json:"deletionRequestId,omitempty"`
}

type OrganizationMember struct {
	Base
	OrganizationID string     `gorm:"type:uuid;not null;uniqueIndex:idx_member_org_user" json:"organizationId"`
	UserID         string     `gorm:"not null;uniqueIndex:idx_member_org_user;index" json:"userId"`
	Email          string     `gorm:"not null;index" json:"email"`
	DisplayName    string     `json:"displayName"`
	Role           authz.Role `gorm:"not null" json:"role"`

	// Permissions overrides the role table when non-empty.
	Permissions datatypes.JSONSlice[string] `json:"permissions"`

	// BrandAccess empty means every brand in the organization.
	BrandAccess        datatypes.JSONSlice[string] `json:"brandAccess"`
	AutoGrantNewBrands bool                        `gorm:"not null" json:"autoGrantNewBrands"`
}

// Authz returns the view of the membership used for authorization decisions.
func (m *OrganizationMember) Authz() *authz.Member {
	if m == nil {
		return nil
	}
	perms := make([]authz.Permission, 0, len(m.Permissions))
	for _, p := range m.Permissions {
		perms = append(perms, authz.Permission(p))
	}
	return &authz.Member{
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Role:           m.Role,
		Permissions:    perms,
		BrandAccess:    append([]string(nil), m.BrandAccess...),
	}
}

// MembershipData converts the record for the claims encoder.
func (m *OrganizationMember) MembershipData() authz.MembershipData {
	a := m.Authz()
	return authz.MembershipData{
		OrganizationID: a.OrganizationID,
		Role:           a.Role,
		Permissions:    a.Permissions,
		BrandAccess:    a.BrandAccess,
	}
}

// Restricted reports whether the member sees only an explicit brand list.
func (m *OrganizationMember) Restricted() bool {
	return !authz.Unrestricted(m.Authz())
}

type DeletionRequest struct {
	Base
	OrganizationID string         `gorm:"type:uuid;not null;index" json:"organizationId"`
	RequestedBy    string         `gorm:"not null" json:"requestedBy"`
	Reason         string         `json:"reason"`
	Status         DeletionStatus `gorm:"not null" json:"status"`
	RequestedAt    time.Time      `gorm:"not null" json:"requestedAt"`
}

// UserProfile mirrors identity-provider users locally. ClaimsVersion tracks the
// last claims payload written for the user.
type UserProfile struct {
	UserID        string    `gorm:"primaryKey" json:"userId"`
	Email         string    `gorm:"index" json:"email"`
	DisplayName   string    `json:"displayName"`
	ClaimsVersion int64     `gorm:"not null" json:"claimsVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
