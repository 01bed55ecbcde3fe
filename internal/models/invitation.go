package models

import (
	"time"

	"gorm.io/datatypes"

	"brandhub/internal/authz"
)

type Invitation struct {
	Base
	Email              string                      `gorm:"not null;index:idx_invitation_org_email;uniqueIndex:idx_invitation_pending,where:status = 'pending'" json:"email"`
	OrganizationID     string                      `gorm:"type:uuid;not null;index:idx_invitation_org_email;uniqueIndex:idx_invitation_pending,where:status = 'pending'" json:"organizationId"`
	Role               authz.Role                  `gorm:"not null" json:"role"`
	BrandAccess        datatypes.JSONSlice[string] `json:"brandAccess"`
	AutoGrantNewBrands bool                        `gorm:"not null" json:"autoGrantNewBrands"`
	Token              string                      `gorm:"not null;uniqueIndex" json:"-"`
	Status             InvitationStatus            `gorm:"not null;index" json:"status"`
	ExpiresAt          time.Time                   `gorm:"not null" json:"expiresAt"`
	InvitedBy          string                      `gorm:"not null" json:"invitedBy"`
	InviterName        string                      `json:"inviterName"`
	InvitedAt          time.Time                   `gorm:"not null" json:"invitedAt"`
	AcceptedAt         *time.Time                  `json:"acceptedAt,omitempty"`
	RespondedAt        *time.Time                  `json:"respondedAt,omitempty"`
}

// IsExpired reports whether the invitation's window has closed at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// InvitationPreview is what an unauthenticated holder of a token may see.
type InvitationPreview struct {
	OrganizationName string     `json:"organizationName"`
	Role             authz.Role `json:"role"`
	InviterName      string     `json:"inviterName"`
}
