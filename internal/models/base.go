package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	base.EnsureID()
	return nil
}

// EnsureID assigns a UUID if none is set. Stores that bypass gorm hooks call it
// directly.
func (base *Base) EnsureID() {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
}

type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusAccepted  InvitationStatus = "accepted"
	InvitationStatusDeclined  InvitationStatus = "declined"
	InvitationStatusCancelled InvitationStatus = "cancelled"
	InvitationStatusExpired   InvitationStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s InvitationStatus) IsTerminal() bool {
	return s != InvitationStatusPending
}

// IsValidInvitationStatus checks if a given status is valid
func IsValidInvitationStatus(s InvitationStatus) bool {
	switch s {
	case InvitationStatusPending, InvitationStatusAccepted, InvitationStatusDeclined,
		InvitationStatusCancelled, InvitationStatusExpired:
		return true
	default:
		return false
	}
}

type DeletionStatus string

const (
	DeletionStatusRequested DeletionStatus = "requested"
	DeletionStatusCompleted DeletionStatus = "completed"
)
