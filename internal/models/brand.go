package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Brand struct {
	Base
	OrganizationID string `gorm:"type:uuid;not null;index" json:"organizationId"`
	Name           string `gorm:"not null" json:"name"`
	Description    string `json:"description"`
	LogoPath       string `json:"logoPath,omitempty"`
	LogoURL        string `gorm:"-" json:"logoUrl,omitempty"` // Virtual field
	CreatedBy      string `json:"createdBy"`
}

func (b *Brand) AfterFind(tx *gorm.DB) error {
	if b.LogoPath == "" {
		return nil
	}
	url, err := SignedURL(tx.Statement.Context, b.LogoPath, time.Hour)
	if err != nil {
		return fmt.Errorf("failed to generate logo URL: %w", err)
	}
	b.LogoURL = url
	return nil
}

type Event struct {
	Base
	OrganizationID string     `gorm:"type:uuid;not null;index" json:"organizationId"`
	BrandID        string     `gorm:"type:uuid;not null;index" json:"brandId"`
	Name           string     `gorm:"not null" json:"name"`
	Venue          string     `json:"venue"`
	StartsAt       time.Time  `gorm:"not null" json:"startsAt"`
	EndsAt         *time.Time `json:"endsAt,omitempty"`
	CreatedBy      string     `json:"createdBy"`
}

type QRCode struct {
	Base
	OrganizationID string `gorm:"type:uuid;not null;index" json:"organizationId"`
	BrandID        string `gorm:"type:uuid;not null;index" json:"brandId"`

	// EventID optionally ties the code to an event of the same brand.
	EventID   string `gorm:"index" json:"eventId,omitempty"`
	Label     string `gorm:"not null" json:"label"`
	TargetURL string `gorm:"not null" json:"targetUrl"`
	ScanCount int64  `gorm:"not null" json:"scanCount"`
	CreatedBy string `json:"createdBy"`
}
