package models

import (
	"gorm.io/gorm"
)

func (m *OrganizationMember) BeforeSave(tx *gorm.DB) error {
	m.Email = NormalizeEmail(m.Email)
	return nil
}

func (i *Invitation) BeforeSave(tx *gorm.DB) error {
	i.Email = NormalizeEmail(i.Email)
	return nil
}

func (p *UserProfile) BeforeSave(tx *gorm.DB) error {
	p.Email = NormalizeEmail(p.Email)
	return nil
}
