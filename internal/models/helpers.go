package models

import "strings"

// NormalizeEmail is the comparison form of an address: trimmed and lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailsMatch compares two addresses after normalization.
func EmailsMatch(a, b string) bool {
	na := NormalizeEmail(a)
	return na != "" && na == NormalizeEmail(b)
}

// AllModels lists every table for migration and the admin panel.
func AllModels() []interface{} {
	return []interface{}{
		&UserProfile{},
		&Organization{},
		&OrganizationMember{},
		&DeletionRequest{},
		&Invitation{},
		&Brand{},
		&Event{},
		&QRCode{},
	}
}
