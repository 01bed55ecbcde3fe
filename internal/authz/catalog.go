package authz

import "strings"

// Permission is a `category:action` capability token.
type Permission string

// Wildcard satisfies every permission check.
const Wildcard Permission = "*"

const (
	OrganizationsRead   Permission = "organizations:read"
	OrganizationsUpdate Permission = "organizations:update"
	OrganizationsDelete Permission = "organizations:delete"

	BrandsCreate Permission = "brands:create"
	BrandsRead   Permission = "brands:read"
	BrandsUpdate Permission = "brands:update"
	BrandsDelete Permission = "brands:delete"

	EventsCreate Permission = "events:create"
	EventsRead   Permission = "events:read"
	EventsUpdate Permission = "events:update"
	EventsDelete Permission = "events:delete"

	QRCodesCreate Permission = "qrcodes:create"
	QRCodesRead   Permission = "qrcodes:read"
	QRCodesUpdate Permission = "qrcodes:update"
	QRCodesDelete Permission = "qrcodes:delete"

	UsersRead   Permission = "users:read"
	UsersInvite Permission = "users:invite"
	UsersUpdate Permission = "users:update"
	UsersRemove Permission = "users:remove"
)

// Role is an organization role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Roles lists every valid role, most privileged first.
var Roles = []Role{RoleOwner, RoleAdmin, RoleMember}

// catalog is ordered; encoders rely on this order for stable output.
var catalog = []Permission{
	OrganizationsRead, OrganizationsUpdate, OrganizationsDelete,
	BrandsCreate, BrandsRead, BrandsUpdate, BrandsDelete,
	EventsCreate, EventsRead, EventsUpdate, EventsDelete,
	QRCodesCreate, QRCodesRead, QRCodesUpdate, QRCodesDelete,
	UsersRead, UsersInvite, UsersUpdate, UsersRemove,
}

var rolePermissions = map[Role][]Permission{
	RoleOwner: {Wildcard},
	RoleAdmin: {
		OrganizationsRead, OrganizationsUpdate,
		BrandsCreate, BrandsRead, BrandsUpdate, BrandsDelete,
		EventsCreate, EventsRead, EventsUpdate, EventsDelete,
		QRCodesCreate, QRCodesRead, QRCodesUpdate, QRCodesDelete,
		UsersRead, UsersInvite, UsersUpdate, UsersRemove,
	},
	RoleMember: {
		OrganizationsRead,
		BrandsRead,
		EventsCreate, EventsRead, EventsUpdate,
		QRCodesCreate, QRCodesRead, QRCodesUpdate,
		UsersRead,
	},
}

// abbreviations keeps claims small. Must stay injective.
var abbreviations = map[Permission]string{
	Wildcard: "*",

	OrganizationsRead:   "o:r",
	OrganizationsUpdate: "o:u",
	OrganizationsDelete: "o:d",

	BrandsCreate: "b:c",
	BrandsRead:   "b:r",
	BrandsUpdate: "b:u",
	BrandsDelete: "b:d",

	EventsCreate: "e:c",
	EventsRead:   "e:r",
	EventsUpdate: "e:u",
	EventsDelete: "e:d",

	QRCodesCreate: "q:c",
	QRCodesRead:   "q:r",
	QRCodesUpdate: "q:u",
	QRCodesDelete: "q:d",

	UsersRead:   "u:r",
	UsersInvite: "u:i",
	UsersUpdate: "u:u",
	UsersRemove: "u:x",
}

var expansions = func() map[string]Permission {
	out := make(map[string]Permission, len(abbreviations))
	for perm, short := range abbreviations {
		out[short] = perm
	}
	return out
}()

// PermissionsForRole returns a copy of the role's permission set. Unknown roles
// get nothing.
func PermissionsForRole(role Role) []Permission {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// AllPermissions returns the catalog in canonical order, without the wildcard.
func AllPermissions() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := rolePermissions[role]
	return role, ok
}

// IsKnown reports whether p is in the catalog or is the wildcard.
func IsKnown(p Permission) bool {
	_, ok := abbreviations[p]
	return ok
}

// Abbreviate returns the short code for p. Unknown permissions pass through.
func Abbreviate(p Permission) string {
	if short, ok := abbreviations[p]; ok {
		return short
	}
	return string(p)
}

// Expand reverses Abbreviate.
func Expand(short string) Permission {
	if perm, ok := expansions[short]; ok {
		return perm
	}
	return Permission(short)
}
