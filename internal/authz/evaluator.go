package authz

import (
	"slices"

	"brandhub/internal/apperr"
)

// Member is the slice of an organization membership that authorization
// decisions depend on.
type Member struct {
	OrganizationID string
	UserID         string
	Role           Role
	// Permissions overrides the role table when non-empty.
	Permissions []Permission
	// BrandAccess empty means every brand.
	BrandAccess []string
}

// Identity is an authenticated caller as reported by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// EffectivePermissions resolves the member's permission set: the explicit
// override when present, else the role's.
func EffectivePermissions(m *Member) []Permission {
	if m == nil {
		return nil
	}
	if len(m.Permissions) > 0 {
		out := make([]Permission, len(m.Permissions))
		copy(out, m.Permissions)
		return out
	}
	return PermissionsForRole(m.Role)
}

func HasPermission(m *Member, required Permission) bool {
	for _, p := range EffectivePermissions(m) {
		if p == Wildcard || p == required {
			return true
		}
	}
	return false
}

// IsWildcard reports whether m holds every permission.
func IsWildcard(m *Member) bool {
	return slices.Contains(EffectivePermissions(m), Wildcard)
}

// CanInviteRole guards against privilege escalation through invitations:
// only wildcard holders may mint owners.
func CanInviteRole(actor *Member, target Role) bool {
	switch target {
	case RoleOwner:
		return IsWildcard(actor)
	case RoleAdmin, RoleMember:
		return HasPermission(actor, UsersInvite)
	default:
		return false
	}
}

// Unrestricted reports whether m sees every brand. It is the one place the
// empty-means-all convention lives.
func Unrestricted(m *Member) bool {
	return m != nil && len(m.BrandAccess) == 0
}

func HasBrandAccess(m *Member, brandID string) bool {
	if m == nil {
		return false
	}
	return Unrestricted(m) || slices.Contains(m.BrandAccess, brandID)
}

// CoversBrands reports whether every brand in scope is visible to m. An empty
// scope asks for all brands, which only an unrestricted member can grant.
func CoversBrands(m *Member, scope []string) bool {
	if m == nil {
		return false
	}
	if len(scope) == 0 {
		return Unrestricted(m)
	}
	for _, id := range scope {
		if !HasBrandAccess(m, id) {
			return false
		}
	}
	return true
}

// Authorize checks perm and, for brand-scoped resources, brand access.
func Authorize(m *Member, perm Permission, brandID string) error {
	if m == nil {
		return apperr.Forbidden("not a member of this organization")
	}
	if !HasPermission(m, perm) {
		return apperr.Forbidden("missing permission %s", perm)
	}
	if brandID != "" && !HasBrandAccess(m, brandID) {
		return apperr.Forbidden("no access to brand %s", brandID)
	}
	return nil
}
