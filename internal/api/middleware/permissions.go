package middleware

import (
	"github.com/go-advanced-admin/admin"
	"github.com/labstack/echo/v4"

	"brandhub/internal/apperr"
)

// AdminAllowlist holds the platform operators allowed into the admin panel.
// Organization roles never grant admin access.
type AdminAllowlist struct {
	users map[string]struct{}
}

func NewAdminAllowlist(userIDs []string) *AdminAllowlist {
	users := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			users[id] = struct{}{}
		}
	}
	return &AdminAllowlist{users: users}
}

func (a *AdminAllowlist) Allows(userID string) bool {
	if a == nil || userID == "" {
		return false
	}
	_, ok := a.users[userID]
	return ok
}

// RequireAdmin must run after the auth middleware.
func (a *AdminAllowlist) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := GetUserID(c)
			if userID == "" {
				return apperr.Unauthenticated("missing identity")
			}
			if !a.Allows(userID) {
				log.Warn("Admin access denied for user %s", userID)
				return apperr.Forbidden("admin access required")
			}
			return next(c)
		}
	}
}

// PermissionChecker adapts the allowlist to the admin panel's permission hook.
// The panel hands back the echo context it was invoked with.
func (a *AdminAllowlist) PermissionChecker() func(admin.PermissionRequest, interface{}) (bool, error) {
	return func(request admin.PermissionRequest, ctx interface{}) (bool, error) {
		c, ok := ctx.(echo.Context)
		if !ok {
			return false, nil
		}
		return a.Allows(GetUserID(c)), nil
	}
}
