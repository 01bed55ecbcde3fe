package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/utils"
	"brandhub/internal/utils/logger"
)

var log = logger.New("auth_middleware")

const (
	contextIdentity = "identity"
	contextUserID   = "userID"
	contextEmail    = "email"
	contextClaims   = "claims"
)

type AuthMiddleware struct {
	issuer *utils.TokenIssuer
}

func NewAuthMiddleware(issuer *utils.TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{issuer: issuer}
}

// Middleware verifies the bearer identity token and stores the caller on the
// echo context. Authorization is left to the services.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return apperr.Unauthenticated("missing authorization header")
			}

			tokenParts := strings.SplitN(authHeader, " ", 2)
			if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
				return apperr.Unauthenticated("invalid authorization header format")
			}

			claims, err := m.issuer.Verify(strings.TrimSpace(tokenParts[1]))
			if err != nil {
				log.Warn("Rejected identity token for %s %s: %v", c.Request().Method, c.Path(), err)
				return err
			}

			identity := claims.Identity()
			c.Set(contextIdentity, identity)
			c.Set(contextUserID, identity.UserID)
			c.Set(contextEmail, identity.Email)
			c.Set(contextClaims, claims)

			return next(c)
		}
	}
}

// GetIdentity returns the verified caller, or the zero identity on public routes.
func GetIdentity(c echo.Context) authz.Identity {
	if id, ok := c.Get(contextIdentity).(authz.Identity); ok {
		return id
	}
	return authz.Identity{}
}

// GetUserID Helper functions to get values from context
func GetUserID(c echo.Context) string {
	if id, ok := c.Get(contextUserID).(string); ok {
		return id
	}
	return ""
}

func GetEmail(c echo.Context) string {
	if email, ok := c.Get(contextEmail).(string); ok {
		return email
	}
	return ""
}

func GetClaims(c echo.Context) *utils.IdentityClaims {
	if claims, ok := c.Get(contextClaims).(*utils.IdentityClaims); ok {
		return claims
	}
	return nil
}
