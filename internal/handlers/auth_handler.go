package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"brandhub/internal/authz"
	"brandhub/internal/models"
	"brandhub/internal/services"
	"brandhub/internal/utils"
	"brandhub/internal/utils/logger"
)

type AuthHandler struct {
	issuer  *utils.TokenIssuer
	claims  *services.ClaimsService
	members *services.MemberService
	orgs    *services.OrganizationService
	log     *logger.Logger
}

func NewAuthHandler(issuer *utils.TokenIssuer, claims *services.ClaimsService, members *services.MemberService, orgs *services.OrganizationService) *AuthHandler {
	return &AuthHandler{
		issuer:  issuer,
		claims:  claims,
		members: members,
		orgs:    orgs,
		log:     logger.New("AuthHandler"),
	}
}

type TokenResponse struct {
	Token    string               `json:"token"`
	Access   *authz.ClaimsPayload `json:"access,omitempty"`
	Degraded bool                 `json:"degraded,omitempty"`
}

type MeResponse struct {
	Profile       *models.UserProfile             `json:"profile"`
	Organizations []services.OrganizationWithRole `json:"organizations"`
}

// RefreshToken re-issues the caller's identity token with their current organization claims.
// @Summary Refresh identity token
// @Description Returns a new token embedding the latest published claims. When none are published yet they are built synchronously.
// @Tags auth
// @Produce json
// @Success 200 {object} TokenResponse
// @Failure 401 {object} map[string]interface{} "Invalid or expired token"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()
	identity := caller(c)

	if _, err := h.members.EnsureProfile(ctx, identity); err != nil {
		return err
	}

	access, err := h.claims.CurrentClaims(ctx, identity.UserID)
	if err != nil {
		h.log.Warn("Could not read published claims for %s, rebuilding: %v", identity.UserID, err)
		access = nil
	}

	var degraded bool
	if access == nil {
		update, err := h.claims.UpdateUserClaims(ctx, identity.UserID)
		if err != nil {
			return h.log.Error("Failed to build claims for %s", err, identity.UserID)
		}
		access = &update.Payload
		degraded = update.Degraded
	} else if degraded, err = h.claims.IsDegraded(ctx, identity.UserID, *access); err != nil {
		h.log.Warn("Could not check claims fallback for %s: %v", identity.UserID, err)
	}

	token, err := h.issuer.Issue(identity, access)
	if err != nil {
		return h.log.Error("Failed to sign token for %s", err, identity.UserID)
	}

	return c.JSON(http.StatusOK, TokenResponse{Token: token, Access: access, Degraded: degraded})
}

// GetMe returns the caller's profile and memberships
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} MeResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c echo.Context) error {
	ctx := c.Request().Context()
	identity := caller(c)

	profile, err := h.members.EnsureProfile(ctx, identity)
	if err != nil {
		return err
	}
	orgs, err := h.orgs.ListMine(ctx, identity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MeResponse{Profile: profile, Organizations: orgs})
}
