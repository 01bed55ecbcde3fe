package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"brandhub/internal/api/validator"
	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/models"
	"brandhub/internal/services"
	"brandhub/internal/utils/logger"
)

type InvitationHandler struct {
	invitations *services.InvitationService
	log         *logger.Logger
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, log: logger.New("InvitationHandler")}
}

type AcceptInvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

// CreateInvitation invites an email address into the organization
// @Summary Invite a user
// @Description Creates a pending invitation and emails the invitee. A pending invitation for the same email returns 409 with its ID.
// @Tags invitations
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param request body validator.InvitationRequest true "Invitation"
// @Success 201 {object} models.Invitation
// @Failure 403 {object} map[string]interface{} "Cannot invite this role"
// @Failure 409 {object} map[string]interface{} "Already invited or already a member"
// @Router /orgs/{orgId}/invitations [post]
func (h *InvitationHandler) CreateInvitation(c echo.Context) error {
	var req validator.InvitationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inv, err := h.invitations.Create(c.Request().Context(), caller(c), services.CreateInvitationInput{
		OrganizationID:     c.Param("orgId"),
		Email:              req.Email,
		Role:               authz.Role(req.Role),
		BrandAccess:        toStrings(req.BrandAccess),
		AutoGrantNewBrands: req.AutoGrantNewBrands,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, inv)
}

// @Summary List invitations
// @Tags invitations
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param status query string false "pending, accepted, declined, cancelled or expired"
// @Success 200 {array} models.Invitation
// @Router /orgs/{orgId}/invitations [get]
func (h *InvitationHandler) ListInvitations(c echo.Context) error {
	status := models.InvitationStatus(c.QueryParam("status"))
	invitations, err := h.invitations.List(c.Request().Context(), caller(c), c.Param("orgId"), status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invitations)
}

// @Summary Cancel an invitation
// @Tags invitations
// @Produce json
// @Param id path string true "Invitation ID"
// @Success 200 {object} models.Invitation
// @Failure 409 {object} map[string]interface{} "Invitation is not pending"
// @Router /invitations/{id}/cancel [post]
func (h *InvitationHandler) CancelInvitation(c echo.Context) error {
	inv, err := h.invitations.Cancel(c.Request().Context(), caller(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

// @Summary Resend an invitation
// @Tags invitations
// @Produce json
// @Param id path string true "Invitation ID"
// @Success 200 {object} models.Invitation
// @Router /invitations/{id}/resend [post]
func (h *InvitationHandler) ResendInvitation(c echo.Context) error {
	inv, err := h.invitations.Resend(c.Request().Context(), caller(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

// @Summary Decline an invitation
// @Tags invitations
// @Produce json
// @Param id path string true "Invitation ID"
// @Success 200 {object} models.Invitation
// @Failure 403 {object} map[string]interface{} "Invitation belongs to another email"
// @Router /invitations/{id}/decline [post]
func (h *InvitationHandler) DeclineInvitation(c echo.Context) error {
	inv, err := h.invitations.Decline(c.Request().Context(), caller(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

// AcceptInvitation joins the caller to the inviting organization
// @Summary Accept an invitation
// @Tags invitations
// @Accept json
// @Produce json
// @Param request body AcceptInvitationRequest true "Invitation token"
// @Success 201 {object} models.OrganizationMember
// @Failure 409 {object} map[string]interface{} "Expired or already resolved"
// @Router /invitations/accept [post]
func (h *InvitationHandler) AcceptInvitation(c echo.Context) error {
	var req AcceptInvitationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	member, err := h.invitations.Accept(c.Request().Context(), caller(c), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, member)
}

// @Summary Get an invitation addressed to me
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} models.Invitation
// @Router /invitations/token/{token} [get]
func (h *InvitationHandler) GetInvitation(c echo.Context) error {
	inv, err := h.invitations.GetForInvitee(c.Request().Context(), caller(c), c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

// PreviewInvitation is public: it shows what the link is for before sign-in
// @Summary Preview an invitation
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} models.InvitationPreview
// @Failure 404 {object} map[string]interface{} "Unknown token"
// @Router /invitations/preview/{token} [get]
func (h *InvitationHandler) PreviewInvitation(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return apperr.Invalid("token is required")
	}
	preview, err := h.invitations.Preview(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, preview)
}
