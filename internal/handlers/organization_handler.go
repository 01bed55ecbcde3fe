package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"brandhub/internal/api/validator"
	"brandhub/internal/authz"
	"brandhub/internal/services"
	"brandhub/internal/utils/logger"
)

type OrganizationHandler struct {
	orgs    *services.OrganizationService
	members *services.MemberService
	log     *logger.Logger
}

func NewOrganizationHandler(orgs *services.OrganizationService, members *services.MemberService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, members: members, log: logger.New("OrganizationHandler")}
}

// CreateOrganization creates an organization owned by the caller
// @Summary Create an organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param request body validator.OrganizationRequest true "Organization"
// @Success 201 {object} models.Organization
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Router /orgs [post]
func (h *OrganizationHandler) CreateOrganization(c echo.Context) error {
	var req validator.OrganizationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	org, err := h.orgs.Create(c.Request().Context(), caller(c), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, org)
}

// ListOrganizations lists the organizations the caller belongs to
// @Summary List my organizations
// @Tags organizations
// @Produce json
// @Success 200 {array} services.OrganizationWithRole
// @Router /orgs [get]
func (h *OrganizationHandler) ListOrganizations(c echo.Context) error {
	orgs, err := h.orgs.ListMine(c.Request().Context(), caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orgs)
}

// @Summary Get an organization
// @Tags organizations
// @Produce json
// @Param orgId path string true "Organization ID"
// @Success 200 {object} models.Organization
// @Failure 403 {object} map[string]interface{} "Not a member"
// @Router /orgs/{orgId} [get]
func (h *OrganizationHandler) GetOrganization(c echo.Context) error {
	org, err := h.orgs.Get(c.Request().Context(), caller(c), c.Param("orgId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, org)
}

// @Summary Rename an organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param request body validator.OrganizationRequest true "Organization"
// @Success 200 {object} models.Organization
// @Router /orgs/{orgId} [put]
func (h *OrganizationHandler) UpdateOrganization(c echo.Context) error {
	var req validator.OrganizationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	org, err := h.orgs.Update(c.Request().Context(), caller(c), c.Param("orgId"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, org)
}

// RequestDeletion files a deletion request for the organization
// @Summary Request organization deletion
// @Tags organizations
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param request body validator.DeletionRequest false "Reason"
// @Success 202 {object} models.DeletionRequest
// @Failure 409 {object} map[string]interface{} "Deletion already requested"
// @Router /orgs/{orgId}/deletion [post]
func (h *OrganizationHandler) RequestDeletion(c echo.Context) error {
	var req validator.DeletionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	request, err := h.orgs.RequestDeletion(c.Request().Context(), caller(c), c.Param("orgId"), req.Reason)
	if err != nil {
		return err
	}
	h.log.Info("Deletion of organization %s requested", request.OrganizationID)
	return c.JSON(http.StatusAccepted, request)
}

// @Summary List organization members
// @Tags members
// @Produce json
// @Param orgId path string true "Organization ID"
// @Success 200 {array} models.OrganizationMember
// @Router /orgs/{orgId}/members [get]
func (h *OrganizationHandler) ListMembers(c echo.Context) error {
	members, err := h.members.List(c.Request().Context(), caller(c), c.Param("orgId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, members)
}

// @Summary Get my membership
// @Tags members
// @Produce json
// @Param orgId path string true "Organization ID"
// @Success 200 {object} models.OrganizationMember
// @Router /orgs/{orgId}/members/me [get]
func (h *OrganizationHandler) GetMyMembership(c echo.Context) error {
	member, err := h.members.Me(c.Request().Context(), caller(c), c.Param("orgId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, member)
}

// UpdateMember changes a member's role, permissions or brand scope
// @Summary Update a member
// @Tags members
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param userId path string true "User ID"
// @Param request body validator.MemberUpdateRequest true "Changes"
// @Success 200 {object} models.OrganizationMember
// @Router /orgs/{orgId}/members/{userId} [patch]
func (h *OrganizationHandler) UpdateMember(c echo.Context) error {
	var req validator.MemberUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := services.UpdateMemberInput{
		Permissions:        req.Permissions,
		AutoGrantNewBrands: req.AutoGrantNewBrands,
	}
	if req.Role != nil {
		role := authz.Role(*req.Role)
		in.Role = &role
	}
	if req.BrandAccess != nil {
		brands := toStrings(*req.BrandAccess)
		in.BrandAccess = &brands
	}

	member, err := h.members.Update(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("userId"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, member)
}

// @Summary Remove a member
// @Tags members
// @Param orgId path string true "Organization ID"
// @Param userId path string true "User ID"
// @Success 204
// @Router /orgs/{orgId}/members/{userId} [delete]
func (h *OrganizationHandler) RemoveMember(c echo.Context) error {
	if err := h.members.Remove(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("userId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
