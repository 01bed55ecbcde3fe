package routes

import (
	"github.com/labstack/echo/v4"

	"brandhub/internal/handlers"
)

type OrganizationHandlers struct {
	Organizations *handlers.OrganizationHandler
	Brands        *handlers.BrandHandler
	Events        *handlers.EventHandler
	QRCodes       *handlers.QRCodeHandler
}

// SetupOrganizationRoutes registers everything scoped to one organization.
// Permission and brand scope checks happen in the services.
func SetupOrganizationRoutes(protected *echo.Group, h OrganizationHandlers) {
	orgs := protected.Group("/orgs")
	orgs.POST("", h.Organizations.CreateOrganization)
	orgs.GET("", h.Organizations.ListOrganizations)

	org := orgs.Group("/:orgId")
	org.GET("", h.Organizations.GetOrganization)
	org.PUT("", h.Organizations.UpdateOrganization)
	org.POST("/deletion", h.Organizations.RequestDeletion)

	members := org.Group("/members")
	members.GET("", h.Organizations.ListMembers)
	members.GET("/me", h.Organizations.GetMyMembership)
	members.PATCH("/:userId", h.Organizations.UpdateMember)
	members.DELETE("/:userId", h.Organizations.RemoveMember)

	brands := org.Group("/brands")
	brands.POST("", h.Brands.CreateBrand)
	brands.GET("", h.Brands.ListBrands)
	brands.GET("/:brandId", h.Brands.GetBrand)
	brands.PUT("/:brandId", h.Brands.UpdateBrand)
	brands.DELETE("/:brandId", h.Brands.DeleteBrand)

	events := org.Group("/events")
	events.POST("", h.Events.CreateEvent)
	events.GET("", h.Events.ListEvents)
	events.GET("/:eventId", h.Events.GetEvent)
	events.PUT("/:eventId", h.Events.UpdateEvent)
	events.DELETE("/:eventId", h.Events.DeleteEvent)

	codes := org.Group("/qrcodes")
	codes.POST("", h.QRCodes.CreateQRCode)
	codes.GET("", h.QRCodes.ListQRCodes)
	codes.GET("/:codeId", h.QRCodes.GetQRCode)
	codes.PUT("/:codeId", h.QRCodes.UpdateQRCode)
	codes.DELETE("/:codeId", h.QRCodes.DeleteQRCode)
}
