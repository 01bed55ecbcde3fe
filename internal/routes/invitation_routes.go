package routes

import (
	"github.com/labstack/echo/v4"

	"brandhub/internal/handlers"
)

// SetupInvitationRoutes registers the public preview and the authenticated
// invitation lifecycle routes.
func SetupInvitationRoutes(public, protected *echo.Group, invitationHandler *handlers.InvitationHandler) {
	public.GET("/invitations/preview/:token", invitationHandler.PreviewInvitation)

	protected.POST("/orgs/:orgId/invitations", invitationHandler.CreateInvitation)
	protected.GET("/orgs/:orgId/invitations", invitationHandler.ListInvitations)

	invitations := protected.Group("/invitations")
	invitations.POST("/accept", invitationHandler.AcceptInvitation)
	invitations.GET("/token/:token", invitationHandler.GetInvitation)
	invitations.POST("/:id/cancel", invitationHandler.CancelInvitation)
	invitations.POST("/:id/resend", invitationHandler.ResendInvitation)
	invitations.POST("/:id/decline", invitationHandler.DeclineInvitation)
}

// SetupScanRoutes registers the anonymous QR code redirect.
func SetupScanRoutes(e *echo.Echo, qrHandler *handlers.QRCodeHandler) {
	e.GET("/q/:codeId", qrHandler.ResolveQRCode)
}
