package routes

import (
	"github.com/labstack/echo/v4"

	"brandhub/internal/handlers"
)

// SetupAuthRoutes registers the token routes on the authenticated group.
func SetupAuthRoutes(protected *echo.Group, authHandler *handlers.AuthHandler) {
	auth := protected.Group("/auth")

	auth.POST("/refresh", authHandler.RefreshToken)
	auth.GET("/me", authHandler.GetMe)
}
