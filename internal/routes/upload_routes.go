package routes

import (
	"github.com/labstack/echo/v4"

	"brandhub/internal/handlers"
	"brandhub/internal/utils/logger"
)

func SetupUploadRoutes(protected *echo.Group, uploadHandler *handlers.UploadHandler) {
	log := logger.New("upload_routes")

	protected.POST("/orgs/:orgId/brands/:brandId/logo", uploadHandler.UploadBrandLogo)

	log.Success("Upload routes initialized successfully")
}
