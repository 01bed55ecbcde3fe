package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"brandhub/internal/apperr"
	"brandhub/internal/services"
	"brandhub/internal/utils/logger"
)

type UploadHandler struct {
	brands *services.BrandService
	log    *logger.Logger
}

func NewUploadHandler(brands *services.BrandService) *UploadHandler {
	return &UploadHandler{
		brands: brands,
		log:    logger.New("upload_handler"),
	}
}

// UploadBrandLogo handles brand logo uploads to object storage
// @Summary Upload a brand logo
// @Description Replaces the brand logo. The previous file is removed in the background.
// @Tags brands
// @Accept multipart/form-data
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param brandId path string true "Brand ID"
// @Param file formData file true "Image to upload"
// @Success 200 {object} models.Brand
// @Failure 400 {object} map[string]interface{} "Not an image or too large"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /orgs/{orgId}/brands/{brandId}/logo [post]
func (h *UploadHandler) UploadBrandLogo(c echo.Context) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return apperr.Invalid("Content-Type must be multipart/form-data")
	}

	// Get file from request
	file, err := c.FormFile("file")
	if err != nil {
		h.log.Warn("No file in logo upload: %v", err)
		return apperr.Invalid("no file provided")
	}
	if file.Size > services.MaxLogoBytes {
		return apperr.Invalid("logo must be at most %d bytes", services.MaxLogoBytes)
	}

	src, err := file.Open()
	if err != nil {
		return h.log.Error("Failed to open uploaded file", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			_ = h.log.Error("Failed to close uploaded file", err)
		}
	}()

	brand, err := h.brands.UploadLogo(
		c.Request().Context(),
		caller(c),
		c.Param("orgId"),
		c.Param("brandId"),
		file.Filename,
		file.Header.Get(echo.HeaderContentType),
		file.Size,
		src,
	)
	if err != nil {
		return err
	}

	h.log.Success("Logo uploaded for brand %s", brand.ID)
	return c.JSON(http.StatusOK, brand)
}
