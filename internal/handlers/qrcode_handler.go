package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"brandhub/internal/api/validator"
	"brandhub/internal/services"
	"brandhub/internal/utils/logger"
)

type QRCodeHandler struct {
	codes *services.QRCodeService
	log   *logger.Logger
}

func NewQRCodeHandler(codes *services.QRCodeService) *QRCodeHandler {
	return &QRCodeHandler{codes: codes, log: logger.New("QRCodeHandler")}
}

func qrCodeInput(req validator.QRCodeRequest) services.QRCodeInput {
	return services.QRCodeInput{
		BrandID:   req.BrandID,
		EventID:   req.EventID,
		Label:     req.Label,
		TargetURL: req.TargetURL,
	}
}

// @Summary Create a QR code
// @Tags qrcodes
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param request body validator.QRCodeRequest true "QR code"
// @Success 201 {object} models.QRCode
// @Router /orgs/{orgId}/qrcodes [post]
func (h *QRCodeHandler) CreateQRCode(c echo.Context) error {
	var req validator.QRCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	code, err := h.codes.Create(c.Request().Context(), caller(c), c.Param("orgId"), qrCodeInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, code)
}

// @Summary List QR codes
// @Tags qrcodes
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param brandId query string false "Only codes of this brand"
// @Param eventId query string false "Only codes of this event"
// @Success 200 {array} models.QRCode
// @Router /orgs/{orgId}/qrcodes [get]
func (h *QRCodeHandler) ListQRCodes(c echo.Context) error {
	codes, err := h.codes.List(c.Request().Context(), caller(c), c.Param("orgId"), c.QueryParam("brandId"), c.QueryParam("eventId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, codes)
}

// @Summary Get a QR code
// @Tags qrcodes
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param codeId path string true "QR code ID"
// @Success 200 {object} models.QRCode
// @Router /orgs/{orgId}/qrcodes/{codeId} [get]
func (h *QRCodeHandler) GetQRCode(c echo.Context) error {
	code, err := h.codes.Get(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("codeId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, code)
}

// @Summary Update a QR code
// @Tags qrcodes
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param codeId path string true "QR code ID"
// @Param request body validator.QRCodeRequest true "QR code"
// @Success 200 {object} models.QRCode
// @Router /orgs/{orgId}/qrcodes/{codeId} [put]
func (h *QRCodeHandler) UpdateQRCode(c echo.Context) error {
	var req validator.QRCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	code, err := h.codes.Update(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("codeId"), qrCodeInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, code)
}

// @Summary Delete a QR code
// @Tags qrcodes
// @Param orgId path string true "Organization ID"
// @Param codeId path string true "QR code ID"
// @Success 204
// @Router /orgs/{orgId}/qrcodes/{codeId} [delete]
func (h *QRCodeHandler) DeleteQRCode(c echo.Context) error {
	if err := h.codes.Delete(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("codeId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ResolveQRCode is the public scan endpoint
// @Summary Follow a QR code
// @Tags qrcodes
// @Param codeId path string true "QR code ID"
// @Success 302
// @Failure 404 {object} map[string]interface{} "Unknown code"
// @Router /q/{codeId} [get]
func (h *QRCodeHandler) ResolveQRCode(c echo.Context) error {
	target, err := h.codes.Resolve(c.Request().Context(), c.Param("codeId"))
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, target)
}
