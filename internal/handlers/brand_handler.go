package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"brandhub/internal/api/validator"
	"brandhub/internal/services"
	"brandhub/internal/utils/logger"
)

type BrandHandler struct {
	brands *services.BrandService
	log    *logger.Logger
}

func NewBrandHandler(brands *services.BrandService) *BrandHandler {
	return &BrandHandler{brands: brands, log: logger.New("BrandHandler")}
}

func brandInput(req validator.BrandRequest) services.BrandInput {
	return services.BrandInput{Name: req.Name, Description: req.Description}
}

// @Summary Create a brand
// @Tags brands
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param request body validator.BrandRequest true "Brand"
// @Success 201 {object} models.Brand
// @Router /orgs/{orgId}/brands [post]
func (h *BrandHandler) CreateBrand(c echo.Context) error {
	var req validator.BrandRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	brand, err := h.brands.Create(c.Request().Context(), caller(c), c.Param("orgId"), brandInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, brand)
}

// ListBrands returns only the brands inside the caller's brand scope
// @Summary List brands
// @Tags brands
// @Produce json
// @Param orgId path string true "Organization ID"
// @Success 200 {array} models.Brand
// @Router /orgs/{orgId}/brands [get]
func (h *BrandHandler) ListBrands(c echo.Context) error {
	brands, err := h.brands.List(c.Request().Context(), caller(c), c.Param("orgId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, brands)
}

// @Summary Get a brand
// @Tags brands
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param brandId path string true "Brand ID"
// @Success 200 {object} models.Brand
// @Router /orgs/{orgId}/brands/{brandId} [get]
func (h *BrandHandler) GetBrand(c echo.Context) error {
	brand, err := h.brands.Get(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("brandId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, brand)
}

// @Summary Update a brand
// @Tags brands
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param brandId path string true "Brand ID"
// @Param request body validator.BrandRequest true "Brand"
// @Success 200 {object} models.Brand
// @Router /orgs/{orgId}/brands/{brandId} [put]
func (h *BrandHandler) UpdateBrand(c echo.Context) error {
	var req validator.BrandRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	brand, err := h.brands.Update(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("brandId"), brandInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, brand)
}

// DeleteBrand removes the brand with its events and QR codes
// @Summary Delete a brand
// @Tags brands
// @Param orgId path string true "Organization ID"
// @Param brandId path string true "Brand ID"
// @Success 204
// @Router /orgs/{orgId}/brands/{brandId} [delete]
func (h *BrandHandler) DeleteBrand(c echo.Context) error {
	if err := h.brands.Delete(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("brandId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
