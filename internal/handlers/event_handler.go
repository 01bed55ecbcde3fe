package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"brandhub/internal/api/validator"
	"brandhub/internal/services"
)

type EventHandler struct {
	events *services.EventService
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

func eventInput(req validator.EventRequest) services.EventInput {
	return services.EventInput{
		BrandID:  req.BrandID,
		Name:     req.Name,
		Venue:    req.Venue,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}
}

// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param request body validator.EventRequest true "Event"
// @Success 201 {object} models.Event
// @Router /orgs/{orgId}/events [post]
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req validator.EventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	event, err := h.events.Create(c.Request().Context(), caller(c), c.Param("orgId"), eventInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

// @Summary List events
// @Tags events
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param brandId query string false "Only events of this brand"
// @Success 200 {array} models.Event
// @Router /orgs/{orgId}/events [get]
func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.events.List(c.Request().Context(), caller(c), c.Param("orgId"), c.QueryParam("brandId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// @Summary Get an event
// @Tags events
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param eventId path string true "Event ID"
// @Success 200 {object} models.Event
// @Router /orgs/{orgId}/events/{eventId} [get]
func (h *EventHandler) GetEvent(c echo.Context) error {
	event, err := h.events.Get(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("eventId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, event)
}

// @Summary Update an event
// @Tags events
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param eventId path string true "Event ID"
// @Param request body validator.EventRequest true "Event"
// @Success 200 {object} models.Event
// @Router /orgs/{orgId}/events/{eventId} [put]
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	var req validator.EventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	event, err := h.events.Update(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("eventId"), eventInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, event)
}

// @Summary Delete an event
// @Tags events
// @Param orgId path string true "Organization ID"
// @Param eventId path string true "Event ID"
// @Success 204
// @Router /orgs/{orgId}/events/{eventId} [delete]
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	if err := h.events.Delete(c.Request().Context(), caller(c), c.Param("orgId"), c.Param("eventId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
