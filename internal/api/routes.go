package api

import (
	"net/http"

	_ "brandhub/docs/swagger"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"brandhub/internal/handlers"
	"brandhub/internal/routes"
)

func (s *Server) registerRoutes() {
	// Health check
	// @Summary Health check
	// @Description Check if the server is running
	// @Accept json
	// @Produce json
	// @Success 200 {object} map[string]string "OK"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	orgHandler := handlers.NewOrganizationHandler(s.deps.Organizations, s.deps.Members)
	invitationHandler := handlers.NewInvitationHandler(s.deps.Invitations)
	brandHandler := handlers.NewBrandHandler(s.deps.Brands)
	qrHandler := handlers.NewQRCodeHandler(s.deps.QRCodes)

	// API v1 groups
	public := s.echo.Group("/api/v1")
	protected := s.echo.Group("/api/v1")
	protected.Use(s.auth.Middleware())

	routes.SetupScanRoutes(s.echo, qrHandler)
	routes.SetupAuthRoutes(protected, handlers.NewAuthHandler(s.deps.Issuer, s.deps.Claims, s.deps.Members, s.deps.Organizations))
	routes.SetupInvitationRoutes(public, protected, invitationHandler)
	routes.SetupOrganizationRoutes(protected, routes.OrganizationHandlers{
		Organizations: orgHandler,
		Brands:        brandHandler,
		Events:        handlers.NewEventHandler(s.deps.Events),
		QRCodes:       qrHandler,
	})
	routes.SetupUploadRoutes(protected, handlers.NewUploadHandler(s.deps.Brands))

	s.echo.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "route not found")
	})
}
