package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-advanced-admin/admin"
	admingorm "github.com/go-advanced-admin/orm-gorm"
	adminecho "github.com/go-advanced-admin/web-echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	authmiddleware "brandhub/internal/api/middleware"
	"brandhub/internal/api/validator"
	"brandhub/internal/apperr"
	"brandhub/internal/config"
	"brandhub/internal/models"
	"brandhub/internal/services"
	"brandhub/internal/utils"
	console "brandhub/internal/utils/logger"
)

// Dependencies are the services the HTTP layer delegates to. DB is optional
// and only backs the admin panel.
type Dependencies struct {
	DB            *gorm.DB
	Issuer        *utils.TokenIssuer
	Organizations *services.OrganizationService
	Members       *services.MemberService
	Invitations   *services.InvitationService
	Brands        *services.BrandService
	Events        *services.EventService
	QRCodes       *services.QRCodeService
	Claims        *services.ClaimsService
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   Dependencies
	auth   *authmiddleware.AuthMiddleware
	admins *authmiddleware.AdminAllowlist
}

var log = console.New("API-Server")

// NewServer @title Brandhub API
// @version 1.0
// @description Organizations, brands, events and invitations for brand teams.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true

	// Create custom validator
	e.Validator = validator.NewValidator()

	// Configure middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	e.Use(middleware.BodyLimit("10M"))
	e.Use(rateLimiter(cfg.RateLimit))

	// Custom error handler
	e.HTTPErrorHandler = customHTTPErrorHandler

	s := &Server{
		echo:   e,
		config: cfg,
		deps:   deps,
		auth:   authmiddleware.NewAuthMiddleware(deps.Issuer),
		admins: authmiddleware.NewAdminAllowlist(cfg.Admin.UserIDs),
	}

	if cfg.Admin.Enabled {
		if err := s.setupAdminPanel(); err != nil {
			_ = log.Error("Admin panel disabled", err)
		}
	}

	// Register routes
	s.registerRoutes()
	return s
}

// rateLimiter limits requests per client IP.
func rateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return utils.GetIPAddress(c.Request()), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// setupAdminPanel mounts the data browser for platform operators. It needs
// the gorm store.
func (s *Server) setupAdminPanel() error {
	if s.deps.DB == nil {
		return errors.New("admin panel requires the postgres store")
	}

	group := s.echo.Group("/admin", s.auth.Middleware(), s.admins.RequireAdmin())
	panel, err := admin.NewPanel(
		admingorm.NewIntegrator(s.deps.DB),
		adminecho.NewIntegrator(group),
		s.admins.PermissionChecker(),
		nil,
	)
	if err != nil {
		return err
	}

	app, err := panel.RegisterApp("Brandhub", "Brandhub Admin Panel", nil)
	if err != nil {
		return err
	}
	for _, model := range models.AllModels() {
		if _, err := app.RegisterModel(model, nil); err != nil {
			log.Warn("Skipping %T in admin panel: %v", model, err)
		}
	}
	log.Success("Admin panel mounted at /admin")
	return nil
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

type errorBody struct {
	Kind       apperr.Kind       `json:"kind"`
	Message    string            `json:"message"`
	ResourceID string            `json:"resourceId,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Custom HTTP error handler
func customHTTPErrorHandler(err error, c echo.Context) {
	var (
		code = http.StatusInternalServerError
		body = errorBody{Kind: apperr.KindInternal, Message: http.StatusText(http.StatusInternalServerError)}
	)

	var (
		appErr     *apperr.Error
		httpErr    *echo.HTTPError
		validation validator.ValidationErrors
	)
	switch {
	case errors.As(err, &validation):
		code = http.StatusBadRequest
		body = errorBody{Kind: apperr.KindValidation, Message: validation.Error(), Fields: formatValidationErrors(validation)}
	case errors.As(err, &appErr):
		code = apperr.HTTPStatus(appErr.Kind)
		body = errorBody{Kind: appErr.Kind, Message: appErr.Message, ResourceID: appErr.ResourceID}
		if code == http.StatusInternalServerError {
			_ = log.Error("Request %s %s failed", err, c.Request().Method, c.Path())
			body.Message = http.StatusText(code)
		}
	case errors.As(err, &httpErr):
		code = httpErr.Code
		body = errorBody{Kind: kindForStatus(code), Message: fmt.Sprint(httpErr.Message)}
	default:
		_ = log.Error("Request %s %s failed", err, c.Request().Method, c.Path())
	}

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{
				"error": body,
				"code":  code,
				"time":  time.Now().Format(time.RFC3339),
			})
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

func kindForStatus(code int) apperr.Kind {
	switch code {
	case http.StatusUnauthorized:
		return apperr.KindAuthentication
	case http.StatusForbidden:
		return apperr.KindAuthorization
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindConflict
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperr.KindValidation
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return apperr.KindInternal
	}
}

// formatValidationErrors formats validation errors into a map
func formatValidationErrors(errors validator.ValidationErrors) map[string]string {
	errMap := make(map[string]string)
	for _, err := range errors {
		field := err.Field()
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			errMap[field] = fmt.Sprintf("%s is required", field)
		case "email":
			errMap[field] = fmt.Sprintf("%s must be a valid email", field)
		case "min":
			errMap[field] = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			errMap[field] = fmt.Sprintf("%s must be at most %s", field, param)
		case "url":
			errMap[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "gtfield":
			errMap[field] = fmt.Sprintf("%s must be after %s", field, param)
		case "org_role", "invite_role":
			errMap[field] = fmt.Sprintf("%s must be one of: owner, admin, member", field)
		case "invite_status":
			errMap[field] = fmt.Sprintf("%s must be one of: pending, accepted, declined, cancelled, expired", field)
		case "permission":
			errMap[field] = fmt.Sprintf("%s is not a known permission", field)
		default:
			errMap[field] = fmt.Sprintf("%s failed validation: %s", field, tag)
		}
	}
	return errMap
}
