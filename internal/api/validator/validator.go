package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"brandhub/internal/authz"
	"brandhub/internal/models"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	// Report json names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string]playgroundvalidator.Func{
		"org_role":      validateOrgRole,
		"invite_role":   validateOrgRole,
		"invite_status": validateInviteStatus,
		"permission":    validatePermission,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}

	return &CustomValidator{validator: v}
}

func validateOrgRole(fl playgroundvalidator.FieldLevel) bool {
	_, ok := authz.ParseRole(fl.Field().String())
	return ok
}

func validateInviteStatus(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidInvitationStatus(models.InvitationStatus(fl.Field().String()))
}

func validatePermission(fl playgroundvalidator.FieldLevel) bool {
	return authz.IsKnown(authz.Permission(fl.Field().String()))
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

type OrganizationRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type DeletionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type InvitationRequest struct {
	Email              string   `json:"email" validate:"required,email"`
	Role               string   `json:"role" validate:"required,invite_role"`
	BrandAccess        []string `json:"brandAccess" validate:"dive,required"`
	AutoGrantNewBrands bool     `json:"autoGrantNewBrands"`
}

// MemberUpdateRequest uses pointers so omitted fields stay unchanged.
type MemberUpdateRequest struct {
	Role               *string   `json:"role" validate:"omitempty,org_role"`
	Permissions        *[]string `json:"permissions" validate:"omitempty,dive,permission"`
	BrandAccess        *[]string `json:"brandAccess" validate:"omitempty,dive,required"`
	AutoGrantNewBrands *bool     `json:"autoGrantNewBrands"`
}

type BrandRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type EventRequest struct {
	BrandID  string     `json:"brandId"`
	Name     string     `json:"name" validate:"required,max=150"`
	Venue    string     `json:"venue" validate:"max=200"`
	StartsAt time.Time  `json:"startsAt" validate:"required"`
	EndsAt   *time.Time `json:"endsAt" validate:"omitempty,gtfield=StartsAt"`
}

type QRCodeRequest struct {
	BrandID   string `json:"brandId"`
	EventID   string `json:"eventId"`
	Label     string `json:"label" validate:"required,max=100"`
	TargetURL string `json:"targetUrl" validate:"required,url"`
}
