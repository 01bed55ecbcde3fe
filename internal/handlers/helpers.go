package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"brandhub/internal/api/middleware"
	"brandhub/internal/apperr"
	"brandhub/internal/authz"
)

// bindAndValidate decodes the request body into req and runs the registered
// validator. Validation failures are returned untouched so the error handler
// can report them per field.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Invalid("malformed request body")
	}
	return c.Validate(req)
}

func caller(c echo.Context) authz.Identity {
	return middleware.GetIdentity(c)
}

func toStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
