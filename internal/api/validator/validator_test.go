package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(t *testing.T, err error) []string {
	t.Helper()
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve), "expected validation errors, got %v", err)
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fe.Field())
	}
	return out
}

func TestInvitationRequest(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&InvitationRequest{Email: "a@example.com", Role: "admin"}))
	assert.NoError(t, v.Validate(&InvitationRequest{Email: "a@example.com", Role: "owner", BrandAccess: []string{"b1"}}))

	err := v.Validate(&InvitationRequest{Email: "nope", Role: "superuser", BrandAccess: []string{""}})
	assert.ElementsMatch(t, []string{"email", "role", "brandAccess[0]"}, fields(t, err))
}

func TestMemberUpdateRequest(t *testing.T) {
	v := NewValidator()
	role := "member"
	perms := []string{"events:read", "*"}

	assert.NoError(t, v.Validate(&MemberUpdateRequest{}))
	assert.NoError(t, v.Validate(&MemberUpdateRequest{Role: &role, Permissions: &perms}))

	bad := "god"
	badPerms := []string{"events:fly"}
	err := v.Validate(&MemberUpdateRequest{Role: &bad, Permissions: &badPerms})
	assert.ElementsMatch(t, []string{"role", "permissions[0]"}, fields(t, err))
}

func TestEventRequest(t *testing.T) {
	v := NewValidator()
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	assert.NoError(t, v.Validate(&EventRequest{Name: "Gig", StartsAt: start}))

	err := v.Validate(&EventRequest{Name: "Gig", StartsAt: start, EndsAt: &end})
	assert.Equal(t, []string{"endsAt"}, fields(t, err))
}

func TestQRCodeRequest(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&QRCodeRequest{Label: "Door", TargetURL: "https://acme.test/door"}))

	err := v.Validate(&QRCodeRequest{TargetURL: "not a url"})
	assert.ElementsMatch(t, []string{"label", "targetUrl"}, fields(t, err))
}

func TestValidationErrorsMessage(t *testing.T) {
	err := NewValidator().Validate(&OrganizationRequest{})
	assert.Equal(t, "validation failed on fields: name", err.Error())
}
