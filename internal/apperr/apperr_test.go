package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := Conflict("inv-1", "invitation already pending for %s", "a@b.co")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "inv-1", ResourceIDOf(err))

	wrapped := fmt.Errorf("create invitation: %w", err)
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "inv-1", ResourceIDOf(wrapped))
}

func TestKindOfUnstructured(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "", ResourceIDOf(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("redis down")
	err := Wrap(KindInternal, cause, "publish claims")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "redis down")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindAuthentication: http.StatusUnauthorized,
		KindAuthorization:  http.StatusForbidden,
		KindNotFound:       http.StatusNotFound,
		KindConflict:       http.StatusConflict,
		KindState:          http.StatusConflict,
		KindValidation:     http.StatusBadRequest,
		KindSizeLimit:      http.StatusInternalServerError,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}
