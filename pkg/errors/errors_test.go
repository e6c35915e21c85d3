package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NotFound("follow-up", nil), http.StatusNotFound},
		{Validation("phone", "phone number must contain digits"), http.StatusBadRequest},
		{Unauthorized(nil), http.StatusUnauthorized},
		{Forbidden("cross-tenant access"), http.StatusForbidden},
		{NoClinic(), http.StatusForbidden},
		{Conflict("already a member", nil), http.StatusConflict},
		{IntegrityExhausted("public_token", 5, nil), http.StatusInternalServerError},
		{Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("edit follow-up: %w", Forbidden("cross-tenant access"))

	assert.True(t, Is(err, ErrForbidden))
	assert.False(t, Is(err, ErrNotFound))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "cross-tenant access", appErr.Message)
}
