package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/example/bloomcart/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		status   int
		code     string
	}{
		{"validation", apperr.Validation("city is required"), apperr.ErrValidation, http.StatusBadRequest, "validation_error"},
		{"unauthenticated", apperr.Unauthenticated("token missing"), apperr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", apperr.Forbidden("not your order"), apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", apperr.NotFound("order", "42"), apperr.ErrNotFound, http.StatusNotFound, "not_found"},
		{"conflict", apperr.Conflict(nil, "duplicate"), apperr.ErrConflict, http.StatusInternalServerError, "conflict"},
		{"unexpected", apperr.Wrap(errors.New("boom"), "insert order"), apperr.ErrUnexpected, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, apperr.HTTPStatus(tt.err))
			assert.Equal(t, tt.code, apperr.Code(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("keeps existing kind", func(t *testing.T) {
		original := apperr.NotFound("order", "1")
		wrapped := apperr.Wrap(original, "load order")

		assert.Same(t, original, wrapped)
	})

	t.Run("keeps cause reachable", func(t *testing.T) {
		cause := errors.New("socket closed")
		err := apperr.Wrap(fmt.Errorf("dial: %w", cause), "ping store")

		require.ErrorIs(t, err, cause)
		assert.Equal(t, "ping store (cause: dial: socket closed)", err.Error())
		assert.Equal(t, "ping store", apperr.Message(err))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, apperr.Wrap(nil, "noop"))
	})
}

func TestPlainErrorsAreUnexpected(t *testing.T) {
	err := errors.New("raw")

	assert.Equal(t, apperr.KindUnexpected, apperr.KindOf(err))
	assert.Equal(t, "internal server error", apperr.Message(err))
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(err))
}

func TestMessagesAreSingleLine(t *testing.T) {
	err := apperr.Validation("bad\nvalue")

	assert.Equal(t, "bad value", err.Error())
}
