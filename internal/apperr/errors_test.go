package apperr

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found wrapped", errors.Wrap(ErrNotFound, "course"), fiber.StatusNotFound},
		{"conflict", ErrConflict, fiber.StatusConflict},
		{"unauthorized", errors.Wrap(ErrUnauthorized, "session expired"), fiber.StatusUnauthorized},
		{"forbidden", ErrForbidden, fiber.StatusForbidden},
		{"invalid", ErrInvalidInput, fiber.StatusBadRequest},
		{"validation", NewValidationError("email", "email is required"), fiber.StatusBadRequest},
		{"rate limited", ErrRateLimited, fiber.StatusTooManyRequests},
		{"unavailable", ErrUnavailable, fiber.StatusServiceUnavailable},
		{"payment", errors.Wrap(ErrPaymentFailed, "declined"), fiber.StatusPaymentRequired},
		{"fiber error", fiber.NewError(fiber.StatusMethodNotAllowed, "nope"), fiber.StatusMethodNotAllowed},
		{"other", errors.New("disk on fire"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal server error", Message(errors.New("mongo: connection refused")))
	assert.Equal(t, "course: not found", Message(errors.Wrap(ErrNotFound, "course")))
}

func TestValidationErrorIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "title is required", "price": "price must be 0 or greater"}}
	assert.Equal(t, "price must be 0 or greater; title is required", err.Error())
}
