package apperr

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("already exists")
	ErrUnauthorized  = errors.New("authentication required")
	ErrForbidden     = errors.New("permission denied")
	ErrInvalidInput  = errors.New("invalid input")
	ErrRateLimited   = errors.New("too many requests")
	ErrUnavailable   = errors.New("service unavailable")
	ErrPaymentFailed = errors.New("payment failed")
)

// ValidationError is returned when a request fails field validation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError reports a single invalid field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Status maps an error chain to the HTTP status it should produce.
func Status(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, ErrPaymentFailed):
		return fiber.StatusPaymentRequired
	}
	return fiber.StatusInternalServerError
}

// Message returns the client-facing text for err. Internal errors are not leaked.
func Message(err error) string {
	if Status(err) == fiber.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
