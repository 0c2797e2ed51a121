package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/logger"
)

func errorBody(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Nop())})
	app.Get("/", func(c *fiber.Ctx) error { return err })

	resp, e := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, e)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestErrorHandler(t *testing.T) {
	status, body := errorBody(t, apperr.NewValidationError("email", "email is required"))
	assert.Equal(t, 400, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, map[string]interface{}{"email": "email is required"}, body["fields"])

	status, body = errorBody(t, errors.Wrap(apperr.ErrConflict, "email already registered"))
	assert.Equal(t, 409, status)
	assert.Equal(t, "email already registered: already exists", body["error"])

	status, body = errorBody(t, errors.New("mongo: connection refused"))
	assert.Equal(t, 500, status)
	assert.Equal(t, "internal server error", body["error"])

	status, _ = errorBody(t, fiber.ErrMethodNotAllowed)
	assert.Equal(t, 405, status)
}

func TestPagedEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return paged(c, []string{"a"}, 7, pageOf(c))
	})
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/?page=2&limit=500", nil))
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(100), body["limit"], "limit is capped")
	assert.Equal(t, float64(7), body["total"])
}
