package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, StatusFor(NewValidationError("bad")))
	assert.Equal(t, fiber.StatusUnauthorized, StatusFor(NewUnauthorizedError("who")))
	assert.Equal(t, fiber.StatusForbidden, StatusFor(NewForbiddenError("no")))
	assert.Equal(t, fiber.StatusNotFound, StatusFor(NewNotFoundError("Post", "p1")))
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor(NewInternalError(errors.New("boom"))))
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor(errors.New("plain")))
	assert.Equal(t, fiber.StatusForbidden, StatusFor(fmt.Errorf("wrapped: %w", NewForbiddenError("no"))))
}

func TestNewNotFoundError_Message(t *testing.T) {
	assert.Equal(t, "Post with ID p1 not found", NewNotFoundError("Post", "p1").Message)
	assert.Equal(t, "User not found.", NewNotFoundError("User", nil).Message)
}

func TestRespondWithError_HidesInternalCause(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		err := NewInternalError(errors.New("dsn password leaked"))
		return RespondWithError(c, StatusFor(err), err)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.False(t, out.Success)
	assert.Equal(t, CodeInternal, out.Code)
	assert.NotContains(t, string(body), "password")
}
