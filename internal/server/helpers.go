package server

import (
	"log/slog"

	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// parsePagination reads skip and limit. Services apply the per-route defaults
// and bounds, so absent or invalid values are passed on as zero.
func parsePagination(c *fiber.Ctx) service.Page {
	return service.Page{
		Skip:  c.QueryInt("skip", 0),
		Limit: c.QueryInt("limit", 0),
	}
}

// respondError writes the failure envelope for err, logging server-side failures.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
		return models.CodeValidation
	case fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case fiber.StatusForbidden:
		return models.CodeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return models.CodeNotFound
	case fiber.StatusTooManyRequests:
		return models.CodeRateLimited
	default:
		return models.CodeInternal
	}
}
