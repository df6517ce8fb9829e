package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "mcacrm/internal/log"
	"mcacrm/internal/services"
	"mcacrm/internal/validate"
)

// APIPrefix marks routes that answer in JSON.
const APIPrefix = "/api/"

// ErrorHandler maps domain errors onto status codes. API paths get a JSON
// body with a detail key; pages get the not-found template.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, body := classify(err)
	if status >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	} else if status != fiber.StatusNotFound {
		applog.Warn(c, "request.rejected", map[string]any{"status": status, "detail": body["detail"]})
	}
	if !strings.HasPrefix(c.Path(), APIPrefix) && c.Path() != "/healthz" {
		msg := "Page not found"
		if status != fiber.StatusNotFound {
			msg = "Something went wrong. Please try again."
		}
		if rerr := c.Status(status).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
			return c.Status(status).SendString(msg)
		}
		return nil
	}
	return c.Status(status).JSON(body)
}

func classify(err error) (int, fiber.Map) {
	var (
		verrs    validate.Errors
		notFound *services.NotFoundError
		conflict *services.ConflictError
		rule     *services.RuleError
		fe       *fiber.Error
	)
	switch {
	case errors.As(err, &verrs):
		return fiber.StatusUnprocessableEntity, fiber.Map{"detail": "Validation error", "errors": verrs}
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, fiber.Map{"detail": notFound.Msg}
	case errors.As(err, &conflict):
		return fiber.StatusConflict, fiber.Map{"detail": conflict.Msg}
	case errors.As(err, &rule):
		return fiber.StatusBadRequest, fiber.Map{"detail": rule.Msg}
	case errors.As(err, &fe):
		if fe.Code >= fiber.StatusInternalServerError {
			return fe.Code, fiber.Map{"detail": "An unexpected error occurred"}
		}
		return fe.Code, fiber.Map{"detail": fe.Message}
	default:
		return fiber.StatusInternalServerError, fiber.Map{"detail": "An unexpected error occurred"}
	}
}

// NotFound is the catch-all route.
func NotFound(c *fiber.Ctx) error {
	return services.NotFound("Resource")
}
