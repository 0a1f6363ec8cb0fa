package middlewares

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler shapes errors escaping a handler into OAuth2-style JSON
// bodies so no backend detail leaks to the caller.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	slog.Error("unhandled error", "code", code, "error", err)
	switch code {
	case fiber.StatusBadRequest:
		return ctx.Status(code).JSON(fiber.Map{"error": "invalid_request"})
	case fiber.StatusUnauthorized:
		return ctx.Status(code).JSON(fiber.Map{"error": "invalid_grant"})
	case fiber.StatusNotFound:
		return ctx.Status(code).JSON(fiber.Map{"error": "not_found"})
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error"})
	}
}
