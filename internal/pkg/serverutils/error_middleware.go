package serverutils

import (
	"errors"

	"ai-lessongen-be/internal/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps service errors to HTTP statuses. Controllers
// return errors as-is; this is the single place status codes are decided.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var (
			validationErr *apperrors.ValidationError
			authErr       *apperrors.AuthError
			serviceErr    *apperrors.ServiceError
			fiberErr      *fiber.Error
		)

		switch {
		case errors.As(err, &validationErr):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(validationErr.Message))

		case errors.As(err, &authErr):
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(authErr.Message))

		case errors.Is(err, apperrors.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(err.Error()))

		case errors.Is(err, apperrors.ErrNotReady):
			// The pull endpoint stays pollable while the pipeline runs.
			return ctx.Status(fiber.StatusAccepted).JSON(ErrorResponse(err.Error()))

		case errors.Is(err, apperrors.ErrCancelled):
			return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse(err.Error()))

		case errors.As(err, &serviceErr):
			return ctx.Status(fiber.StatusBadGateway).JSON(ErrorResponse(serviceErr.Error()))

		case errors.As(err, &fiberErr):
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))

		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("internal server error"))
		}
	}
}
