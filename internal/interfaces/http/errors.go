package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
)

var kindStatus = map[string]int{
	domain.KindValidation:        fiber.StatusBadRequest,
	domain.KindNotFound:          fiber.StatusNotFound,
	domain.KindInsufficientStock: fiber.StatusConflict,
	domain.KindInvalidState:      fiber.StatusConflict,
	domain.KindConcurrency:       fiber.StatusConflict,
	domain.KindDuplicate:         fiber.StatusConflict,
	domain.KindForbidden:         fiber.StatusForbidden,
	domain.KindUnauthorized:      fiber.StatusUnauthorized,
	domain.KindReconciliation:    fiber.StatusInternalServerError,
	domain.KindInternal:          fiber.StatusInternalServerError,
}

// StatusFor traduce la categoría del error de dominio a código HTTP.
func StatusFor(err error) int {
	if st, ok := kindStatus[domain.KindOf(err)]; ok {
		return st
	}
	return fiber.StatusInternalServerError
}

// writeError responde con dto.ErrorResponse. Los errores internos no exponen detalle.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	kind := domain.KindOf(err)
	status := StatusFor(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "error interno"
	}
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("kind", kind).Str("path", c.Path()).Msg("error en petición")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: kind, Message: msg})
}

// ErrorHandler de Fiber para errores no manejados (404 de ruta, panics recuperados).
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: "HTTP_" + httpCodeName(fe.Code), Message: fe.Message})
		}
		return writeError(c, log, err)
	}
}

func httpCodeName(code int) string {
	switch code {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	default:
		return "ERROR"
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
