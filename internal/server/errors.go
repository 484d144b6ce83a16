package server

import (
	"errors"

	"workshop-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type errorResponse struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message"`
	Code      string             `json:"code"`
	Shortages []ledger.Violation `json:"shortages,omitempty"`
}

// statusOf maps a ledger error kind to an HTTP status.
func statusOf(err error) int {
	switch ledger.Code(err) {
	case "validation", "insufficient_stock":
		return fiber.StatusBadRequest
	case "not_found":
		return fiber.StatusNotFound
	case "conflict":
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "validation"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	}
	if status >= 500 {
		return "internal"
	}
	return "error"
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorResponse{
				Message: fe.Message,
				Code:    fiberCode(fe.Code),
			})
		}

		status := statusOf(err)
		resp := errorResponse{Code: ledger.Code(err)}

		var le *ledger.Error
		switch {
		case status < 500 && errors.As(err, &le):
			resp.Message = le.Message
			resp.Shortages = le.Violations
		case ledger.Code(err) == "transient":
			resp.Message = "Database temporarily unavailable, please retry"
		default:
			resp.Message = "Unexpected server error"
		}

		if status >= 500 {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("request_id", requestIDFrom(c)),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(resp)
	}
}
