package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"acceptapi/internal/http/middleware"
	"acceptapi/internal/service"
)

// invalidLinkMessage is the only thing a caller learns about a rejected credential.
const invalidLinkMessage = "Invalid or expired link"

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_TOKEN", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// serviceError maps an acceptance service error to status, code and message.
// Invalid, expired and revoked credentials are deliberately indistinguishable.
func serviceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrExpired),
		errors.Is(err, service.ErrRevoked):
		return fiber.StatusForbidden, "INVALID_TOKEN", invalidLinkMessage
	case errors.Is(err, service.ErrAlreadyAccepted):
		return fiber.StatusConflict, "ALREADY_ACCEPTED", "document already accepted"
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND", "document not found"
	case errors.Is(err, service.ErrIDRequired):
		return fiber.StatusBadRequest, "INVALID_ID", "id is required"
	case errors.Is(err, service.ErrContentRequired):
		return fiber.StatusBadRequest, "CONTENT_REQUIRED", "content is required"
	case errors.Is(err, service.ErrRecipientMissing):
		return fiber.StatusBadRequest, "RECIPIENT_REQUIRED", "recipient email is required"
	case errors.Is(err, service.ErrUnknownProvider):
		return fiber.StatusBadRequest, "UNKNOWN_PROVIDER", "unknown provider"
	case errors.Is(err, service.ErrProviderDisabled), errors.Is(err, service.ErrMailDisabled):
		return fiber.StatusUnprocessableEntity, "NOT_CONFIGURED", err.Error()
	}
	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
}

func writeServiceError(c *fiber.Ctx, err error) error {
	status, code, msg := serviceError(err)
	return writeError(c, status, code, msg)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "operator token required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "BODY_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
