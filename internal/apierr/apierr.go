package apierr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/ledger"
)

// Error is an API error that may be retried by the client.
type Error struct {
	Status    int
	Message   string
	Retryable bool
}

func (e *Error) Error() string { return e.Message }

// From maps ledger errors to HTTP errors. Business-rule rejections keep their
// message; infrastructure failures get a generic one.
func From(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrTargetAccountNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrAccountFrozen),
		errors.Is(err, ledger.ErrTargetAccountFrozen),
		errors.Is(err, ledger.ErrDailyLimitExceeded),
		errors.Is(err, ledger.ErrMinimumBalance),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidKind),
		errors.Is(err, ledger.ErrSameAccount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case ledger.IsRetryable(err):
		return &Error{Status: http.StatusConflict, Message: "account busy, please retry", Retryable: true}
	case errors.Is(err, ledger.ErrStorageUnavailable):
		return &Error{Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"}
	default:
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe
		}
		return &Error{Status: http.StatusInternalServerError, Message: "internal server error"}
	}
}

// Handler renders errors as JSON. Unexpected errors are logged with the
// request id and never echoed to the client.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		message := "internal server error"
		retryable := false

		var apiErr *Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &apiErr):
			status, message, retryable = apiErr.Status, apiErr.Message, apiErr.Retryable
		case errors.As(err, &fe):
			status, message = fe.Code, fe.Message
		}
		if status >= http.StatusInternalServerError {
			reqID, _ := c.Locals("request_id").(string)
			logger.Error("request failed", slog.String("request_id", reqID), slog.String("path", c.Path()), slog.Any("error", err))
		}

		body := fiber.Map{"error": message}
		if retryable {
			body["retryable"] = true
		}
		return c.Status(status).JSON(body)
	}
}
