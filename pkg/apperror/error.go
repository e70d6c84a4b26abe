package apperror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/pkg/response"
)

// ErrNotFound is returned by repositories when a record is not found.
// Services check errors.Is(err, ErrNotFound) instead of importing database drivers.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned by repositories when a unique key already exists.
var ErrDuplicate = errors.New("record already exists")

const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeValidation      = "VALIDATION_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeFiber           = "FIBER_ERROR"
)

type AppError struct {
	Code      int    `json:"-"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

func newError(status int, code, msg string) *AppError {
	return &AppError{Code: status, ErrorCode: code, Message: msg}
}

func NewBadRequest(msg string) *AppError {
	return newError(fiber.StatusBadRequest, CodeBadRequest, msg)
}

func NewNotFound(msg string) *AppError {
	return newError(fiber.StatusNotFound, CodeNotFound, msg)
}

// NewNotFoundWithDetails is used when a batch names records that do not
// exist; details lists them.
func NewNotFoundWithDetails(msg string, details any) *AppError {
	e := NewNotFound(msg)
	e.Details = details
	return e
}

func NewConflict(msg string) *AppError {
	return newError(fiber.StatusConflict, CodeConflict, msg)
}

func NewTooManyRequests(msg string) *AppError {
	return newError(fiber.StatusTooManyRequests, CodeTooManyRequests, msg)
}

func NewInternal(msg string) *AppError {
	return newError(fiber.StatusInternalServerError, CodeInternal, msg)
}

func NewValidation(msg string, details any) *AppError {
	e := newError(fiber.StatusUnprocessableEntity, CodeValidation, msg)
	e.Details = details
	return e
}

// Classify returns the AppError a handler error is reported as. The second
// result is false for errors nothing recognised, which surface as 500.
func Classify(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return newError(fiberErr.Code, CodeFiber, fiberErr.Message), true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newError(fiber.StatusGatewayTimeout, CodeTimeout, "request timed out"), true
	}

	return NewInternal("Internal Server Error"), false
}

// StatusOf is the HTTP status FiberErrorHandler will send for err.
func StatusOf(err error) int {
	appErr, _ := Classify(err)
	return appErr.Code
}

func FiberErrorHandler(c fiber.Ctx, err error) error {
	appErr, known := Classify(err)
	if !known {
		slog.ErrorContext(c.Context(), "unhandled error in error handler",
			slog.String("error", err.Error()),
			slog.String("type", fmt.Sprintf("%T", err)),
			slog.String("path", c.Path()),
		)
	}
	return response.Fail(c, appErr.Code, appErr.ErrorCode, appErr.Message, appErr.Details)
}
