package response

import (
	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/pkg/pagination"
)

// RequestIDHeader is echoed into error bodies so operators can match a
// failed send-bulk call with its log lines.
const RequestIDHeader = "X-Request-ID"

type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Meta describes one page of a student listing.
type Meta struct {
	Page      int   `json:"page"`
	PerPage   int   `json:"per_page"`
	Total     int64 `json:"total"`
	TotalPage int   `json:"total_page"`
}

func NewMeta(p pagination.Params, total int64) Meta {
	return Meta{
		Page:      p.Page,
		PerPage:   p.PerPage,
		Total:     total,
		TotalPage: pagination.TotalPages(total, p.PerPage),
	}
}

func write(c fiber.Ctx, status int, body Response) error {
	return c.Status(status).JSON(body)
}

func Success(c fiber.Ctx, data any) error {
	return write(c, fiber.StatusOK, Response{Success: true, Data: data})
}

func SuccessWithMeta(c fiber.Ctx, data any, meta Meta) error {
	return write(c, fiber.StatusOK, Response{Success: true, Data: data, Meta: &meta})
}

func Created(c fiber.Ctx, data any) error {
	return write(c, fiber.StatusCreated, Response{Success: true, Data: data})
}

// Accepted reports work that continues after the response, such as a background run.
func Accepted(c fiber.Ctx, data any) error {
	return write(c, fiber.StatusAccepted, Response{Success: true, Data: data})
}

func NoContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Fail writes the error envelope. details is omitted when nil.
func Fail(c fiber.Ctx, status int, code, message string, details any) error {
	return write(c, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: c.GetRespHeader(RequestIDHeader),
		},
	})
}
