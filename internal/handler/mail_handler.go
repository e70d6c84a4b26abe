package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/internal/dto"
	"github.com/chuanghiduoc/progress-mailer/internal/service"
	"github.com/chuanghiduoc/progress-mailer/pkg/response"
)

type MailHandler struct {
	service service.MailService
}

func NewMailHandler(svc service.MailService) *MailHandler {
	return &MailHandler{service: svc}
}

// Send godoc
// @Summary Send one progress email
// @Description Render and send the progress report for a single student. When row_ref is set and the message is delivered, the student's status is updated.
// @Tags Email
// @Accept json
// @Produce json
// @Param request body dto.SendEmailRequest true "Student"
// @Success 200 {object} response.Response{data=dto.SendEmailResponse}
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /email/send [post]
func (h *MailHandler) Send(c fiber.Ctx) error {
	var req dto.SendEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.SendOne(c.Context(), req.Student)
	if err != nil {
		return err
	}

	return response.Success(c, result)
}

// SendBulk godoc
// @Summary Send progress emails to a batch
// @Description Send to inline students or to stored students by id, one at a time with a pause between sends. Blocks until the run finishes.
// @Tags Email
// @Accept json
// @Produce json
// @Param request body dto.SendBulkRequest true "Batch"
// @Success 200 {object} response.Response{data=dto.RunReport}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /email/send-bulk [post]
func (h *MailHandler) SendBulk(c fiber.Ctx) error {
	var req dto.SendBulkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	report, err := h.service.SendBulk(c.Context(), req)
	if err != nil {
		return err
	}

	return response.Success(c, report)
}

// StartRun godoc
// @Summary Start a background bulk run
// @Description Same as send-bulk but returns immediately with a run id to poll
// @Tags Email
// @Accept json
// @Produce json
// @Param request body dto.SendBulkRequest true "Batch"
// @Success 202 {object} response.Response{data=dto.RunAcceptedResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /email/runs [post]
func (h *MailHandler) StartRun(c fiber.Ctx) error {
	var req dto.SendBulkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accepted, err := h.service.StartBulk(c.Context(), req)
	if err != nil {
		return err
	}

	return response.Accepted(c, accepted)
}

// GetRun godoc
// @Summary Get a bulk run
// @Description Progress of a running run, or the report of a finished one
// @Tags Email
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Response{data=dto.RunReport}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /email/runs/{id} [get]
func (h *MailHandler) GetRun(c fiber.Ctx) error {
	report, err := h.service.GetRun(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return response.Success(c, report)
}

// CancelRun godoc
// @Summary Cancel a bulk run
// @Description Stop a running run. The message in flight finishes and the remaining students are skipped.
// @Tags Email
// @Produce json
// @Param id path string true "Run ID"
// @Success 202 {object} response.Response{data=dto.RunReport}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /email/runs/{id}/cancel [post]
func (h *MailHandler) CancelRun(c fiber.Ctx) error {
	report, err := h.service.CancelRun(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return response.Accepted(c, report)
}

// SendTest godoc
// @Summary Send a test email
// @Description Send the progress template filled with a sample student
// @Tags Email
// @Accept json
// @Produce json
// @Param request body dto.TestEmailRequest true "Recipient"
// @Success 200 {object} response.Response{data=mailmerge.Outcome}
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /email/test [post]
func (h *MailHandler) SendTest(c fiber.Ctx) error {
	var req dto.TestEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	outcome, err := h.service.SendTest(c.Context(), req.Email)
	if err != nil {
		return err
	}

	return response.Success(c, outcome)
}

// Preview godoc
// @Summary Preview a progress email
// @Description Render the subject and bodies for a student without sending
// @Tags Email
// @Accept json
// @Produce json
// @Param request body dto.PreviewRequest true "Student"
// @Success 200 {object} response.Response{data=mailmerge.Message}
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /email/preview [post]
func (h *MailHandler) Preview(c fiber.Ctx) error {
	var req dto.PreviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.service.Preview(c.Context(), req.Student)
	if err != nil {
		return err
	}

	return response.Success(c, msg)
}
