package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/internal/dto"
	"github.com/chuanghiduoc/progress-mailer/internal/repository"
	"github.com/chuanghiduoc/progress-mailer/internal/service"
	"github.com/chuanghiduoc/progress-mailer/pkg/pagination"
	"github.com/chuanghiduoc/progress-mailer/pkg/response"
)

type StudentHandler struct {
	service service.StudentService
}

func NewStudentHandler(svc service.StudentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Description Get a paginated list of student records, optionally filtered by delivery status or a search term
// @Tags Students
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Delivery status" Enums(pending, delivered, failed)
// @Param q query string false "Search name, registration number or email"
// @Success 200 {object} response.Response{data=[]dto.StudentResponse,meta=response.Meta}
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /students [get]
func (h *StudentHandler) List(c fiber.Ctx) error {
	var q dto.StudentListQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	page := pagination.New(q.Page, q.PerPage)
	students, total, err := h.service.List(c.Context(), repository.StudentFilter{
		Status: q.Status,
		Search: q.Search,
	}, page)
	if err != nil {
		return err
	}

	return response.SuccessWithMeta(c, students, response.NewMeta(page, total))
}

// GetByID godoc
// @Summary Get student by ID
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Response{data=dto.StudentResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /students/{id} [get]
func (h *StudentHandler) GetByID(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	student, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return err
	}

	return response.Success(c, student)
}

// Create godoc
// @Summary Create student
// @Description Add a student record to the roster
// @Tags Students
// @Accept json
// @Produce json
// @Param request body dto.CreateStudentRequest true "Student"
// @Success 201 {object} response.Response{data=dto.StudentResponse}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /students [post]
func (h *StudentHandler) Create(c fiber.Ctx) error {
	var req dto.CreateStudentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	student, err := h.service.Create(c.Context(), req)
	if err != nil {
		return err
	}

	return response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Description Update the fields present in the request
// @Tags Students
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param request body dto.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} response.Response{data=dto.StudentResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateStudentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	student, err := h.service.Update(c.Context(), id, req)
	if err != nil {
		return err
	}

	return response.Success(c, student)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Param id path int true "Student ID"
// @Success 204
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}

	return response.NoContent(c)
}

// Stats godoc
// @Summary Delivery statistics
// @Description Count students by delivery status
// @Tags Students
// @Produce json
// @Success 200 {object} response.Response{data=dto.StudentStatsResponse}
// @Failure 500 {object} response.Response
// @Router /students/stats [get]
func (h *StudentHandler) Stats(c fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return err
	}

	return response.Success(c, stats)
}
