package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chuanghiduoc/progress-mailer/internal/dto"
	"github.com/chuanghiduoc/progress-mailer/internal/repository"
	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
	"github.com/chuanghiduoc/progress-mailer/pkg/pagination"
)

type StudentService interface {
	List(ctx context.Context, filter repository.StudentFilter, page pagination.Params) ([]dto.StudentResponse, int64, error)
	GetByID(ctx context.Context, id int64) (*dto.StudentResponse, error)
	Create(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateStudentRequest) (*dto.StudentResponse, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*dto.StudentStatsResponse, error)
}

type studentService struct {
	repo repository.StudentRepository
}

func NewStudentService(repo repository.StudentRepository) StudentService {
	return &studentService{repo: repo}
}

func (s *studentService) List(ctx context.Context, filter repository.StudentFilter, page pagination.Params) ([]dto.StudentResponse, int64, error) {
	limit, offset := page.LimitOffset()

	rows, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		slog.Error("failed to list students", slog.Any("error", err))
		return nil, 0, apperror.NewInternal("failed to list students")
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, apperror.NewInternal("failed to count students")
	}

	out := make([]dto.StudentResponse, len(rows))
	for i := range rows {
		out[i] = *ToStudentResponse(&rows[i])
	}
	return out, total, nil
}

func (s *studentService) GetByID(ctx context.Context, id int64) (*dto.StudentResponse, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "failed to get student")
	}
	return ToStudentResponse(st), nil
}

func (s *studentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	st, err := s.repo.Create(ctx, repository.StudentParams{
		Name:           req.Name,
		RegistrationNo: req.RegistrationNo,
		Semester:       req.Semester,
		GPA:            req.GPA,
		Credits:        req.Credits,
		Email:          req.Email,
	})
	if err != nil {
		return nil, s.mapErr(err, "failed to create student")
	}
	return ToStudentResponse(st), nil
}

func (s *studentService) Update(ctx context.Context, id int64, req dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "failed to get student")
	}

	p := repository.StudentParams{
		Name:           st.Name,
		RegistrationNo: st.RegistrationNo,
		Semester:       st.Semester,
		GPA:            st.GPA,
		Credits:        st.Credits,
		Email:          st.Email,
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, req.Name)
	set(&p.RegistrationNo, req.RegistrationNo)
	set(&p.Semester, req.Semester)
	set(&p.GPA, req.GPA)
	set(&p.Credits, req.Credits)
	set(&p.Email, req.Email)

	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, s.mapErr(err, "failed to update student")
	}
	return ToStudentResponse(updated), nil
}

func (s *studentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapErr(err, "failed to delete student")
	}
	return nil
}

func (s *studentService) Stats(ctx context.Context) (*dto.StudentStatsResponse, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		slog.Error("failed to compute student stats", slog.Any("error", err))
		return nil, apperror.NewInternal("failed to get statistics")
	}
	return &dto.StudentStatsResponse{
		Total:     st.Total,
		Delivered: st.Delivered,
		Failed:    st.Failed,
		Pending:   st.Pending,
	}, nil
}

func (s *studentService) mapErr(err error, internalMsg string) error {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return apperror.NewNotFound("student not found")
	case errors.Is(err, apperror.ErrDuplicate):
		return apperror.NewConflict("registration number already exists")
	default:
		slog.Error(internalMsg, slog.Any("error", err))
		return apperror.NewInternal(internalMsg)
	}
}

// ToStudentResponse converts a repository row to its API shape.
func ToStudentResponse(s *repository.Student) *dto.StudentResponse {
	return &dto.StudentResponse{
		ID:              s.ID,
		Name:            s.Name,
		RegistrationNo:  s.RegistrationNo,
		Semester:        s.Semester,
		GPA:             s.GPA,
		Credits:         s.Credits,
		Email:           s.Email,
		Status:          s.Status,
		StatusUpdatedAt: s.StatusUpdatedAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
