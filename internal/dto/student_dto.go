package dto

import "time"

type StudentListQuery struct {
	Page    int    `query:"page"`
	PerPage int    `query:"per_page"`
	Status  string `query:"status" validate:"omitempty,oneof=pending delivered failed"`
	Search  string `query:"q" validate:"omitempty,max=100"`
}

type CreateStudentRequest struct {
	Name           string `json:"student_name" validate:"required,min=2,max=200"`
	RegistrationNo string `json:"registration_no" validate:"required,regno"`
	Semester       string `json:"semester" validate:"omitempty,max=20"`
	GPA            string `json:"cgpa" validate:"omitempty,gpa"`
	Credits        string `json:"credits" validate:"omitempty,numeric,max=6"`
	Email          string `json:"email" validate:"required,email"`
}

// UpdateStudentRequest changes only the fields that are present.
type UpdateStudentRequest struct {
	Name           *string `json:"student_name" validate:"omitempty,min=2,max=200"`
	RegistrationNo *string `json:"registration_no" validate:"omitempty,regno"`
	Semester       *string `json:"semester" validate:"omitempty,max=20"`
	GPA            *string `json:"cgpa" validate:"omitempty,gpa"`
	Credits        *string `json:"credits" validate:"omitempty,numeric,max=6"`
	Email          *string `json:"email" validate:"omitempty,email"`
}

type StudentResponse struct {
	ID              int64      `json:"id"`
	Name            string     `json:"student_name"`
	RegistrationNo  string     `json:"registration_no"`
	Semester        string     `json:"semester"`
	GPA             string     `json:"cgpa"`
	Credits         string     `json:"credits"`
	Email           string     `json:"email"`
	Status          string     `json:"status"`
	StatusUpdatedAt *time.Time `json:"status_updated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type StudentStatsResponse struct {
	Total     int64 `json:"total"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Pending   int64 `json:"pending"`
}
