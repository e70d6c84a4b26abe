package dto

import (
	"time"

	"github.com/chuanghiduoc/progress-mailer/internal/mailmerge"
)

// StudentPayload is an inline recipient. RowRef, when set, is the record id
// that receives the delivery status after the send.
type StudentPayload struct {
	Name           string `json:"student_name" validate:"required"`
	RegistrationNo string `json:"registration_no" validate:"required"`
	Semester       string `json:"semester"`
	GPA            string `json:"cgpa"`
	Credits        string `json:"credits"`
	Email          string `json:"email" validate:"required,email"`
	RowRef         string `json:"row_ref" validate:"omitempty,numeric"`
}

type SendEmailRequest struct {
	Student StudentPayload `json:"student"`
}

// SendBulkRequest names recipients either inline or by record id.
type SendBulkRequest struct {
	Students   []StudentPayload `json:"students" validate:"required_without=StudentIDs,omitempty,dive"`
	StudentIDs []int64          `json:"student_ids" validate:"required_without=Students,omitempty,dive,min=1"`
	// DelayMs overrides the configured pacing; nil keeps the default.
	DelayMs *int `json:"delay_ms" validate:"omitempty,min=0,max=60000"`
}

type TestEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PreviewRequest struct {
	Student StudentPayload `json:"student"`
}

type SendEmailResponse struct {
	Outcome    mailmerge.Outcome `json:"outcome"`
	StatusSync string            `json:"status_sync"`
}

type RunSummary struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Run states reported by the API. A run is running until its ledger exists.
const (
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateCancelled = "cancelled"
)

// Status sync results for the record-store write-back.
const (
	StatusSyncOK      = "ok"
	StatusSyncFailed  = "failed"
	StatusSyncSkipped = "skipped"
	StatusSyncPending = "pending"
)

// RunReport is the API view of a bulk run and the archived report format.
type RunReport struct {
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	Summary    RunSummary        `json:"summary"`
	Details    *mailmerge.Ledger `json:"details,omitempty"`
	StatusSync string            `json:"status_sync"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

type RunAcceptedResponse struct {
	RunID string `json:"run_id"`
	Total int    `json:"total"`
}
