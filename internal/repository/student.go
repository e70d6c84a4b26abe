package repository

import (
	"context"
	"strings"
	"time"
)

// Student is one row of the record store.
type Student struct {
	ID              int64      `db:"id"`
	Name            string     `db:"student_name"`
	RegistrationNo  string     `db:"registration_no"`
	Semester        string     `db:"semester"`
	GPA             string     `db:"cgpa"`
	Credits         string     `db:"credits"`
	Email           string     `db:"email"`
	Status          string     `db:"status"`
	StatusUpdatedAt *time.Time `db:"status_updated_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

type StudentParams struct {
	Name           string
	RegistrationNo string
	Semester       string
	GPA            string
	Credits        string
	Email          string
}

// StatusUpdate is one delivery status written back after a run.
type StatusUpdate struct {
	ID     int64
	Status string
	At     time.Time
}

type StudentStats struct {
	Total     int64 `json:"total"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Pending   int64 `json:"pending"`
}

// Delivery status filters.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

type StudentFilter struct {
	// Status is one of the Status* constants, or empty for all rows.
	Status string
	// Search matches name, registration number or email, case-insensitively.
	Search string
}

// matches mirrors the SQL filter for the in-memory store.
func (f StudentFilter) matches(s *Student) bool {
	switch f.Status {
	case StatusPending:
		if s.Status != "" {
			return false
		}
	case StatusDelivered:
		if !strings.HasPrefix(s.Status, StatusDelivered) {
			return false
		}
	case StatusFailed:
		if s.Status != StatusFailed {
			return false
		}
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(s.Name), q) ||
		strings.Contains(strings.ToLower(s.RegistrationNo), q) ||
		strings.Contains(strings.ToLower(s.Email), q)
}

type StudentRepository interface {
	GetByID(ctx context.Context, id int64) (*Student, error)
	// GetByIDs returns the rows that exist, in the order of ids.
	GetByIDs(ctx context.Context, ids []int64) ([]Student, error)
	List(ctx context.Context, filter StudentFilter, limit, offset int32) ([]Student, error)
	Count(ctx context.Context, filter StudentFilter) (int64, error)
	Create(ctx context.Context, params StudentParams) (*Student, error)
	// Upsert inserts or replaces the row with the same registration number.
	Upsert(ctx context.Context, params StudentParams) (*Student, error)
	Update(ctx context.Context, id int64, params StudentParams) (*Student, error)
	Delete(ctx context.Context, id int64) error
	// UpdateStatuses applies all updates or none.
	UpdateStatuses(ctx context.Context, updates []StatusUpdate) error
	Stats(ctx context.Context) (StudentStats, error)
	Ping(ctx context.Context) error
}

// orderByIDs arranges rows in the order of ids, dropping ids with no row.
func orderByIDs(rows []Student, ids []int64) []Student {
	byID := make(map[int64]Student, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]Student, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
