// Package seed loads student rosters into the record store.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/chuanghiduoc/progress-mailer/internal/dto"
	"github.com/chuanghiduoc/progress-mailer/internal/repository"
	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
	"github.com/chuanghiduoc/progress-mailer/pkg/validator"
)

// RosterColumns is the required CSV header, in any order.
var RosterColumns = []string{"student_name", "registration_no", "semester", "cgpa", "credits", "email"}

// RowError describes a roster line that was not imported.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

type Result struct {
	Imported int
	Rejected []RowError
}

// Students upserts every valid roster row keyed by registration number, so
// re-running an import updates rows instead of duplicating them. Invalid rows
// are reported in Result and do not stop the import.
func Students(ctx context.Context, r io.Reader, repo repository.StudentRepository) (Result, error) {
	var res Result

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, errors.New("roster is empty")
		}
		return res, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return res, err
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line, _ := cr.FieldPos(0)
		if err != nil {
			return res, fmt.Errorf("read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		req := dto.CreateStudentRequest{
			Name:           cols.get(record, "student_name"),
			RegistrationNo: cols.get(record, "registration_no"),
			Semester:       cols.get(record, "semester"),
			GPA:            cols.get(record, "cgpa"),
			Credits:        cols.get(record, "credits"),
			Email:          cols.get(record, "email"),
		}
		if err := validator.ValidateStruct(req); err != nil {
			res.Rejected = append(res.Rejected, RowError{Line: line, Reason: reason(err)})
			continue
		}

		if _, err := repo.Upsert(ctx, repository.StudentParams{
			Name:           req.Name,
			RegistrationNo: req.RegistrationNo,
			Semester:       req.Semester,
			GPA:            req.GPA,
			Credits:        req.Credits,
			Email:          req.Email,
		}); err != nil {
			return res, fmt.Errorf("line %d: upsert %s: %w", line, req.RegistrationNo, err)
		}
		res.Imported++
	}

	slog.Info("roster imported",
		slog.Int("imported", res.Imported),
		slog.Int("rejected", len(res.Rejected)),
	)
	return res, nil
}

// reason flattens validation details into one sorted line.
func reason(err error) string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	details, ok := appErr.Details.(map[string]string)
	if !ok || len(details) == 0 {
		return appErr.Message
	}
	parts := make([]string, 0, len(details))
	for field, msg := range details {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

type columns map[string]int

func columnIndex(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, want := range RosterColumns {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("roster header is missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) get(record []string, name string) string {
	i := c[name]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
