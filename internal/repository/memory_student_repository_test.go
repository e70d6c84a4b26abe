package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
)

func seedStudents(t *testing.T, repo StudentRepository) []*Student {
	t.Helper()
	params := []StudentParams{
		{Name: "Asha Rao", RegistrationNo: "R100", Semester: "5", GPA: "8.5", Credits: "120", Email: "asha.parent@example.com"},
		{Name: "Ravi Kumar", RegistrationNo: "R101", Semester: "5", GPA: "7.9", Credits: "116", Email: "ravi.parent@example.com"},
		{Name: "Meera Shah", RegistrationNo: "R102", Semester: "3", GPA: "9.1", Credits: "64", Email: "meera.parent@example.com"},
	}
	out := make([]*Student, 0, len(params))
	for _, p := range params {
		s, err := repo.Create(context.Background(), p)
		if err != nil {
			t.Fatalf("Create(%s) failed: %v", p.RegistrationNo, err)
		}
		out = append(out, s)
	}
	return out
}

func TestMemoryStudentRepository_CRUD(t *testing.T) {
	repo := NewMemoryStudentRepository()
	ctx := context.Background()
	seeded := seedStudents(t, repo)

	got, err := repo.GetByID(ctx, seeded[0].ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Asha Rao" || got.GPA != "8.5" {
		t.Errorf("GetByID = %+v", got)
	}

	updated, err := repo.Update(ctx, seeded[0].ID, StudentParams{
		Name: "Asha R.", RegistrationNo: "R100", Semester: "6", GPA: "8.7", Credits: "140", Email: "asha.parent@example.com",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Semester != "6" || updated.Name != "Asha R." {
		t.Errorf("Update = %+v", updated)
	}

	if err := repo.Delete(ctx, seeded[1].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, seeded[1].ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID after Delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, seeded[1].ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStudentRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryStudentRepository()
	seeded := seedStudents(t, repo)

	seeded[0].Name = "mutated"
	got, _ := repo.GetByID(context.Background(), seeded[0].ID)
	if got.Name != "Asha Rao" {
		t.Errorf("stored row changed through returned pointer: %q", got.Name)
	}
}

func TestMemoryStudentRepository_DuplicateRegistration(t *testing.T) {
	repo := NewMemoryStudentRepository()
	ctx := context.Background()
	seeded := seedStudents(t, repo)

	_, err := repo.Create(ctx, StudentParams{Name: "Dup", RegistrationNo: "R100", Email: "dup@example.com"})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Errorf("Create duplicate error = %v, want ErrDuplicate", err)
	}

	_, err = repo.Update(ctx, seeded[1].ID, StudentParams{Name: "Ravi", RegistrationNo: "R100", Email: "r@example.com"})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Errorf("Update to taken registration error = %v, want ErrDuplicate", err)
	}
}

func TestMemoryStudentRepository_Upsert(t *testing.T) {
	repo := NewMemoryStudentRepository()
	ctx := context.Background()
	seeded := seedStudents(t, repo)

	s, err := repo.Upsert(ctx, StudentParams{Name: "Asha Rao", RegistrationNo: "R100", GPA: "9.0", Email: "new@example.com"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if s.ID != seeded[0].ID || s.GPA != "9.0" {
		t.Errorf("Upsert existing = %+v", s)
	}

	s, err = repo.Upsert(ctx, StudentParams{Name: "New", RegistrationNo: "R200", Email: "n@example.com"})
	if err != nil {
		t.Fatalf("Upsert new failed: %v", err)
	}
	if n, _ := repo.Count(ctx, StudentFilter{}); n != 4 {
		t.Errorf("Count = %d, want 4", n)
	}
	if s.ID != 4 {
		t.Errorf("new id = %d, want 4", s.ID)
	}
}

func TestMemoryStudentRepository_GetByIDsKeepsRequestOrder(t *testing.T) {
	repo := NewMemoryStudentRepository()
	seedStudents(t, repo)

	rows, err := repo.GetByIDs(context.Background(), []int64{3, 99, 1})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != 3 || rows[1].ID != 1 {
		t.Errorf("GetByIDs order = %v", []int64{rows[0].ID, rows[1].ID})
	}
}

func TestMemoryStudentRepository_StatusesAndFilters(t *testing.T) {
	repo := NewMemoryStudentRepository()
	ctx := context.Background()
	seeded := seedStudents(t, repo)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := repo.UpdateStatuses(ctx, []StatusUpdate{
		{ID: seeded[0].ID, Status: "delivered on 2026-03-01", At: at},
		{ID: seeded[1].ID, Status: "failed", At: at},
		{ID: 999, Status: "failed", At: at},
	})
	if err != nil {
		t.Fatalf("UpdateStatuses failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, seeded[0].ID)
	if got.Status != "delivered on 2026-03-01" || got.StatusUpdatedAt == nil || !got.StatusUpdatedAt.Equal(at) {
		t.Errorf("status = %q at %v", got.Status, got.StatusUpdatedAt)
	}

	stats, _ := repo.Stats(ctx)
	if stats != (StudentStats{Total: 3, Delivered: 1, Failed: 1, Pending: 1}) {
		t.Errorf("Stats = %+v", stats)
	}

	tests := []struct {
		filter StudentFilter
		want   int64
	}{
		{StudentFilter{}, 3},
		{StudentFilter{Status: StatusDelivered}, 1},
		{StudentFilter{Status: StatusFailed}, 1},
		{StudentFilter{Status: StatusPending}, 1},
		{StudentFilter{Search: "meera"}, 1},
		{StudentFilter{Search: "R10"}, 3},
		{StudentFilter{Search: "parent@example", Status: StatusPending}, 1},
	}
	for _, tt := range tests {
		if n, _ := repo.Count(ctx, tt.filter); n != tt.want {
			t.Errorf("Count(%+v) = %d, want %d", tt.filter, n, tt.want)
		}
	}
}

func TestMemoryStudentRepository_ListPaging(t *testing.T) {
	repo := NewMemoryStudentRepository()
	seedStudents(t, repo)
	ctx := context.Background()

	page, _ := repo.List(ctx, StudentFilter{}, 2, 0)
	if len(page) != 2 || page[0].ID != 1 || page[1].ID != 2 {
		t.Errorf("first page = %v", page)
	}
	page, _ = repo.List(ctx, StudentFilter{}, 2, 2)
	if len(page) != 1 || page[0].ID != 3 {
		t.Errorf("second page = %v", page)
	}
	page, _ = repo.List(ctx, StudentFilter{}, 2, 10)
	if len(page) != 0 {
		t.Errorf("past-the-end page = %v", page)
	}
}
