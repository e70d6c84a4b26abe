package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
)

// memoryStudentRepository backs STORE_DRIVER=memory and tests.
type memoryStudentRepository struct {
	mu     sync.RWMutex
	rows   map[int64]*Student
	nextID int64
	now    func() time.Time
}

func NewMemoryStudentRepository() StudentRepository {
	return &memoryStudentRepository{
		rows:   make(map[int64]*Student),
		nextID: 1,
		now:    time.Now,
	}
}

// sorted returns a snapshot ordered by id. Caller holds at least a read lock.
func (m *memoryStudentRepository) sorted(filter StudentFilter) []Student {
	out := make([]Student, 0, len(m.rows))
	for _, s := range m.rows {
		if filter.matches(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStudentRepository) regNoTaken(regNo string, except int64) bool {
	for id, s := range m.rows {
		if id != except && s.RegistrationNo == regNo {
			return true
		}
	}
	return false
}

func (m *memoryStudentRepository) GetByID(_ context.Context, id int64) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStudentRepository) GetByIDs(_ context.Context, ids []int64) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.rows[id]; ok {
			rows = append(rows, *s)
		}
	}
	return orderByIDs(rows, ids), nil
}

func (m *memoryStudentRepository) List(_ context.Context, filter StudentFilter, limit, offset int32) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.sorted(filter)
	start := min(int(offset), len(all))
	end := min(start+int(limit), len(all))
	return all[start:end], nil
}

func (m *memoryStudentRepository) Count(_ context.Context, filter StudentFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.sorted(filter))), nil
}

func (m *memoryStudentRepository) insert(p StudentParams) *Student {
	now := m.now()
	s := &Student{
		ID:             m.nextID,
		Name:           p.Name,
		RegistrationNo: p.RegistrationNo,
		Semester:       p.Semester,
		GPA:            p.GPA,
		Credits:        p.Credits,
		Email:          p.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.rows[s.ID] = s
	m.nextID++
	return s
}

func (m *memoryStudentRepository) Create(_ context.Context, p StudentParams) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.regNoTaken(p.RegistrationNo, 0) {
		return nil, apperror.ErrDuplicate
	}
	cp := *m.insert(p)
	return &cp, nil
}

func (m *memoryStudentRepository) Upsert(_ context.Context, p StudentParams) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.RegistrationNo == p.RegistrationNo {
			m.apply(s, p)
			cp := *s
			return &cp, nil
		}
	}
	cp := *m.insert(p)
	return &cp, nil
}

func (m *memoryStudentRepository) apply(s *Student, p StudentParams) {
	s.Name = p.Name
	s.RegistrationNo = p.RegistrationNo
	s.Semester = p.Semester
	s.GPA = p.GPA
	s.Credits = p.Credits
	s.Email = p.Email
	s.UpdatedAt = m.now()
}

func (m *memoryStudentRepository) Update(_ context.Context, id int64, p StudentParams) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	if m.regNoTaken(p.RegistrationNo, id) {
		return nil, apperror.ErrDuplicate
	}
	m.apply(s, p)
	cp := *s
	return &cp, nil
}

func (m *memoryStudentRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperror.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryStudentRepository) UpdateStatuses(_ context.Context, updates []StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Ids that no longer exist are skipped, as the SQL UPDATE would.
	for _, u := range updates {
		if s, ok := m.rows[u.ID]; ok {
			at := u.At
			s.Status = u.Status
			s.StatusUpdatedAt = &at
			s.UpdatedAt = m.now()
		}
	}
	return nil
}

func (m *memoryStudentRepository) Stats(_ context.Context) (StudentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var st StudentStats
	for _, s := range m.rows {
		st.Total++
		switch {
		case s.Status == "":
			st.Pending++
		case s.Status == StatusFailed:
			st.Failed++
		case strings.HasPrefix(s.Status, StatusDelivered):
			st.Delivered++
		}
	}
	return st, nil
}

func (m *memoryStudentRepository) Ping(_ context.Context) error {
	return nil
}
