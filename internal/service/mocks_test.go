package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chuanghiduoc/progress-mailer/internal/mailmerge"
	"github.com/chuanghiduoc/progress-mailer/internal/repository"
	"github.com/chuanghiduoc/progress-mailer/pkg/email"
)

// ---------------------------------------------------------------------------
// mockEmailSender
// ---------------------------------------------------------------------------

type mockEmailSender struct {
	mu      sync.Mutex
	sent    []email.Message
	failFor map[string]bool
	// onSend, when set, runs after a message is recorded.
	onSend func(n int)
}

func newMockEmailSender() *mockEmailSender {
	return &mockEmailSender{failFor: make(map[string]bool)}
}

func (m *mockEmailSender) Send(_ context.Context, msg email.Message) (email.Receipt, error) {
	m.mu.Lock()
	if len(msg.To) > 0 && m.failFor[msg.To[0]] {
		m.mu.Unlock()
		return email.Receipt{}, errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	n := len(m.sent)
	hook := m.onSend
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return email.Receipt{MessageID: "mock-" + msg.To[0]}, nil
}

func (m *mockEmailSender) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.To[0]
	}
	return out
}

// ---------------------------------------------------------------------------
// mockClock
// ---------------------------------------------------------------------------

// mockClock never blocks unless block is set, in which case Sleep waits for
// the run to be cancelled.
type mockClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	block  bool
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	block := c.block
	c.mu.Unlock()

	if block {
		<-ctx.Done()
	}
	return ctx.Err()
}

func (c *mockClock) sleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

var _ mailmerge.Clock = (*mockClock)(nil)

// ---------------------------------------------------------------------------
// failingStatusRepo
// ---------------------------------------------------------------------------

// failingStatusRepo is a working store whose status write-back always fails.
type failingStatusRepo struct {
	repository.StudentRepository
}

func (failingStatusRepo) UpdateStatuses(context.Context, []repository.StatusUpdate) error {
	return errors.New("connection reset")
}

// ---------------------------------------------------------------------------
// seed helpers
// ---------------------------------------------------------------------------

func seedStudentRepo(ctx context.Context) (repository.StudentRepository, []*repository.Student) {
	repo := repository.NewMemoryStudentRepository()
	params := []repository.StudentParams{
		{Name: "Asha Rao", RegistrationNo: "R100", Semester: "5", GPA: "8.5", Credits: "120", Email: "asha.parent@example.com"},
		{Name: "Ravi Kumar", RegistrationNo: "R101", Semester: "3", GPA: "7.9", Credits: "64", Email: "ravi.parent@example.com"},
		{Name: "Meera Shah", RegistrationNo: "R102", Semester: "7", GPA: "9.1", Credits: "168", Email: "meera.parent@example.com"},
	}
	out := make([]*repository.Student, 0, len(params))
	for _, p := range params {
		st, err := repo.Create(ctx, p)
		if err != nil {
			panic(err)
		}
		out = append(out, st)
	}
	return repo, out
}
