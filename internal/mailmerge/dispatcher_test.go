package mailmerge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chuanghiduoc/progress-mailer/pkg/email"
)

// fakeClock advances virtual time on Sleep instead of blocking.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	// onSleep runs before each sleep returns; tests use it to cancel mid-run.
	onSleep func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	n := len(c.sleeps)
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

// scriptedSender fails for the addresses listed in failFor.
type scriptedSender struct {
	mu      sync.Mutex
	failFor map[string]error
	panicOn string
	sent    []email.Message
	ctxErrs []error
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{failFor: map[string]error{}}
}

func (s *scriptedSender) Send(ctx context.Context, msg email.Message) (email.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	to := msg.To[0]
	if to == s.panicOn {
		panic("connection reset")
	}
	s.sent = append(s.sent, msg)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if err, ok := s.failFor[to]; ok {
		return email.Receipt{}, err
	}
	return email.Receipt{MessageID: "msg-" + to}, nil
}

type brokenRenderer struct {
	failFor string
	panics  bool
	next    MessageRenderer
}

func (b brokenRenderer) Render(r Recipient) (Message, error) {
	if r.Email == b.failFor {
		if b.panics {
			panic("template exploded")
		}
		return Message{}, errors.New("template error")
	}
	return b.next.Render(r)
}

func recipients(n int) []Recipient {
	out := make([]Recipient, n)
	for i := range out {
		out[i] = Recipient{
			Name:           fmt.Sprintf("Student %d", i+1),
			RegistrationNo: fmt.Sprintf("R%03d", i+1),
			Semester:       "5",
			GPA:            "8.0",
			Credits:        "100",
			Email:          fmt.Sprintf("guardian%d@example.com", i+1),
			RowRef:         fmt.Sprintf("%d", i+1),
		}
	}
	return out
}

func newTestDispatcher(sender email.Sender, clock Clock, opts ...Option) *Dispatcher {
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewDispatcher(testRenderer(), sender, opts...)
}

func TestDispatch_PartialFailure(t *testing.T) {
	sender := newScriptedSender()
	sender.failFor["guardian2@example.com"] = errors.New("550 mailbox unavailable")
	d := newTestDispatcher(sender, newFakeClock())

	ledger, err := d.Dispatch(context.Background(), recipients(3), 0)
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if len(ledger.Delivered) != 2 || len(ledger.Failed) != 1 {
		t.Fatalf("delivered=%d failed=%d, want 2/1", len(ledger.Delivered), len(ledger.Failed))
	}
	if ledger.Delivered[0].Email != "guardian1@example.com" || ledger.Delivered[1].Email != "guardian3@example.com" {
		t.Errorf("delivered order = %v", ledger.Delivered)
	}
	if ledger.Delivered[0].MessageRef != "msg-guardian1@example.com" {
		t.Errorf("MessageRef = %q", ledger.Delivered[0].MessageRef)
	}
	if ledger.Failed[0].Email != "guardian2@example.com" || ledger.Failed[0].Reason != "550 mailbox unavailable" {
		t.Errorf("failed outcome = %+v", ledger.Failed[0])
	}
	if ledger.Status != RunCompleted {
		t.Errorf("Status = %q, want completed", ledger.Status)
	}
	if len(sender.sent) != 3 {
		t.Errorf("sender called %d times, want 3", len(sender.sent))
	}
}

func TestDispatch_EveryRecipientExactlyOnce(t *testing.T) {
	for _, n := range []int{1, 2, 7, 25} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			sender := newScriptedSender()
			for i := 1; i <= n; i += 3 {
				sender.failFor[fmt.Sprintf("guardian%d@example.com", i)] = errors.New("refused")
			}
			in := recipients(n)

			ledger, err := newTestDispatcher(sender, newFakeClock()).Dispatch(context.Background(), in, time.Millisecond)
			if err != nil {
				t.Fatalf("Dispatch() error: %v", err)
			}
			if ledger.Processed() != n || ledger.Total() != n {
				t.Fatalf("processed=%d total=%d, want %d", ledger.Processed(), ledger.Total(), n)
			}

			seen := map[string]int{}
			for _, o := range ledger.Outcomes() {
				seen[o.Email]++
			}
			for _, r := range in {
				if seen[r.Email] != 1 {
					t.Errorf("%s appears %d times", r.Email, seen[r.Email])
				}
			}

			for _, part := range [][]Outcome{ledger.Delivered, ledger.Failed} {
				for i := 1; i < len(part); i++ {
					if part[i-1].Position >= part[i].Position {
						t.Errorf("partition out of input order at %d", i)
					}
				}
			}
		})
	}
}

func TestDispatch_Pacing(t *testing.T) {
	clock := newFakeClock()
	d := newTestDispatcher(newScriptedSender(), clock)
	pacing := 250 * time.Millisecond

	ledger, err := d.Dispatch(context.Background(), recipients(4), pacing)
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if len(clock.sleeps) != 3 {
		t.Fatalf("slept %d times, want 3", len(clock.sleeps))
	}
	for _, s := range clock.sleeps {
		if s != pacing {
			t.Errorf("sleep = %v, want %v", s, pacing)
		}
	}
	if elapsed := ledger.FinishedAt.Sub(ledger.StartedAt); elapsed < 3*pacing {
		t.Errorf("elapsed = %v, want at least %v", elapsed, 3*pacing)
	}
}

func TestDispatch_ZeroPacing(t *testing.T) {
	clock := newFakeClock()
	if _, err := newTestDispatcher(newScriptedSender(), clock).Dispatch(context.Background(), recipients(5), 0); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("slept %d times with zero pacing", len(clock.sleeps))
	}
}

func TestDispatch_Empty(t *testing.T) {
	sender := newScriptedSender()
	clock := newFakeClock()

	ledger, err := newTestDispatcher(sender, clock).Dispatch(context.Background(), nil, time.Second)
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if ledger.Delivered == nil || ledger.Failed == nil {
		t.Error("empty ledger partitions should be non-nil")
	}
	if ledger.Processed() != 0 || len(sender.sent) != 0 || len(clock.sleeps) != 0 {
		t.Errorf("empty input did work: processed=%d sent=%d sleeps=%d",
			ledger.Processed(), len(sender.sent), len(clock.sleeps))
	}
}

func TestDispatch_RendererFault(t *testing.T) {
	tests := []struct {
		name   string
		panics bool
	}{
		{"error", false},
		{"panic", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := newScriptedSender()
			renderer := brokenRenderer{failFor: "guardian2@example.com", panics: tt.panics, next: testRenderer()}
			d := NewDispatcher(renderer, sender, WithClock(newFakeClock()))

			ledger, err := d.Dispatch(context.Background(), recipients(3), 0)
			if err != nil {
				t.Fatalf("Dispatch() error: %v", err)
			}
			if len(ledger.Delivered) != 2 || len(ledger.Failed) != 1 {
				t.Fatalf("delivered=%d failed=%d, want 2/1", len(ledger.Delivered), len(ledger.Failed))
			}
			if len(sender.sent) != 2 {
				t.Errorf("sender called %d times, want 2 (bad record must not be sent)", len(sender.sent))
			}
		})
	}
}

func TestDispatch_TransportPanic(t *testing.T) {
	sender := newScriptedSender()
	sender.panicOn = "guardian1@example.com"

	ledger, err := newTestDispatcher(sender, newFakeClock()).Dispatch(context.Background(), recipients(2), 0)
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(ledger.Failed) != 1 || ledger.Failed[0].Position != 0 {
		t.Fatalf("failed = %+v", ledger.Failed)
	}
	if len(ledger.Delivered) != 1 {
		t.Errorf("delivered = %d, want 1", len(ledger.Delivered))
	}
}

func TestDispatch_CancelDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock()
	clock.onSleep = func(n int) {
		if n == 2 {
			cancel()
		}
	}
	sender := newScriptedSender()

	ledger, err := newTestDispatcher(sender, clock).Dispatch(ctx, recipients(5), time.Second)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, should wrap context.Canceled", err)
	}
	if ledger == nil {
		t.Fatal("cancelled run must return the partial ledger")
	}
	if ledger.Status != RunCancelled {
		t.Errorf("Status = %q, want cancelled", ledger.Status)
	}
	if ledger.Processed() != 2 || ledger.Skipped != 3 || ledger.Total() != 5 {
		t.Errorf("processed=%d skipped=%d total=%d", ledger.Processed(), ledger.Skipped, ledger.Total())
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent = %d, want 2", len(sender.sent))
	}
}

func TestDispatch_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sender := newScriptedSender()

	ledger, err := newTestDispatcher(sender, newFakeClock()).Dispatch(ctx, recipients(3), 0)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if ledger.Skipped != 3 || ledger.Processed() != 0 || len(sender.sent) != 0 {
		t.Errorf("skipped=%d processed=%d sent=%d", ledger.Skipped, ledger.Processed(), len(sender.sent))
	}
}

func TestDispatch_SendNotInterruptedByCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock()
	sender := newScriptedSender()
	var observed []Outcome
	d := newTestDispatcher(sender, clock, WithObserver(func(o Outcome) {
		observed = append(observed, o)
		cancel()
	}))

	ledger, err := d.Dispatch(ctx, recipients(3), 0)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if ledger.Processed() != 1 || len(observed) != 1 {
		t.Errorf("processed=%d observed=%d, want 1/1", ledger.Processed(), len(observed))
	}
	for _, e := range sender.ctxErrs {
		if e != nil {
			t.Errorf("send saw cancelled context: %v", e)
		}
	}
}

func TestDispatchOne(t *testing.T) {
	sender := newScriptedSender()
	clock := newFakeClock()
	d := newTestDispatcher(sender, clock)
	r := recipients(1)[0]

	o := d.DispatchOne(context.Background(), r)
	if !o.Delivered() {
		t.Fatalf("outcome = %+v, want delivered", o)
	}
	if o.MessageRef != "msg-"+r.Email {
		t.Errorf("MessageRef = %q, want %q", o.MessageRef, "msg-"+r.Email)
	}
	if o.Name != r.Name || o.RowRef != r.RowRef {
		t.Errorf("identity not carried: %+v", o)
	}
	if len(clock.sleeps) != 0 {
		t.Error("DispatchOne must not pace")
	}

	sent := sender.sent[0]
	if sent.To[0] != r.Email || sent.Subject == "" || sent.Text == "" || sent.HTML == "" {
		t.Errorf("sent message = %+v", sent)
	}
}

func TestDispatchOne_Failure(t *testing.T) {
	sender := newScriptedSender()
	r := recipients(1)[0]
	sender.failFor[r.Email] = errors.New("auth failed")

	o := newTestDispatcher(sender, newFakeClock()).DispatchOne(context.Background(), r)
	if o.Status != StatusFailed || o.Reason != "auth failed" {
		t.Errorf("outcome = %+v", o)
	}
}

func TestLedger_Outcomes(t *testing.T) {
	l := &Ledger{
		Delivered: []Outcome{{Position: 0}, {Position: 3}},
		Failed:    []Outcome{{Position: 1}, {Position: 2}, {Position: 4}},
	}
	got := l.Outcomes()
	for i, o := range got {
		if o.Position != i {
			t.Errorf("Outcomes()[%d].Position = %d", i, o.Position)
		}
	}
}
