package mailmerge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chuanghiduoc/progress-mailer/pkg/email"
)

// ErrCancelled is returned by Dispatch when the run was stopped before every
// recipient was processed. The partial ledger is returned alongside it.
var ErrCancelled = errors.New("dispatch cancelled")

// MessageRenderer turns a recipient into a message. *Renderer implements it.
type MessageRenderer interface {
	Render(r Recipient) (Message, error)
}

// Dispatcher sends rendered messages one recipient at a time. It holds no
// per-run state, so a single Dispatcher may serve concurrent runs as long as
// its sender is safe for concurrent use.
type Dispatcher struct {
	renderer MessageRenderer
	sender   email.Sender
	clock    Clock
	observe  func(Outcome)
}

type Option func(*Dispatcher)

// WithClock replaces the wall clock used for pacing.
func WithClock(c Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

// WithObserver registers fn to be called once per outcome, in order.
func WithObserver(fn func(Outcome)) Option {
	return func(d *Dispatcher) { d.observe = fn }
}

func NewDispatcher(renderer MessageRenderer, sender email.Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		renderer: renderer,
		sender:   sender,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchOne renders and sends a single message without pacing.
func (d *Dispatcher) DispatchOne(ctx context.Context, r Recipient) Outcome {
	o := d.deliver(ctx, 0, r)
	d.emit(o)
	return o
}

// Dispatch processes recipients strictly in order, waiting pacing between
// consecutive sends. A failure for one recipient never stops the run.
//
// ctx is checked before each recipient and interrupts the pacing wait; a send
// already in flight is allowed to finish. On cancellation the partial ledger
// is returned with an error wrapping ErrCancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []Recipient, pacing time.Duration) (*Ledger, error) {
	ledger := newLedger(len(recipients), d.clock.Now())

	for i, r := range recipients {
		if err := ctx.Err(); err != nil {
			return d.cancel(ledger, len(recipients)-i, err)
		}

		o := d.deliver(ctx, i, r)
		ledger.record(o)
		d.emit(o)

		if i == len(recipients)-1 || pacing <= 0 {
			continue
		}
		if err := d.clock.Sleep(ctx, pacing); err != nil {
			return d.cancel(ledger, len(recipients)-i-1, err)
		}
	}

	ledger.FinishedAt = d.clock.Now()
	slog.Info("dispatch run completed",
		slog.Int("total", ledger.Total()),
		slog.Int("delivered", len(ledger.Delivered)),
		slog.Int("failed", len(ledger.Failed)),
		slog.Duration("elapsed", ledger.FinishedAt.Sub(ledger.StartedAt)),
	)
	return ledger, nil
}

func (d *Dispatcher) cancel(ledger *Ledger, remaining int, cause error) (*Ledger, error) {
	ledger.Skipped = remaining
	ledger.Status = RunCancelled
	ledger.FinishedAt = d.clock.Now()
	slog.Warn("dispatch run cancelled",
		slog.Int("processed", ledger.Processed()),
		slog.Int("skipped", remaining),
		slog.Any("cause", cause),
	)
	return ledger, fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// deliver never returns an error: every fault becomes a failed Outcome.
func (d *Dispatcher) deliver(ctx context.Context, pos int, r Recipient) Outcome {
	o := Outcome{Position: pos, Name: r.Name, Email: r.Email, RowRef: r.RowRef}

	msg, err := d.render(r)
	if err != nil {
		return d.fail(o, err)
	}

	receipt, err := d.send(ctx, r.Email, msg)
	if err != nil {
		return d.fail(o, err)
	}

	o.Status = StatusDelivered
	o.MessageRef = receipt.MessageID
	slog.Debug("email delivered",
		slog.Int("position", pos),
		slog.String("to", r.Email),
		slog.String("message_id", receipt.MessageID),
	)
	return o
}

func (d *Dispatcher) render(r Recipient) (msg Message, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render panicked: %v", p)
		}
	}()
	return d.renderer.Render(r)
}

func (d *Dispatcher) send(ctx context.Context, to string, msg Message) (receipt email.Receipt, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("transport panicked: %v", p)
		}
	}()
	// An operator stop must not abort a message mid-transmission.
	return d.sender.Send(context.WithoutCancel(ctx), email.Message{
		To:      []string{to},
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
}

func (d *Dispatcher) fail(o Outcome, err error) Outcome {
	o.Status = StatusFailed
	o.Reason = err.Error()
	slog.Warn("email dispatch failed",
		slog.Int("position", o.Position),
		slog.String("to", o.Email),
		slog.String("student", o.Name),
		slog.Any("error", err),
	)
	return o
}

func (d *Dispatcher) emit(o Outcome) {
	if d.observe != nil {
		d.observe(o)
	}
}
