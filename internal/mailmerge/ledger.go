package mailmerge

import "time"

type OutcomeStatus string

const (
	StatusDelivered OutcomeStatus = "delivered"
	StatusFailed    OutcomeStatus = "failed"
)

// Outcome is the result of dispatching to one recipient.
type Outcome struct {
	// Position is the recipient's index in the dispatched batch.
	Position   int           `json:"position"`
	Name       string        `json:"student"`
	Email      string        `json:"email"`
	RowRef     string        `json:"row_ref,omitempty"`
	Status     OutcomeStatus `json:"status"`
	MessageRef string        `json:"message_id,omitempty"`
	Reason     string        `json:"error,omitempty"`
}

func (o Outcome) Delivered() bool { return o.Status == StatusDelivered }

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
)

// Ledger partitions the outcomes of one dispatch run. Both partitions keep
// the relative input order of their recipients. For a completed run
// len(Delivered)+len(Failed) equals the batch size; a cancelled run counts
// the unprocessed tail in Skipped.
type Ledger struct {
	Delivered  []Outcome `json:"successful"`
	Failed     []Outcome `json:"failed"`
	Skipped    int       `json:"skipped"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func newLedger(capacity int, startedAt time.Time) *Ledger {
	return &Ledger{
		Delivered: make([]Outcome, 0, capacity),
		Failed:    make([]Outcome, 0),
		Status:    RunCompleted,
		StartedAt: startedAt,
	}
}

func (l *Ledger) record(o Outcome) {
	if o.Delivered() {
		l.Delivered = append(l.Delivered, o)
		return
	}
	l.Failed = append(l.Failed, o)
}

// Processed is the number of recipients that reached an outcome.
func (l *Ledger) Processed() int {
	return len(l.Delivered) + len(l.Failed)
}

// Total is the size of the dispatched batch.
func (l *Ledger) Total() int {
	return l.Processed() + l.Skipped
}

// Outcomes returns every outcome ordered by input position.
func (l *Ledger) Outcomes() []Outcome {
	out := make([]Outcome, 0, l.Processed())
	i, j := 0, 0
	for i < len(l.Delivered) || j < len(l.Failed) {
		switch {
		case j >= len(l.Failed):
			out = append(out, l.Delivered[i])
			i++
		case i >= len(l.Delivered):
			out = append(out, l.Failed[j])
			j++
		case l.Delivered[i].Position < l.Failed[j].Position:
			out = append(out, l.Delivered[i])
			i++
		default:
			out = append(out, l.Failed[j])
			j++
		}
	}
	return out
}
