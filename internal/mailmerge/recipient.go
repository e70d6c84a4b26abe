// Package mailmerge renders per-student progress messages and dispatches
// them to guardians through an email transport, one recipient at a time.
//
// The package never touches the record store. A dispatch run produces a
// Ledger and the caller decides what to persist from it.
package mailmerge

// Recipient is one guardian/student pairing to contact.
// Fields are interpolated verbatim; the caller validates them beforehand.
type Recipient struct {
	Name           string `json:"student_name"`
	RegistrationNo string `json:"registration_no"`
	Semester       string `json:"semester"`
	GPA            string `json:"cgpa"`
	Credits        string `json:"credits"`
	Email          string `json:"email"`
	// RowRef identifies the record-store row the caller reports back to.
	RowRef string `json:"row_ref,omitempty"`
}

// Message is a rendered email for a single recipient.
type Message struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}
