package router

import (
	"fmt"
	"io"
	"strings"

	"notiroute/internal/message"
)

// SendFailure is one failed delivery: which destination, why, and what.
type SendFailure struct {
	DestinationID string
	Err           error
	Message       *message.Message
}

// EscalationStatus summarizes what happened when a failure was escalated.
type EscalationStatus int

const (
	// Reported: at least one Root destination accepted the failure report.
	Reported EscalationStatus = iota + 1
	// NoRootDestinations: there was nothing to escalate to.
	NoRootDestinations
	// EscalationBroken: Root destinations exist but every one of them failed.
	EscalationBroken
)

func (s EscalationStatus) String() string {
	switch s {
	case Reported:
		return "reported"
	case NoRootDestinations:
		return "no_root_destinations"
	case EscalationBroken:
		return "escalation_broken"
	default:
		return "unknown"
	}
}

// ReportedFailure is a SendFailure plus the outcome of its escalation.
type ReportedFailure struct {
	SendFailure

	// Reported is true when at least one Root destination accepted the report.
	Reported bool
	// EscalationFailures lists the Root destinations that also failed.
	EscalationFailures []SendFailure
}

func (f ReportedFailure) Status() EscalationStatus {
	switch {
	case f.Reported:
		return Reported
	case len(f.EscalationFailures) == 0:
		return NoRootDestinations
	default:
		return EscalationBroken
	}
}

// DeliveryReport is returned by Route (as an error) when any delivery failed.
type DeliveryReport struct {
	RouteID    string
	Message    *message.Message
	Successful int
	Failures   []ReportedFailure
}

// Unreported counts failures no Root destination received.
func (r *DeliveryReport) Unreported() int {
	n := 0
	for _, f := range r.Failures {
		if !f.Reported {
			n++
		}
	}
	return n
}

// EscalationBroken reports whether any failure hit Roots that all failed.
func (r *DeliveryReport) EscalationBroken() bool {
	for _, f := range r.Failures {
		if f.Status() == EscalationBroken {
			return true
		}
	}
	return false
}

func (r *DeliveryReport) Error() string {
	total := r.Successful + len(r.Failures)
	s := fmt.Sprintf("delivery failed for %d of %d destinations", len(r.Failures), total)
	if n := r.Unreported(); n > 0 {
		s += fmt.Sprintf(" (%d unreported)", n)
	}
	return s
}

// String renders the full report. Output is a pure function of the report.
func (r *DeliveryReport) String() string {
	var b strings.Builder
	_ = r.Render(&b)
	return b.String()
}

// Render writes the human-readable report: summary counts, then one block
// per failure with its escalation detail.
func (r *DeliveryReport) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.line("-----")
	ew.line("Summary:")
	ew.line("Successfully sent to %d destinations", r.Successful)
	ew.line("Failed to send to %d destinations", len(r.Failures))
	ew.line("Message: %s", r.Message)

	for _, f := range r.Failures {
		ew.line("--")
		ew.line("Failed to send a message to destination %q", f.DestinationID)
		ew.line("Due to error: %s", errString(f.Err))
		switch f.Status() {
		case Reported:
			ew.line("This was reported to at least one destination.")
		case NoRootDestinations:
			ew.line("No error receiving destinations were applicable to send this error to.")
		case EscalationBroken:
			ew.line("Every error receiving destination failed; this error was not reported.")
		}
		if len(f.EscalationFailures) > 0 {
			ew.line("Some error receiving destinations failed to be reported to:")
			for _, ef := range f.EscalationFailures {
				ew.line("   - %q: %s ; Tried to send: %s", ef.DestinationID, errString(ef.Err), ef.Message)
			}
		}
	}
	ew.line("-----")
	return ew.err
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) line(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format+"\n", args...)
}
