package router

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"notiroute/internal/message"
)

// ReportAuthor is the author part stamped on synthesized failure reports.
const ReportAuthor = "notiroute"

// escalate sends one failure report per failure to every Root destination.
// Failures of the reports themselves are recorded on the ReportedFailure
// and are not escalated again.
func (r *Router) escalate(ctx context.Context, routeID string, failures []SendFailure) []ReportedFailure {
	ctx, span := r.tracer.Start(ctx, "router.escalate", trace.WithAttributes(
		attribute.Int("escalate.failures", len(failures)),
	))
	defer span.End()

	roots := r.registry.roots()
	out := make([]ReportedFailure, 0, len(failures))
	for _, f := range failures {
		rf := ReportedFailure{SendFailure: f}
		report := FailureReportMessage(f)
		for _, o := range r.dispatch(ctx, routeID, PassEscalation, roots, report) {
			if o.err == nil {
				rf.Reported = true
				continue
			}
			rf.EscalationFailures = append(rf.EscalationFailures, SendFailure{
				DestinationID: o.dest.ID,
				Err:           o.err,
				Message:       report,
			})
		}
		out = append(out, rf)
	}
	return out
}

// FailureReportMessage builds the SelfError message describing f.
// The timestamp is copied from the failed message so the report stays
// correlated with the event that caused it.
func FailureReportMessage(f SendFailure) *message.Message {
	errText := "<nil>"
	if f.Err != nil {
		errText = f.Err.Error()
	}
	raw := fmt.Sprintf("notiroute failed to send a message %s to destination id '%s'. Error: '%s'. "+
		"A notification has been sent here because this is configured as a root destination.",
		f.Message, f.DestinationID, errText)

	detail := message.NewDetailBuilder().
		Raw(raw).
		Text(message.Plain("notiroute failed to deliver a notification.")).
		Section("Destination", message.Styled(f.DestinationID, message.Style{Kind: message.Monospace})).
		Section("Error", message.Plain(errText)).
		Section("Original message", message.Plain(f.Message.String())).
		Build()

	var ts int64
	if f.Message != nil {
		ts = f.Message.UnixMillis
	}
	return &message.Message{
		Level:      message.SelfError,
		Title:      "Failed to send notification to destination " + f.DestinationID,
		Detail:     detail,
		Author:     message.ParseAuthor(ReportAuthor),
		UnixMillis: ts,
	}
}
