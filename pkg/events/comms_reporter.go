package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"
)

const commsReporterLogPrefix = "events:comms_reporter"

// CommsReporterOpts configures CommsReporter. Nil or zero values use defaults.
type CommsReporterOpts struct {
	// GlobalSubject overrides the global outcome subject (e.g. from OUTCOME_SUBJECT).
	GlobalSubject string
}

// CommsReporter publishes outcome events to COMMS subjects.
type CommsReporter struct {
	nc            *comms.Conn
	globalSubject string
}

// NewCommsReporter creates a new CommsReporter. Pass nil for opts to use defaults.
func NewCommsReporter(nc *comms.Conn, opts *CommsReporterOpts) *CommsReporter {
	globalSubject := SubjectOutcome
	if opts != nil && opts.GlobalSubject != "" {
		globalSubject = opts.GlobalSubject
	}
	return &CommsReporter{nc: nc, globalSubject: globalSubject}
}

// Report publishes the event to both the granular and the global outcome subject.
func (r *CommsReporter) Report(_ context.Context, event *OutcomeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsReporterLogPrefix, err)
	}

	granularSubject := BuildOutcomeSubject(event.AppID, event.ZomeName, event.FnName)
	if err := r.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsReporterLogPrefix, granularSubject, err))
		return err
	}

	if err := r.nc.Publish(r.globalSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsReporterLogPrefix, r.globalSubject, err))
		return err
	}

	if err := r.nc.Flush(); err != nil {
		return fmt.Errorf("%s - failed to flush: %w", commsReporterLogPrefix, err)
	}

	slog.Debug(fmt.Sprintf("%s - Published outcome %s for %s/%s", commsReporterLogPrefix, event.Outcome, event.ZomeName, event.FnName))
	return nil
}
