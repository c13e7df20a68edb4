package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const logPrefix = "events:reporter"

// Reporter delivers invocation outcomes.
type Reporter interface {
	Report(ctx context.Context, event *OutcomeEvent) error
}

// NoOpReporter is a Reporter that does nothing.
type NoOpReporter struct{}

// Report is a no-op.
func (r *NoOpReporter) Report(_ context.Context, _ *OutcomeEvent) error {
	return nil
}

// CallbackReporter is a Reporter that calls a callback function (for testing).
type CallbackReporter struct {
	callback func(ctx context.Context, event *OutcomeEvent) error
}

// NewCallbackReporter creates a new CallbackReporter.
func NewCallbackReporter(cb func(ctx context.Context, event *OutcomeEvent) error) *CallbackReporter {
	return &CallbackReporter{callback: cb}
}

// Report calls the callback.
func (r *CallbackReporter) Report(ctx context.Context, event *OutcomeEvent) error {
	return r.callback(ctx, event)
}

// LogReporter writes each outcome as one structured log record.
type LogReporter struct{}

// Report logs the outcome at info level, or error level when the attempt failed.
func (r *LogReporter) Report(_ context.Context, event *OutcomeEvent) error {
	attrs := []any{
		"attempt", event.AttemptID,
		"app", event.AppID,
		"zome", event.ZomeName,
		"fn", event.FnName,
		"durationMs", event.DurationMs,
	}
	if event.CellID != "" {
		attrs = append(attrs, "cell", event.CellID)
	}
	if event.TeardownError != "" {
		attrs = append(attrs, "teardownError", event.TeardownError)
	}
	if event.Succeeded() {
		slog.Info(fmt.Sprintf("%s - %s/%s succeeded", logPrefix, event.ZomeName, event.FnName), attrs...)
		return nil
	}
	attrs = append(attrs, "kind", event.ErrorKind)
	slog.Error(fmt.Sprintf("%s - %s/%s failed: %s", logPrefix, event.ZomeName, event.FnName, event.Error), attrs...)
	return nil
}

// MultiReporter fans an outcome out to several reporters. Every reporter is
// called; their errors are joined.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(ctx context.Context, event *OutcomeEvent) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
