package events

import (
	"context"
	"errors"
	"testing"
)

func TestNoOpReporter(t *testing.T) {
	rep := &NoOpReporter{}
	err := rep.Report(context.Background(), &OutcomeEvent{
		AppID:    "test-app",
		ZomeName: "squareroots",
		FnName:   "square_root",
		Outcome:  OutcomeSucceeded,
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCallbackReporter(t *testing.T) {
	var captured *OutcomeEvent

	rep := NewCallbackReporter(func(_ context.Context, event *OutcomeEvent) error {
		captured = event
		return nil
	})

	event := &OutcomeEvent{
		AttemptID: "attempt-1",
		AppID:     "test-app",
		ZomeName:  "pcrtests",
		FnName:    "book_pcrtest",
		Outcome:   OutcomeFailed,
		ErrorKind: "invocation_error",
		States:    []string{"unconnected", "connecting", "connected", "failed", "closed"},
	}

	if err := rep.Report(context.Background(), event); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if captured == nil {
		t.Fatal("expected callback to be called")
	}
	if captured.FnName != "book_pcrtest" {
		t.Errorf("expected fn book_pcrtest, got %s", captured.FnName)
	}
	if captured.Succeeded() {
		t.Error("expected failed outcome")
	}
}

func TestLogReporter(t *testing.T) {
	rep := &LogReporter{}
	for _, outcome := range []string{OutcomeSucceeded, OutcomeFailed} {
		if err := rep.Report(context.Background(), &OutcomeEvent{Outcome: outcome, TeardownError: "x"}); err != nil {
			t.Errorf("events:reporter_test - LogReporter(%s) returned %v", outcome, err)
		}
	}
}

func TestMultiReporter_CallsAllAndJoinsErrors(t *testing.T) {
	var calls int
	boom := errors.New("boom")
	multi := MultiReporter{
		NewCallbackReporter(func(context.Context, *OutcomeEvent) error { calls++; return boom }),
		nil,
		NewCallbackReporter(func(context.Context, *OutcomeEvent) error { calls++; return nil }),
	}

	err := multi.Report(context.Background(), &OutcomeEvent{})
	if calls != 2 {
		t.Errorf("events:reporter_test - expected 2 reporter calls, got %d", calls)
	}
	if !errors.Is(err, boom) {
		t.Errorf("events:reporter_test - expected joined boom error, got %v", err)
	}
}
