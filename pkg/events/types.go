// Package events defines the invocation outcome event and the reporters that
// deliver it: log, callback, NATS and Prometheus.
package events

import "time"

// Outcome values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// OutcomeEvent is emitted exactly once per invocation attempt.
type OutcomeEvent struct {
	AttemptID     string      `json:"attemptId"`
	AppID         string      `json:"appId"`
	ZomeName      string      `json:"zomeName"`
	FnName        string      `json:"fnName"`
	CellID        string      `json:"cellId,omitempty"`
	Outcome       string      `json:"outcome"`
	ErrorKind     string      `json:"errorKind,omitempty"`
	Error         string      `json:"error,omitempty"`
	HostErrorType string      `json:"hostErrorType,omitempty"`
	Result        interface{} `json:"result,omitempty"`
	TeardownError string      `json:"teardownError,omitempty"`
	States        []string    `json:"states"`
	DurationMs    int64       `json:"durationMs"`
	// Duration is the exact wall time; DurationMs is its wire rendering.
	Duration  time.Duration `json:"-"`
	Timestamp string        `json:"timestamp"`
}

// Succeeded reports whether the attempt produced a result.
func (e *OutcomeEvent) Succeeded() bool {
	return e.Outcome == OutcomeSucceeded
}
