package appclient

// State is a step of an invocation attempt.
type State string

// Invocation attempt states, in the order an attempt moves through them.
const (
	StateUnconnected     State = "unconnected"
	StateConnecting      State = "connecting"
	StateConnected       State = "connected"
	StateContextResolved State = "context_resolved"
	StateInvoking        State = "invoking"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
	StateClosed          State = "closed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateClosed }
