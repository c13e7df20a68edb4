package appclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/zomecall/pkg/conductor"
	"github.com/morezero/zomecall/pkg/events"
	"github.com/morezero/zomecall/pkg/transport"
)

const invokeLogPrefix = "appclient:invoke"

// Target names the remote function of one call site.
type Target struct {
	AppID    string
	ZomeName string
	FnName   string
	// CapSecret restricts the call to a granted capability; nil means unrestricted.
	CapSecret conductor.CapSecret
}

// ConnectFunc opens the connection for one attempt.
type ConnectFunc func(ctx context.Context) (*Client, error)

// Dialer returns a ConnectFunc dialing address with opts.
func Dialer(address string, opts transport.Options) ConnectFunc {
	return func(ctx context.Context) (*Client, error) {
		return Connect(ctx, address, opts)
	}
}

// Invoke performs one complete attempt: connect, resolve the app's first
// cell, call target with in, close. After a successful connect the client is
// closed exactly once on every path, including a panic, which is re-raised
// after teardown. A teardown failure is logged and reported but never
// replaces the attempt's result. The outcome goes to reporter exactly once.
func Invoke[In, Out any](ctx context.Context, connect ConnectFunc, target Target, in In, reporter events.Reporter) (out Out, err error) {
	att := newAttempt(target)

	att.enter(StateConnecting)
	client, err := connect(ctx)
	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			err = newError(KindConnection, "cannot connect", err)
		}
		att.enter(StateFailed)
		att.enter(StateClosed)
		att.report(ctx, reporter, nil, err)
		return out, err
	}
	att.enter(StateConnected)

	defer func() {
		fault := recover()
		if fault != nil {
			err = newError(KindInvocation, fmt.Sprintf("unexpected fault: %v", fault), nil)
			att.enter(StateFailed)
		}
		if cerr := client.Close(); cerr != nil {
			slog.Warn(fmt.Sprintf("%s - teardown failed for attempt %s: %v", invokeLogPrefix, att.id, cerr))
			att.teardownErr = cerr
		}
		att.enter(StateClosed)
		var result interface{}
		if err == nil {
			result = out
		}
		att.report(ctx, reporter, result, err)
		if fault != nil {
			panic(fault)
		}
	}()

	cell, err := client.ResolveCell(ctx, target.AppID)
	if err != nil {
		att.enter(StateFailed)
		return out, err
	}
	att.cell = cell
	att.enter(StateContextResolved)

	att.enter(StateInvoking)
	out, err = Call[In, Out](ctx, client, cell, target, in)
	if err != nil {
		att.enter(StateFailed)
		return out, err
	}
	att.enter(StateSucceeded)
	return out, nil
}

// attempt records one invocation attempt for its outcome event.
type attempt struct {
	id          string
	target      Target
	started     time.Time
	states      []State
	cell        conductor.CellID
	teardownErr error
}

func newAttempt(target Target) *attempt {
	return &attempt{
		id:      uuid.NewString(),
		target:  target,
		started: time.Now(),
		states:  []State{StateUnconnected},
	}
}

func (a *attempt) enter(s State) {
	if cur := a.states[len(a.states)-1]; cur.Terminal() {
		slog.Warn(fmt.Sprintf("%s - attempt %s: ignoring %s after %s", invokeLogPrefix, a.id, s, cur))
		return
	}
	slog.Debug(fmt.Sprintf("%s - attempt %s: %s -> %s", invokeLogPrefix, a.id, a.states[len(a.states)-1], s))
	a.states = append(a.states, s)
}

func (a *attempt) event(result interface{}, err error) *events.OutcomeEvent {
	elapsed := time.Since(a.started)
	ev := &events.OutcomeEvent{
		AttemptID:  a.id,
		AppID:      a.target.AppID,
		ZomeName:   a.target.ZomeName,
		FnName:     a.target.FnName,
		Outcome:    events.OutcomeSucceeded,
		Result:     result,
		DurationMs: elapsed.Milliseconds(),
		Duration:   elapsed,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if !a.cell.IsZero() {
		ev.CellID = a.cell.String()
	}
	for _, s := range a.states {
		ev.States = append(ev.States, string(s))
	}
	if err != nil {
		ev.Outcome = events.OutcomeFailed
		ev.Error = err.Error()
		var e *Error
		if errors.As(err, &e) {
			ev.ErrorKind = string(e.Kind)
			ev.HostErrorType = e.HostType
		}
	}
	if a.teardownErr != nil {
		ev.TeardownError = a.teardownErr.Error()
	}
	return ev
}

func (a *attempt) report(ctx context.Context, reporter events.Reporter, result interface{}, err error) {
	if reporter == nil {
		return
	}
	if rerr := reporter.Report(ctx, a.event(result, err)); rerr != nil {
		slog.Warn(fmt.Sprintf("%s - failed to report outcome of attempt %s: %v", invokeLogPrefix, a.id, rerr))
	}
}
