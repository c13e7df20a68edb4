package appclient

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/morezero/zomecall/internal/testutil/fakeconductor"
	"github.com/morezero/zomecall/pkg/conductor"
	"github.com/morezero/zomecall/pkg/events"
	"github.com/morezero/zomecall/pkg/wire"
)

const invokeTestPrefix = "appclient:invoke_test"

func TestInvoke_SquareRoot(t *testing.T) {
	host := newSquareRootHost()
	conn := &memConn{host: host}
	rec := &recorder{}

	out, err := Invoke[squareRootInput, squareRootOutput](context.Background(), connectTo(conn), squareRootTarget, squareRootInput{Number: 7}, rec.reporter())
	if err != nil {
		t.Fatalf("%s - Invoke: %v", invokeTestPrefix, err)
	}
	if out.SquareRoot != 2.6457513110645907 {
		t.Errorf("%s - expected 2.6457513110645907, got %v", invokeTestPrefix, out.SquareRoot)
	}
	if conn.Closes() != 1 {
		t.Errorf("%s - expected one close, got %d", invokeTestPrefix, conn.Closes())
	}
	wantRequests := []string{wire.TypeAppInfo, wire.TypeZomeCall}
	if got := host.Requests(); !reflect.DeepEqual(got, wantRequests) {
		t.Errorf("%s - expected requests %v, got %v", invokeTestPrefix, wantRequests, got)
	}

	evs := rec.all()
	if len(evs) != 1 {
		t.Fatalf("%s - expected one outcome, got %d", invokeTestPrefix, len(evs))
	}
	ev := evs[0]
	if !ev.Succeeded() || ev.ErrorKind != "" {
		t.Errorf("%s - expected success outcome, got %+v", invokeTestPrefix, ev)
	}
	wantStates := []string{"unconnected", "connecting", "connected", "context_resolved", "invoking", "succeeded", "closed"}
	if !reflect.DeepEqual(ev.States, wantStates) {
		t.Errorf("%s - expected states %v, got %v", invokeTestPrefix, wantStates, ev.States)
	}
	if ev.CellID != fakeconductor.TestCell("squareroots", 1).CellID.String() {
		t.Errorf("%s - unexpected cell %s", invokeTestPrefix, ev.CellID)
	}
	if ev.AttemptID == "" {
		t.Errorf("%s - expected an attempt id", invokeTestPrefix)
	}
}

func TestInvoke_DynamicPayload(t *testing.T) {
	host := newSquareRootHost()
	conn := &memConn{host: host}

	in, err := wire.ParseJSONPayload(`{"number":7}`)
	if err != nil {
		t.Fatalf("%s - ParseJSONPayload: %v", invokeTestPrefix, err)
	}
	out, err := Invoke[any, map[string]interface{}](context.Background(), connectTo(conn), squareRootTarget, in, nil)
	if err != nil {
		t.Fatalf("%s - Invoke: %v", invokeTestPrefix, err)
	}
	if out["square_root"] != 2.6457513110645907 {
		t.Errorf("%s - unexpected result %v", invokeTestPrefix, out)
	}
}

func TestInvoke_OtherFunction(t *testing.T) {
	type patientInfo struct {
		PatientInfo string `msgpack:"patientinfo"`
	}
	host := fakeconductor.New()
	host.InstallApp("test-app", fakeconductor.TestCell("pcrtests", 3))
	host.Register("pcrtests", "book_pcrtest", func(inv *conductor.ZomeCallInvocation) (interface{}, *wire.ErrorDetail) {
		var in patientInfo
		if err := wire.DecodePayload(inv.Payload, &in); err != nil {
			return nil, &wire.ErrorDetail{Type: "deserialization", Data: err.Error()}
		}
		return "booked " + in.PatientInfo, nil
	})
	conn := &memConn{host: host}

	target := Target{AppID: "test-app", ZomeName: "pcrtests", FnName: "book_pcrtest"}
	out, err := Invoke[patientInfo, string](context.Background(), connectTo(conn), target, patientInfo{PatientInfo: "ab"}, nil)
	if err != nil {
		t.Fatalf("%s - Invoke: %v", invokeTestPrefix, err)
	}
	if out != "booked ab" {
		t.Errorf("%s - unexpected result %q", invokeTestPrefix, out)
	}
	if conn.Closes() != 1 {
		t.Errorf("%s - expected one close, got %d", invokeTestPrefix, conn.Closes())
	}
}

func TestInvoke_ConnectFailure(t *testing.T) {
	rec := &recorder{}
	dialErr := errors.New("connection refused")
	connect := func(context.Context) (*Client, error) { return nil, dialErr }

	_, err := Invoke[squareRootInput, squareRootOutput](context.Background(), connect, squareRootTarget, squareRootInput{Number: 7}, rec.reporter())
	if KindOf(err) != KindConnection {
		t.Fatalf("%s - expected connection_error, got %v", invokeTestPrefix, err)
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("%s - expected cause to be preserved", invokeTestPrefix)
	}

	evs := rec.all()
	if len(evs) != 1 {
		t.Fatalf("%s - expected one outcome, got %d", invokeTestPrefix, len(evs))
	}
	want := []string{"unconnected", "connecting", "failed", "closed"}
	if !reflect.DeepEqual(evs[0].States, want) {
		t.Errorf("%s - expected states %v, got %v", invokeTestPrefix, want, evs[0].States)
	}
	if evs[0].ErrorKind != string(KindConnection) {
		t.Errorf("%s - expected kind %s, got %s", invokeTestPrefix, KindConnection, evs[0].ErrorKind)
	}
}

func TestInvoke_NoContextFound(t *testing.T) {
	for _, app := range []string{"empty-app", "missing-app"} {
		t.Run(app, func(t *testing.T) {
			host := newSquareRootHost()
			host.InstallApp("empty-app")
			conn := &memConn{host: host}
			rec := &recorder{}

			target := squareRootTarget
			target.AppID = app
			_, err := Invoke[squareRootInput, squareRootOutput](context.Background(), connectTo(conn), target, squareRootInput{Number: 7}, rec.reporter())
			if KindOf(err) != KindNoContextFound {
				t.Fatalf("%s - expected no_context_found, got %v", invokeTestPrefix, err)
			}
			if n := len(host.Calls()); n != 0 {
				t.Errorf("%s - expected no zome call, got %d", invokeTestPrefix, n)
			}
			if conn.Closes() != 1 {
				t.Errorf("%s - expected one close, got %d", invokeTestPrefix, conn.Closes())
			}
			want := []string{"unconnected", "connecting", "connected", "failed", "closed"}
			if got := rec.all()[0].States; !reflect.DeepEqual(got, want) {
				t.Errorf("%s - expected states %v, got %v", invokeTestPrefix, want, got)
			}
		})
	}
}

func TestInvoke_HostError(t *testing.T) {
	host := newSquareRootHost()
	host.Register("squareroots", "square_root", func(*conductor.ZomeCallInvocation) (interface{}, *wire.ErrorDetail) {
		return nil, &wire.ErrorDetail{Type: "ribosome_error", Data: "negative input"}
	})
	conn := &memConn{host: host}
	rec := &recorder{}

	_, err := Invoke[squareRootInput, squareRootOutput](context.Background(), connectTo(conn), squareRootTarget, squareRootInput{Number: -1}, rec.reporter())
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("%s - expected *Error, got %v", invokeTestPrefix, err)
	}
	if e.Kind != KindInvocation || e.HostType != "ribosome_error" || !strings.Contains(e.Message, "negative input") {
		t.Errorf("%s - unexpected error %+v", invokeTestPrefix, e)
	}
	if conn.Closes() != 1 {
		t.Errorf("%s - expected one close, got %d", invokeTestPrefix, conn.Closes())
	}
	ev := rec.all()[0]
	if ev.Succeeded() || ev.HostErrorType != "ribosome_error" {
		t.Errorf("%s - unexpected outcome %+v", invokeTestPrefix, ev)
	}
}

func TestInvoke_UnknownFunction(t *testing.T) {
	conn := &memConn{host: newSquareRootHost()}
	target := squareRootTarget
	target.FnName = "cube_root"

	_, err := Invoke[squareRootInput, squareRootOutput](context.Background(), connectTo(conn), target, squareRootInput{Number: 7}, nil)
	if KindOf(err) != KindInvocation {
		t.Errorf("%s - expected invocation_error, got %v", invokeTestPrefix, err)
	}
	if conn.Closes() != 1 {
		t.Errorf("%s - expected one close, got %d", invokeTestPrefix, conn.Closes())
	}
}

func TestInvoke_TeardownErrorKeepsResult(t *testing.T) {
	conn := &memConn{host: newSquareRootHost(), closeErr: errors.New("socket already gone")}
	rec := &recorder{}

	out, err := Invoke[squareRootInput, squareRootOutput](context.Background(), connectTo(conn), squareRootTarget, squareRootInput{Number: 7}, rec.reporter())
	if err != nil {
		t.Fatalf("%s - expected success despite teardown error, got %v", invokeTestPrefix, err)
	}
	if out.SquareRoot != 2.6457513110645907 {
		t.Errorf("%s - unexpected result %v", invokeTestPrefix, out)
	}
	ev := rec.all()[0]
	if !ev.Succeeded() || !strings.Contains(ev.TeardownError, "socket already gone") {
		t.Errorf("%s - expected teardown error in outcome, got %+v", invokeTestPrefix, ev)
	}
}

func TestInvoke_TeardownErrorDoesNotMaskFailure(t *testing.T) {
	host := newSquareRootHost()
	host.InstallApp("empty-app")
	conn := &memConn{host: host, closeErr: errors.New("socket already gone")}

	target := squareRootTarget
	target.AppID = "empty-app"
	_, err := Invoke[squareRootInput, squareRootOutput](context.Background(), connectTo(conn), target, squareRootInput{Number: 7}, nil)
	if KindOf(err) != KindNoContextFound {
		t.Errorf("%s - expected the original no_context_found, got %v", invokeTestPrefix, err)
	}
}

func TestInvoke_PanicStillCloses(t *testing.T) {
	host := newSquareRootHost()
	host.Register("squareroots", "square_root", func(*conductor.ZomeCallInvocation) (interface{}, *wire.ErrorDetail) {
		panic("handler blew up")
	})
	conn := &memConn{host: host}
	rec := &recorder{}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("%s - expected the panic to be re-raised", invokeTestPrefix)
			}
		}()
		_, _ = Invoke[squareRootInput, squareRootOutput](context.Background(), connectTo(conn), squareRootTarget, squareRootInput{Number: 7}, rec.reporter())
	}()

	if conn.Closes() != 1 {
		t.Errorf("%s - expected one close, got %d", invokeTestPrefix, conn.Closes())
	}
	evs := rec.all()
	if len(evs) != 1 {
		t.Fatalf("%s - expected one outcome, got %d", invokeTestPrefix, len(evs))
	}
	if evs[0].ErrorKind != string(KindInvocation) || !strings.Contains(evs[0].Error, "handler blew up") {
		t.Errorf("%s - unexpected outcome %+v", invokeTestPrefix, evs[0])
	}
}

func TestInvoke_ReporterErrorIsIgnored(t *testing.T) {
	conn := &memConn{host: newSquareRootHost()}
	failing := events.NewCallbackReporter(func(context.Context, *events.OutcomeEvent) error {
		return errors.New("broker down")
	})

	if _, err := Invoke[squareRootInput, squareRootOutput](context.Background(), connectTo(conn), squareRootTarget, squareRootInput{Number: 7}, failing); err != nil {
		t.Errorf("%s - reporter failure must not fail the attempt: %v", invokeTestPrefix, err)
	}
}

func TestAttempt_NoTransitionLeavesClosed(t *testing.T) {
	att := newAttempt(squareRootTarget)
	att.enter(StateConnecting)
	att.enter(StateFailed)
	att.enter(StateClosed)
	att.enter(StateSucceeded)
	att.enter(StateClosed)

	want := []State{StateUnconnected, StateConnecting, StateFailed, StateClosed}
	if !reflect.DeepEqual(att.states, want) {
		t.Errorf("%s - expected states %v, got %v", invokeTestPrefix, want, att.states)
	}
	if ev := att.event(nil, nil); ev.Duration < 0 || ev.DurationMs != ev.Duration.Milliseconds() {
		t.Errorf("%s - unexpected duration %v (%dms)", invokeTestPrefix, ev.Duration, ev.DurationMs)
	}
}
