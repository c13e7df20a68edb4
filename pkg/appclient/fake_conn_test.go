package appclient

import (
	"context"
	"sync"

	"github.com/morezero/zomecall/internal/testutil/fakeconductor"
	"github.com/morezero/zomecall/pkg/conductor"
	"github.com/morezero/zomecall/pkg/events"
	"github.com/morezero/zomecall/pkg/wire"
)

// memConn is an in-memory transport.Conn answering from a fake conductor.
type memConn struct {
	host *fakeconductor.Conductor

	mu         sync.Mutex
	closes     int
	closeErr   error
	requestErr error
}

func (c *memConn) Request(_ context.Context, body []byte) ([]byte, error) {
	c.mu.Lock()
	err := c.requestErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.host.Handle(body), nil
}

func (c *memConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return c.closeErr
}

func (c *memConn) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type squareRootInput struct {
	Number int `msgpack:"number"`
}

type squareRootOutput struct {
	SquareRoot float64 `msgpack:"square_root"`
}

var squareRootTarget = Target{AppID: "test-app", ZomeName: "squareroots", FnName: "square_root"}

// newSquareRootHost installs test-app with two cells and the square_root function.
func newSquareRootHost() *fakeconductor.Conductor {
	host := fakeconductor.New()
	host.InstallApp("test-app", fakeconductor.TestCell("squareroots", 1), fakeconductor.TestCell("other", 9))
	host.Register("squareroots", "square_root", func(inv *conductor.ZomeCallInvocation) (interface{}, *wire.ErrorDetail) {
		var in squareRootInput
		if err := wire.DecodePayload(inv.Payload, &in); err != nil {
			return nil, &wire.ErrorDetail{Type: "deserialization", Data: err.Error()}
		}
		if in.Number == 7 {
			return map[string]interface{}{"square_root": 2.6457513110645907}, nil
		}
		return map[string]interface{}{"square_root": float64(in.Number)}, nil
	})
	return host
}

// connectTo returns a ConnectFunc handing out conn.
func connectTo(conn *memConn) ConnectFunc {
	return func(context.Context) (*Client, error) {
		return NewClient(conn), nil
	}
}

// recorder collects reported outcomes.
type recorder struct {
	mu     sync.Mutex
	events []*events.OutcomeEvent
}

func (r *recorder) reporter() events.Reporter {
	return events.NewCallbackReporter(func(_ context.Context, ev *events.OutcomeEvent) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
		return nil
	})
}

func (r *recorder) all() []*events.OutcomeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.OutcomeEvent(nil), r.events...)
}
