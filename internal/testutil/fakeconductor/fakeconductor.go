// Package fakeconductor is an in-process conductor app interface for tests.
// It speaks the websocket framing over httptest and can also answer request
// bodies on a NATS subject.
package fakeconductor

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	comms "github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/morezero/zomecall/pkg/conductor"
	"github.com/morezero/zomecall/pkg/wire"
)

// ZomeFunc implements one remote function. A non-nil ErrorDetail is sent back
// as the host error; otherwise the result is encoded as the call's output.
type ZomeFunc func(inv *conductor.ZomeCallInvocation) (interface{}, *wire.ErrorDetail)

// Conductor is a scripted conductor.
type Conductor struct {
	srv *httptest.Server

	mu          sync.Mutex
	apps        map[string]*conductor.InstalledAppInfo
	zomes       map[string]ZomeFunc
	requests    []string
	calls       []*conductor.ZomeCallInvocation
	connections int
	signal      []byte
}

// New returns a conductor with no apps installed.
func New() *Conductor {
	return &Conductor{
		apps:  make(map[string]*conductor.InstalledAppInfo),
		zomes: make(map[string]ZomeFunc),
	}
}

// Start serves the websocket interface until Close.
func (c *Conductor) Start() *Conductor {
	upgrader := websocket.Upgrader{}
	c.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		c.mu.Lock()
		c.connections++
		c.mu.Unlock()
		c.serve(ws)
	}))
	return c
}

// Close stops the websocket server.
func (c *Conductor) Close() {
	if c.srv != nil {
		c.srv.Close()
	}
}

// URL returns the ws:// address of the app interface.
func (c *Conductor) URL() string {
	return "ws" + strings.TrimPrefix(c.srv.URL, "http")
}

// InstallApp installs id with the given cells, in order.
func (c *Conductor) InstallApp(id string, cells ...conductor.InstalledCell) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apps[id] = &conductor.InstalledAppInfo{InstalledAppID: id, CellData: cells}
}

// Register implements zome/fn with f.
func (c *Conductor) Register(zome, fn string, f ZomeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zomes[zome+"/"+fn] = f
}

// SignalBeforeResponses makes the conductor push a signal frame ahead of every response.
func (c *Conductor) SignalBeforeResponses(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signal = data
}

// Requests returns the request body types received, in order.
func (c *Conductor) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}

// Calls returns the zome call invocations received, in order.
func (c *Conductor) Calls() []*conductor.ZomeCallInvocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*conductor.ZomeCallInvocation(nil), c.calls...)
}

// Connections returns how many websocket connections were accepted.
func (c *Conductor) Connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connections
}

// ServeNATS answers request bodies published on subject.
func (c *Conductor) ServeNATS(nc *comms.Conn, subject string) (*comms.Subscription, error) {
	return nc.Subscribe(subject, func(msg *comms.Msg) {
		msg.Respond(c.Handle(msg.Data))
	})
}

func (c *Conductor) serve(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg wire.Message
		if err := wire.DecodePayload(data, &msg); err != nil || msg.Type != wire.FrameRequest {
			continue
		}
		c.mu.Lock()
		signal := c.signal
		c.mu.Unlock()
		if signal != nil {
			if err := writeFrame(ws, &wire.Message{Type: wire.FrameSignal, Data: signal}); err != nil {
				return
			}
		}
		if err := writeFrame(ws, &wire.Message{ID: msg.ID, Type: wire.FrameResponse, Data: c.Handle(msg.Data)}); err != nil {
			return
		}
	}
}

func writeFrame(ws *websocket.Conn, msg *wire.Message) error {
	data, err := wire.EncodePayload(msg)
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.BinaryMessage, data)
}

// Handle answers one encoded request body with an encoded response body.
func (c *Conductor) Handle(body []byte) []byte {
	var req struct {
		Type string             `msgpack:"type"`
		Data msgpack.RawMessage `msgpack:"data"`
	}
	if err := wire.DecodePayload(body, &req); err != nil {
		return errorBody("deserialization", err.Error())
	}

	c.mu.Lock()
	c.requests = append(c.requests, req.Type)
	c.mu.Unlock()

	switch req.Type {
	case wire.TypeAppInfo:
		var in conductor.AppInfoRequest
		if err := wire.DecodePayload(req.Data, &in); err != nil {
			return errorBody("deserialization", err.Error())
		}
		c.mu.Lock()
		info := c.apps[in.InstalledAppID]
		c.mu.Unlock()
		if info == nil {
			return encodeBody(wire.TypeAppInfo, nil)
		}
		return encodeBody(wire.TypeAppInfo, info)

	case wire.TypeZomeCall:
		var inv conductor.ZomeCallInvocation
		if err := wire.DecodePayload(req.Data, &inv); err != nil {
			return errorBody("deserialization", err.Error())
		}
		c.mu.Lock()
		c.calls = append(c.calls, &inv)
		f := c.zomes[inv.ZomeName+"/"+inv.FnName]
		c.mu.Unlock()
		if f == nil {
			return errorBody("ribosome_error", fmt.Sprintf("zome function not found: %s/%s", inv.ZomeName, inv.FnName))
		}
		result, detail := f(&inv)
		if detail != nil {
			return encodeBody(wire.TypeError, detail)
		}
		out, err := wire.EncodePayload(result)
		if err != nil {
			return errorBody("internal_error", err.Error())
		}
		return encodeBody(wire.TypeZomeCall, out)

	default:
		return errorBody("deserialization", fmt.Sprintf("unknown request type %q", req.Type))
	}
}

func encodeBody(typ string, data interface{}) []byte {
	body, err := wire.EncodePayload(&wire.Request{Type: typ, Data: data})
	if err != nil {
		panic(err)
	}
	return body
}

func errorBody(typ, message string) []byte {
	return encodeBody(wire.TypeError, &wire.ErrorDetail{Type: typ, Data: message})
}

// TestCell returns a cell whose hashes are filled with seed, for readable fixtures.
func TestCell(nick string, seed byte) conductor.InstalledCell {
	return conductor.InstalledCell{
		CellNick: nick,
		CellID:   conductor.NewCellID(testHash(0x2d, seed), testHash(0x20, seed+1)),
	}
}

func testHash(kind, seed byte) conductor.HoloHash {
	h := make(conductor.HoloHash, 39)
	h[0], h[1], h[2] = 0x84, kind, 0x24
	for i := 3; i < len(h); i++ {
		h[i] = seed
	}
	return h
}
