package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/morezero/zomecall/pkg/wire"
)

const wsLogPrefix = "transport:websocket"

// WebsocketConn is a Conn over the conductor's websocket app interface.
// Frames are correlated to requests by id; a single reader goroutine
// dispatches responses. Signals are handed to a separate goroutine so a
// handler may call Close.
type WebsocketConn struct {
	ws       *websocket.Conn
	onSignal func([]byte)
	signals  chan []byte

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan []byte
	closed  bool

	done      chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// DialWebsocket connects to a ws:// or wss:// address and starts the reader.
func DialWebsocket(ctx context.Context, address string, opts Options) (*WebsocketConn, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to conductor at %s", wsLogPrefix, address))

	dialer := &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, address, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to conductor: %w", wsLogPrefix, err)
	}

	c := newWebsocketConn(ws, opts.OnSignal)
	if c.signals != nil {
		go c.dispatchSignals()
	}
	go c.readLoop()

	slog.Info(fmt.Sprintf("%s - Connected to conductor at %s", wsLogPrefix, address))
	return c, nil
}

func newWebsocketConn(ws *websocket.Conn, onSignal func([]byte)) *WebsocketConn {
	c := &WebsocketConn{
		ws:       ws,
		onSignal: onSignal,
		pending:  make(map[uint64]chan []byte),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
	if onSignal != nil {
		c.signals = make(chan []byte, 16)
	}
	return c
}

// Request implements Conn. Cancelling ctx closes the connection, so every
// outstanding request resolves with ErrClosed rather than hanging.
func (c *WebsocketConn) Request(ctx context.Context, body []byte) ([]byte, error) {
	ch := make(chan []byte, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	id := c.nextID
	c.nextID++
	c.pending[id] = ch
	c.mu.Unlock()

	frame, err := wire.EncodePayload(&wire.Message{ID: id, Type: wire.FrameRequest, Data: body})
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("%s - failed to encode frame: %w", wsLogPrefix, err)
	}

	c.writeMu.Lock()
	err = c.ws.WriteMessage(websocket.BinaryMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		c.shutdown(err)
		return nil, fmt.Errorf("%s - failed to send request %d: %v: %w", wsLogPrefix, id, err, ErrClosed)
	}
	slog.Debug(fmt.Sprintf("%s - sent request id=%d (%d bytes)", wsLogPrefix, id, len(body)))

	select {
	case data, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return data, nil
	case <-ctx.Done():
		c.Close()
		return nil, fmt.Errorf("%s - request %d abandoned: %v: %w", wsLogPrefix, id, ctx.Err(), ErrClosed)
	}
}

// Close implements Conn. It is safe to call more than once; later calls
// return the result of the first.
func (c *WebsocketConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closing)
		c.markClosed()
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		if err := c.ws.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.closeErr = fmt.Errorf("%s - failed to close connection: %w", wsLogPrefix, err)
		}
		<-c.done
		slog.Info(fmt.Sprintf("%s - Conductor connection closed", wsLogPrefix))
	})
	return c.closeErr
}

func (c *WebsocketConn) readLoop() {
	defer close(c.done)
	if c.signals != nil {
		defer close(c.signals)
	}
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.markClosed()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				slog.Warn(fmt.Sprintf("%s - conductor connection lost: %v", wsLogPrefix, err))
			}
			return
		}

		var msg wire.Message
		if err := wire.DecodePayload(data, &msg); err != nil {
			slog.Warn(fmt.Sprintf("%s - dropping undecodable frame: %v", wsLogPrefix, err))
			continue
		}

		switch msg.Type {
		case wire.FrameResponse:
			c.deliver(msg.ID, msg.Data)
		case wire.FrameSignal:
			if c.signals != nil {
				select {
				case c.signals <- msg.Data:
				case <-c.closing:
				}
			} else {
				slog.Debug(fmt.Sprintf("%s - ignoring signal (%d bytes)", wsLogPrefix, len(msg.Data)))
			}
		default:
			slog.Warn(fmt.Sprintf("%s - dropping frame of unexpected type %q", wsLogPrefix, msg.Type))
		}
	}
}

// dispatchSignals runs the signal handler in arrival order until the reader
// exits.
func (c *WebsocketConn) dispatchSignals() {
	for data := range c.signals {
		c.onSignal(data)
	}
}

func (c *WebsocketConn) deliver(id uint64, data []byte) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		slog.Warn(fmt.Sprintf("%s - response for unknown request id=%d", wsLogPrefix, id))
		return
	}
	ch <- data
}

func (c *WebsocketConn) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// markClosed rejects new requests and fails the outstanding ones.
func (c *WebsocketConn) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *WebsocketConn) shutdown(cause error) {
	slog.Warn(fmt.Sprintf("%s - closing after write failure: %v", wsLogPrefix, cause))
	c.Close()
}
