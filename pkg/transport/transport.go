// Package transport provides the message-framed channel to a conductor:
// one request frame out, one response frame back.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

const logPrefix = "transport:transport"

// ErrClosed is returned for requests on, or outstanding during, a closed connection.
var ErrClosed = errors.New("transport: connection closed")

// DefaultSubject is the NATS subject a conductor bridge answers on.
const DefaultSubject = "holochain.app.v1"

// Conn is an open channel to a conductor.
type Conn interface {
	// Request sends one encoded request body and waits for its response body.
	Request(ctx context.Context, body []byte) ([]byte, error)
	// Close releases the channel and fails outstanding requests with ErrClosed.
	Close() error
}

// Options configures Dial. Zero values use defaults.
type Options struct {
	// Name identifies the client to the server where the transport supports it.
	Name string
	// HandshakeTimeout bounds connection establishment when non-zero.
	HandshakeTimeout time.Duration
	// Subject is the request subject for nats:// addresses.
	Subject string
	// OnSignal receives signal frames pushed by the conductor (websocket only).
	// It runs off the reader goroutine and may call Close.
	OnSignal func(data []byte)
}

// Dial opens a connection to address, choosing the transport by URL scheme.
func Dial(ctx context.Context, address string, opts Options) (Conn, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid address %q: %w", logPrefix, address, err)
	}
	switch u.Scheme {
	case "ws", "wss":
		c, err := DialWebsocket(ctx, address, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "nats", "tls":
		c, err := DialNATS(address, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%s - unsupported scheme %q in %q", logPrefix, u.Scheme, address)
	}
}

// IsClosed reports whether err means the connection was closed.
func IsClosed(err error) bool { return errors.Is(err, ErrClosed) }
