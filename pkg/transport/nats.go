package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"
)

const natsLogPrefix = "transport:nats"

// NATSConn is a Conn to a conductor bridge over NATS request/reply. Each
// request body is published on the subject; the reply carries the response body.
type NATSConn struct {
	nc      *comms.Conn
	subject string
}

// DialNATS connects to a NATS server at url. Reconnects are disabled: a lost
// connection fails the invocation instead of retrying it.
func DialNATS(url string, opts Options) (*NATSConn, error) {
	name := opts.Name
	if name == "" {
		name = "zomecall"
	}
	subject := opts.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	slog.Info(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", natsLogPrefix, url, name))

	natsOpts := []comms.Option{
		comms.Name(name),
		comms.NoReconnect(),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			if err != nil {
				slog.Warn(fmt.Sprintf("%s - COMMS disconnected: %v", natsLogPrefix, err))
			}
		}),
		comms.ClosedHandler(func(_ *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS connection closed", natsLogPrefix))
		}),
	}
	if opts.HandshakeTimeout > 0 {
		natsOpts = append(natsOpts, comms.Timeout(opts.HandshakeTimeout))
	}

	nc, err := comms.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", natsLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s, conductor subject %s", natsLogPrefix, nc.ConnectedUrl(), subject))
	return &NATSConn{nc: nc, subject: subject}, nil
}

// Subject returns the subject requests are sent on.
func (c *NATSConn) Subject() string { return c.subject }

// Request implements Conn.
func (c *NATSConn) Request(ctx context.Context, body []byte) ([]byte, error) {
	if c.nc.IsClosed() {
		return nil, ErrClosed
	}
	msg, err := c.nc.RequestWithContext(ctx, c.subject, body)
	if err != nil {
		if ctx.Err() != nil {
			c.nc.Close()
		}
		return nil, mapNATS(err)
	}
	return msg.Data, nil
}

// Close implements Conn.
func (c *NATSConn) Close() error {
	if c.nc.IsClosed() {
		return nil
	}
	c.nc.Close()
	return nil
}

func mapNATS(err error) error {
	switch {
	case errors.Is(err, comms.ErrConnectionClosed), errors.Is(err, comms.ErrConnectionDraining):
		return fmt.Errorf("%s - %v: %w", natsLogPrefix, err, ErrClosed)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s - request abandoned: %v: %w", natsLogPrefix, err, ErrClosed)
	default:
		return fmt.Errorf("%s - request failed: %w", natsLogPrefix, err)
	}
}
