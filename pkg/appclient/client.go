// Package appclient performs remote zome calls against a conductor: connect,
// resolve the app's cell, call one zome function, close.
package appclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/morezero/zomecall/pkg/conductor"
	"github.com/morezero/zomecall/pkg/transport"
	"github.com/morezero/zomecall/pkg/wire"
)

const logPrefix = "appclient:client"

// Client owns one conductor connection. It is not reusable after Close.
type Client struct {
	conn   transport.Conn
	closed atomic.Bool
}

// NewClient wraps an open transport connection.
func NewClient(conn transport.Conn) *Client {
	return &Client{conn: conn}
}

// Connect dials the conductor at address.
func Connect(ctx context.Context, address string, opts transport.Options) (*Client, error) {
	conn, err := transport.Dial(ctx, address, opts)
	if err != nil {
		return nil, newError(KindConnection, fmt.Sprintf("cannot connect to %s", address), err)
	}
	return NewClient(conn), nil
}

// AppInfo fetches the descriptor of an installed app. A nil descriptor with a
// nil error means the host knows no such app.
func (c *Client) AppInfo(ctx context.Context, appID string) (*conductor.InstalledAppInfo, error) {
	resp, err := c.request(ctx, KindResolution, wire.TypeAppInfo, &conductor.AppInfoRequest{InstalledAppID: appID})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(KindResolution, resp)
	}
	if resp.Type != wire.TypeAppInfo {
		return nil, newError(KindResolution, fmt.Sprintf("unexpected response type %q to app_info", resp.Type), nil)
	}
	if wire.IsNil(resp.Data) {
		return nil, nil
	}
	var info conductor.InstalledAppInfo
	if err := wire.DecodePayload(resp.Data, &info); err != nil {
		return nil, newError(KindSerialization, "cannot decode app info", err)
	}
	return &info, nil
}

// ResolveCell returns the first cell of the app. An absent app or an empty
// cell sequence is a no_context_found error.
func (c *Client) ResolveCell(ctx context.Context, appID string) (conductor.CellID, error) {
	info, err := c.AppInfo(ctx, appID)
	if err != nil {
		return conductor.CellID{}, err
	}
	cell, ok := info.FirstCell()
	if !ok || cell.CellID.IsZero() {
		return conductor.CellID{}, newError(KindNoContextFound, fmt.Sprintf("no cell found for app %q", appID), nil)
	}
	slog.Debug(fmt.Sprintf("%s - resolved app %s to cell %s (%s)", logPrefix, appID, cell.CellID, cell.CellNick))
	return cell.CellID, nil
}

// CallZome sends one zome call and returns the still-encoded result.
func (c *Client) CallZome(ctx context.Context, inv *conductor.ZomeCallInvocation) ([]byte, error) {
	resp, err := c.request(ctx, KindInvocation, wire.TypeZomeCall, inv)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(KindInvocation, resp)
	}
	if resp.Type != wire.TypeZomeCall {
		return nil, newError(KindInvocation, fmt.Sprintf("unexpected response type %q to zome call", resp.Type), nil)
	}
	if wire.IsNil(resp.Data) {
		return resp.Data, nil
	}
	var result []byte
	if err := wire.DecodePayload(resp.Data, &result); err != nil {
		return nil, newError(KindSerialization, "cannot decode zome call result", err)
	}
	return result, nil
}

// Call invokes target's zome function in cell with input in and decodes the
// result as Out. The call is attributed to the agent of cell.
func Call[In, Out any](ctx context.Context, c *Client, cell conductor.CellID, target Target, in In) (Out, error) {
	var out Out
	if target.ZomeName == "" || target.FnName == "" {
		return out, newError(KindInvocation, "zome and function names are required", nil)
	}
	if cell.IsZero() {
		return out, newError(KindNoContextFound, "call target has no cell", nil)
	}

	payload, err := wire.EncodePayload(in)
	if err != nil {
		return out, newError(KindSerialization, "cannot encode payload", err)
	}

	inv := conductor.NewZomeCall(cell, target.ZomeName, target.FnName, target.CapSecret, payload)
	slog.Debug(fmt.Sprintf("%s - calling %s/%s on %s", logPrefix, inv.ZomeName, inv.FnName, cell))

	raw, err := c.CallZome(ctx, inv)
	if err != nil {
		return out, err
	}
	if err := wire.DecodePayload(raw, &out); err != nil {
		return out, newError(KindSerialization, fmt.Sprintf("result of %s/%s does not match the expected shape", target.ZomeName, target.FnName), err)
	}
	return out, nil
}

// Close releases the connection. Only the first call reaches the transport.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return newError(KindTeardown, "close called more than once", ErrAlreadyClosed)
	}
	if err := c.conn.Close(); err != nil {
		return newError(KindTeardown, "cannot close connection", err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, kind Kind, typ string, data interface{}) (*wire.Response, error) {
	if c.closed.Load() {
		return nil, newError(KindConnectionClosed, fmt.Sprintf("%s on closed client", typ), transport.ErrClosed)
	}
	body, err := wire.EncodeRequest(typ, data)
	if err != nil {
		return nil, newError(KindSerialization, fmt.Sprintf("cannot encode %s request", typ), err)
	}
	raw, err := c.conn.Request(ctx, body)
	if err != nil {
		return nil, requestError(kind, typ, err)
	}
	resp, err := wire.DecodeResponse(raw)
	if err != nil {
		return nil, newError(KindSerialization, fmt.Sprintf("cannot decode %s response", typ), err)
	}
	return resp, nil
}

func responseError(kind Kind, resp *wire.Response) error {
	detail, err := resp.ErrorDetail()
	if err != nil {
		return newError(kind, "host returned an undecodable error", err)
	}
	return hostError(kind, detail.Type, detail.Message())
}
