package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame types of the websocket envelope.
const (
	FrameRequest  = "Request"
	FrameResponse = "Response"
	FrameSignal   = "Signal"
)

// Request and response body types of the app interface.
const (
	TypeAppInfo  = "app_info"
	TypeZomeCall = "zome_call_invocation"
	TypeError    = "error"
)

// Message is the websocket frame exchanged with the conductor.
// Data carries an encoded Request or Response body.
type Message struct {
	ID   uint64 `msgpack:"id"`
	Type string `msgpack:"type"`
	Data []byte `msgpack:"data"`
}

// Request is the body of a Request frame.
type Request struct {
	Type string      `msgpack:"type"`
	Data interface{} `msgpack:"data"`
}

// Response is the body of a Response frame. Data is left encoded until the
// caller knows which shape to expect.
type Response struct {
	Type string             `msgpack:"type"`
	Data msgpack.RawMessage `msgpack:"data"`
}

// ErrorDetail is the data of an error response: the host error kind and its message.
type ErrorDetail struct {
	Type string      `msgpack:"type"`
	Data interface{} `msgpack:"data"`
}

// Message returns the host-supplied cause as text.
func (e *ErrorDetail) Message() string {
	switch v := e.Data.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// EncodeRequest encodes a request body of the given type.
func EncodeRequest(typ string, data interface{}) ([]byte, error) {
	return EncodePayload(&Request{Type: typ, Data: data})
}

// DecodeResponse decodes a response body.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := DecodePayload(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ErrorDetail decodes the host error carried by an error response.
func (r *Response) ErrorDetail() (*ErrorDetail, error) {
	var detail ErrorDetail
	if IsNil(r.Data) {
		return &detail, nil
	}
	if err := DecodePayload(r.Data, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// IsError reports whether the host answered with an error.
func (r *Response) IsError() bool {
	return r.Type == TypeError
}
