// Package wire implements the conductor app interface wire format: MessagePack
// frames, request/response envelopes and payload conversion helpers.
package wire

import (
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// EncodePayload serializes a value to MessagePack bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// DecodePayload deserializes MessagePack bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// IsNil reports whether raw is absent or an encoded MessagePack nil.
func IsNil(raw []byte) bool {
	return len(raw) == 0 || (len(raw) == 1 && raw[0] == msgpcode.Nil)
}
