package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ParseJSONPayload decodes a JSON literal into a value suitable for MessagePack
// encoding. Integral numbers become int64 and the rest float64, so {"number":7}
// is sent as an integer the way a dynamically typed caller would send it.
func ParseJSONPayload(s string) (interface{}, error) {
	if s == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON payload: trailing data")
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) {
			return t.String()
		}
		return f
	case map[string]interface{}:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}

// ToJSON renders a decoded MessagePack value as indented JSON for display.
func ToJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(jsonCompatible(v), "", "  ")
}

// jsonCompatible rewrites maps with non-string keys, which encoding/json rejects.
func jsonCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[fmt.Sprintf("%v", k)] = jsonCompatible(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = jsonCompatible(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = jsonCompatible(e)
		}
		return out
	default:
		return v
	}
}
