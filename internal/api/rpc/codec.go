// Package rpc defines the guildbox Connect services: message types, the JSON
// codec they travel in, handler routing and typed clients.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// JSONCodec encodes plain Go message structs. It is registered under the
// "json" name, replacing connect's protobuf JSON codec for these services.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name returns the codec name used in content types.
func (JSONCodec) Name() string { return "json" }

// Marshal encodes v as JSON.
func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes JSON into v. An empty body leaves v untouched.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
