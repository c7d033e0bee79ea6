package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// The MinerService exchanges plain Go structs, so instead of generated protobuf
// messages it uses this JSON codec. It registers under the name "json", which
// makes Connect use the content-type application/json for unary calls.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (jsonCodec) Unmarshal(data []byte, message any) error {
	// empty bodies decode into the zero message
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, message)
}
