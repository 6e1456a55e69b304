package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets the remote-skill gRPC service exchange plain JSON
// messages instead of protobuf-generated types, since a skill's
// arguments and result are themselves already the JSON the LLM produced
// and consumed — re-encoding through a .proto schema would just add a
// translation step with nothing to validate against.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpc: unmarshal json: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
