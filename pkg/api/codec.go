package api

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// JSONCodec replaces Connect's protobuf-JSON codec for plain structs.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name is "json" so the codec serves application/json and
// application/connect+json requests.
func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return b, nil
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal into %T: %w", msg, err)
	}
	return nil
}

func withCodec() connect.Option {
	return connect.WithCodec(JSONCodec{})
}
