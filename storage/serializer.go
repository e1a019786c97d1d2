package storage

import (
	"encoding/json"
	"errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Serializer defines the interface for encoding invalidation events and
// other wire payloads.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer implements Serializer using JSON.
type JSONSerializer struct{}

// Marshal serializes a value to JSON.
func (js *JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a value from JSON.
func (js *JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// MsgpackSerializer implements Serializer using msgpack.
type MsgpackSerializer struct{}

// Marshal serializes a value to msgpack.
func (ms *MsgpackSerializer) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal deserializes a value from msgpack.
func (ms *MsgpackSerializer) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// NewMsgpackSerializer creates a new msgpack serializer.
func NewMsgpackSerializer() *MsgpackSerializer {
	return &MsgpackSerializer{}
}

// CBORSerializer implements Serializer using CBOR.
type CBORSerializer struct{}

// Marshal serializes a value to CBOR.
func (cs *CBORSerializer) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

// Unmarshal deserializes a value from CBOR.
func (cs *CBORSerializer) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

// NewCBORSerializer creates a new CBOR serializer.
func NewCBORSerializer() *CBORSerializer {
	return &CBORSerializer{}
}

// GetSerializer returns a serializer for the given format.
func GetSerializer(format string) (Serializer, error) {
	switch format {
	case "json":
		return NewJSONSerializer(), nil
	case "msgpack":
		return NewMsgpackSerializer(), nil
	case "cbor":
		return NewCBORSerializer(), nil
	default:
		return nil, errors.New("unsupported serialization format: " + format)
	}
}
