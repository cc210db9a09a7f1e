package commsutil

import (
	"encoding/json"
	"fmt"

	"github.com/morezero/runtime-ipc/pkg/envelope"
)

const codecLogPrefix = "commsutil:codec"

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// EncodeEnvelope serializes an envelope for the wire.
func EncodeEnvelope(env *envelope.Envelope) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%s - nil envelope", codecLogPrefix)
	}
	return EncodePayload(env)
}

// DecodeEnvelope deserializes a host-bound envelope. A request without a
// type cannot be routed and is rejected.
func DecodeEnvelope(data []byte) (*envelope.Envelope, error) {
	env, err := DecodeReply(data)
	if err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%s - envelope has no type", codecLogPrefix)
	}
	return env, nil
}

// DecodeReply deserializes an envelope coming back from the host. The type
// is opaque to the sender, so an empty one is accepted.
func DecodeReply(data []byte) (*envelope.Envelope, error) {
	var env envelope.Envelope
	if err := DecodePayload(data, &env); err != nil {
		return nil, fmt.Errorf("%s - failed to decode envelope: %w", codecLogPrefix, err)
	}
	return &env, nil
}
