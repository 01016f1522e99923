package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack is a compact binary codec. Denser and faster to decode than
// JSON for large payload sections; not human-readable.
type Msgpack struct{}

// Marshal encodes the value with MessagePack.
func (Msgpack) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

// Unmarshal decodes MessagePack data into v.
func (Msgpack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// Name returns the unique name of the codec ("msgpack").
func (Msgpack) Name() string { return "msgpack" }
