// Package codec centralizes payload and snapshot-section encoding.
//
// Codec selection is a compatibility boundary: snapshots record the codec
// name in their header and are decoded with the same codec on load.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Used by self-describing persistence formats that store the codec name
// in their header.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "msgpack":
		return Msgpack{}, true
	default:
		return nil, false
	}
}

// Default is the codec used when none is configured.
//
// This affects newly-created snapshots only. Existing snapshots are
// self-describing and are opened with the codec named in their header.
var Default Codec = JSON{}

// MustMarshal is a helper for internal tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
