package remoterpc

import (
	"bytes"
	"encoding/gob"
)

// Codec encodes and decodes the opaque payload carried inside a
// DataPackage's data field (spec §4.2, §6.1). The transport only ever
// sees the resulting bytes, so a deployment can swap in any wire-neutral
// encoding without touching the RPC plumbing.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// GobCodec implements Codec with encoding/gob, the natural stdlib
// pairing for net/rpc (see DESIGN.md for why this boundary is stdlib
// rather than a generated-protobuf contract).
type GobCodec struct{}

// Encode gob-encodes v.
func (GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode gob-decodes data into v, which must be a pointer.
func (GobCodec) Decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
