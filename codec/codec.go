// Package codec declares the Object Codec contract (spec §6): encode a
// transient record to a snapshot, decode a snapshot into a blank record.
// Two implementations live in sibling packages, jsoncodec and msgpcodec,
// so a host can pick either without the engine caring which.
package codec

import "github.com/compforge/syncmesh/core/meta"

// Codec encodes/decodes full object snapshots for transient types. It is
// the "dynamic-size-aware" Object Codec of spec §6: the msgpack
// implementation's sidecar sizing is handled internally to each
// record's MarshalMsg/UnmarshalMsg pair and never surfaces here.
type Codec interface {
	Encode(record meta.Record) ([]byte, error)
	Decode(blank meta.Record, data []byte) error
}
