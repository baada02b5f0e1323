// Package msgpcodec implements codec.Codec against tinylib/msgp's
// Marshaler/Unmarshaler pair. No code generator runs in this module, so
// record types hand-write MarshalMsg/UnmarshalMsg in the shape msgp's
// generator produces (see internal/demo/chatmessage.go for the
// reference record this codec targets).
package msgpcodec

import (
	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/compforge/syncmesh/core/meta"
)

// Marshaler is what a transient record must implement to be carried by
// this codec: the same pair the msgp generator emits for a "//go:generate
// msgp" type.
type Marshaler interface {
	meta.Record
	msgp.Marshaler
	msgp.Unmarshaler
}

// Codec is the msgp-backed codec.Codec.
type Codec struct{}

// New returns a ready-to-use msgpack codec.
func New() Codec {
	return Codec{}
}

// Encode requires record to implement Marshaler.
func (Codec) Encode(record meta.Record) ([]byte, error) {
	m, ok := record.(Marshaler)
	if !ok {
		return nil, errors.Errorf("msgpcodec: %T does not implement msgp.Marshaler", record)
	}
	b, err := m.MarshalMsg(nil)
	if err != nil {
		return nil, errors.Wrap(err, "msgpcodec encode")
	}
	return b, nil
}

// Decode requires blank to implement Marshaler.
func (Codec) Decode(blank meta.Record, data []byte) error {
	m, ok := blank.(Marshaler)
	if !ok {
		return errors.Errorf("msgpcodec: %T does not implement msgp.Unmarshaler", blank)
	}
	leftover, err := m.UnmarshalMsg(data)
	if err != nil {
		return errors.Wrap(err, "msgpcodec decode")
	}
	if len(leftover) != 0 {
		return errors.Errorf("msgpcodec decode: %d trailing byte(s)", len(leftover))
	}
	return nil
}
