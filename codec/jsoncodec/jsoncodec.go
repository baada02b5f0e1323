// Package jsoncodec implements codec.Codec with json-iterator, the
// teacher's own JSON library (imported directly in ais/prxs3.go and
// cmd/cli/cli/object.go) rather than encoding/json.
package jsoncodec

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/compforge/syncmesh/core/meta"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec is the json-iterator-backed codec.Codec.
type Codec struct{}

// New returns a ready-to-use json-iterator codec.
func New() Codec {
	return Codec{}
}

// Encode marshals record with json-iterator.
func (Codec) Encode(record meta.Record) ([]byte, error) {
	b, err := api.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "jsoncodec encode")
	}
	return b, nil
}

// Decode unmarshals data into blank, which must be a pointer-typed
// Record (as returned by an ObjectConfig.Build function) for the
// mutation to be visible to the caller.
func (Codec) Decode(blank meta.Record, data []byte) error {
	if err := api.Unmarshal(data, blank); err != nil {
		return errors.Wrap(err, "jsoncodec decode")
	}
	return nil
}
