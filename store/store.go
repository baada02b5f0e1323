package store

import "github.com/compforge/syncmesh/core/meta"

// Builders maps a persistent type name to a constructor for a blank
// record of its concrete Go type. Every backend in this package needs
// one: spec §3 allows a persistent ObjectConfig to omit Build (because
// "records come from the Store"), which only pushes the same
// reconstruction problem down into the Store implementation itself.
type Builders map[string]func() meta.Record

// Get returns a blank record for typeName, or nil if no builder is
// registered.
func (b Builders) Get(typeName string) meta.Record {
	fn, ok := b[typeName]
	if !ok {
		return nil
	}
	return fn()
}
