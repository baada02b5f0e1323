// Package meta holds the sync engine's static configuration surface: the
// per-type ObjectConfig, the Type Registry, and the Connection Table.
// Grounded on the teacher's xact/xs renewable-factory registry
// (xreg.Renewable/xreg.RenewBase) generalized from "xaction kind" to
// "sync object type", and on DataSyncManager::ObjectConfig in
// original_source/libcomp/src/DataSyncManager.h for the field set.
package meta

import (
	"context"

	"github.com/google/uuid"
)

// Record is the engine's view of an opaque domain object: identity for
// set membership (via Go's own interface/pointer equality — records are
// expected to be pointer-typed so repeated submissions of the same
// in-memory object coalesce per spec §3), and a UUID accessor used only
// when the owning type is persistent.
type Record interface {
	// SyncUUID returns the record's persistent identity. Transient
	// records may return the zero UUID; it is never read for them.
	SyncUUID() uuid.UUID
}

// Host is the narrow read-only view of the engine an ObjectConfig's
// UpdateFunc is handed as its first argument. It exists so callbacks can
// consult type configuration without re-entering the engine's write
// path, which spec §5 forbids ("MUST NOT re-enter the engine").
type Host interface {
	Lookup(name string) (ObjectConfig, bool)
}

// BuildFunc allocates a blank record for a transient type so an inbound
// snapshot can be decoded into it.
type BuildFunc func() Record

// UpdateFunc is invoked after a record is applied (insert/update or
// remove). Returning false surfaces ErrLocalApplyFailed to the caller of
// UpdateRecord/RemoveRecord, or is merely logged when invoked from
// SyncIncoming (spec §4.6: "a false return is logged but does not abort
// the frame").
type UpdateFunc func(host Host, typeName string, record Record, isRemove bool) bool

// Store is the external persistence collaborator (spec §6): reload a
// persistent record by UUID. Declared here, not in package store, so
// that store's concrete backends can depend on meta without meta
// depending back on store.
type Store interface {
	Load(ctx context.Context, typeName string, id uuid.UUID) (Record, bool, error)
}
