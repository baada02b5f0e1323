// Package sync is the Sync Engine and its Outbound Queue (spec §4.3–4.6):
// the component that ties the Type Registry and Connection Table
// together with the Wire Codec, Object Codec, Store, and Transport
// collaborators. Grounded on DataSyncManager's own update/queue/sync
// split in original_source/libcomp/src/DataSyncManager.{h,cpp}, and on
// tomzhang-aistore's ais/metasync.go doSync for the drain-then-fan-out
// shape.
package sync

import "github.com/compforge/syncmesh/core/meta"

// outboundQueue holds records pending relay, keyed by type name. Set
// membership is by Go interface identity (pointer equality for the
// pointer-typed records spec §3 assumes), so resubmitting the same
// in-memory record between flushes coalesces rather than duplicating.
type outboundQueue struct {
	updates map[string]map[meta.Record]struct{}
	removes map[string]map[meta.Record]struct{}
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{
		updates: make(map[string]map[meta.Record]struct{}),
		removes: make(map[string]map[meta.Record]struct{}),
	}
}

// enqueueUpdate inserts record into updates[typeName]. Per §3's open
// question (a record present in both sets for one type), this engine
// resolves it "remove wins": enqueueing an update for a record already
// pending removal is a no-op on the removes side, but if the record is
// re-removed afterward it still takes priority — see enqueueRemove.
// Equivalently, an update never evicts an existing remove.
func (q *outboundQueue) enqueueUpdate(typeName string, record meta.Record) {
	if set, pending := q.removes[typeName]; pending {
		if _, alreadyRemoved := set[record]; alreadyRemoved {
			return
		}
	}
	set, ok := q.updates[typeName]
	if !ok {
		set = make(map[meta.Record]struct{})
		q.updates[typeName] = set
	}
	set[record] = struct{}{}
}

// enqueueRemove inserts record into removes[typeName] and evicts it
// from updates[typeName] if present there, implementing "remove wins":
// once a record is marked for removal, a prior pending update for the
// same record is superseded rather than sent stale.
func (q *outboundQueue) enqueueRemove(typeName string, record meta.Record) {
	if set, ok := q.updates[typeName]; ok {
		delete(set, record)
	}
	set, ok := q.removes[typeName]
	if !ok {
		set = make(map[meta.Record]struct{})
		q.removes[typeName] = set
	}
	set[record] = struct{}{}
}

// drainedType is one type's pending records at drain time.
type drainedType struct {
	Updates []meta.Record
	Removes []meta.Record
}

// drain atomically swaps the queue's maps for fresh empty ones,
// returning the previous contents keyed by type name. Types with no
// pending records in either direction are omitted.
func (q *outboundQueue) drain() map[string]drainedType {
	out := make(map[string]drainedType, len(q.updates)+len(q.removes))

	for typeName, set := range q.updates {
		out[typeName] = drainedType{Updates: flattenSet(set)}
	}
	for typeName, set := range q.removes {
		dt := out[typeName]
		dt.Removes = flattenSet(set)
		out[typeName] = dt
	}

	q.updates = make(map[string]map[meta.Record]struct{})
	q.removes = make(map[string]map[meta.Record]struct{})
	return out
}

func flattenSet(set map[meta.Record]struct{}) []meta.Record {
	if len(set) == 0 {
		return nil
	}
	out := make([]meta.Record, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	return out
}
