// Package store holds helpers shared by the concrete meta.Store
// backends (buntstore, fsstore, s3store, azstore, hdfsstore, gcsstore): a
// cuckoo-filter-fronted existence check every backend uses to skip its
// own network/disk round trip for UUIDs it already knows aren't present.
package store

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"
	"github.com/google/uuid"
)

// ExistenceFilter is a probabilistic "might exist" gate in front of a
// Store backend's Load. A negative answer is certain (no false
// negatives); a positive answer still requires the real lookup (false
// positives are possible). Mirrors the short-circuit role a
// bloom/cuckoo filter plays ahead of a real backend GET in tiered
// storage systems.
type ExistenceFilter struct {
	mu sync.Mutex
	cf *cuckoo.Filter
}

// NewExistenceFilter sizes the filter for capacity expected entries.
func NewExistenceFilter(capacity uint) *ExistenceFilter {
	return &ExistenceFilter{cf: cuckoo.NewFilter(capacity)}
}

// MightExist reports whether id may be present. false is authoritative.
func (f *ExistenceFilter) MightExist(typeName string, id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cf.Lookup(filterKey(typeName, id))
}

// Observe records that id is known to exist, e.g. after a successful
// Save or a Load that found the record.
func (f *ExistenceFilter) Observe(typeName string, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cf.InsertUnique(filterKey(typeName, id))
}

// Forget removes id from the filter, e.g. after the backend deletes it.
// Cuckoo filters (unlike bloom filters) support deletion.
func (f *ExistenceFilter) Forget(typeName string, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cf.Delete(filterKey(typeName, id))
}

func filterKey(typeName string, id uuid.UUID) []byte {
	key := make([]byte, 0, len(typeName)+1+16)
	key = append(key, typeName...)
	key = append(key, ':')
	idBytes := id
	key = append(key, idBytes[:]...)
	return key
}
