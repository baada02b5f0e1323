package meta

import "github.com/pkg/errors"

// ObjectConfig is the per-type synchronization configuration the engine
// keys on, matching DataSyncManager::ObjectConfig (spec §3) field for
// field: Name/ServerOwned/Store(DB)/Build(BuildHandler)/Update(UpdateHandler).
type ObjectConfig struct {
	// Name is the canonical wire type identifier.
	Name string

	// ServerOwned: this peer is the master for Name.
	ServerOwned bool

	// Store, if non-nil, marks Name persistent: wire payloads carry a
	// UUID and records are reloaded from Store rather than decoded from
	// a snapshot.
	Store Store

	// Build allocates a blank record. Required for transient types
	// (there is no Store to reload from); optional for persistent ones.
	Build BuildFunc

	// Update is invoked after a record is applied. Required for
	// transient types; optional for persistent ones (where the caller
	// already wrote the change to Store before calling UpdateRecord).
	Update UpdateFunc
}

// Persistent reports whether Name is backed by a Store.
func (c ObjectConfig) Persistent() bool {
	return c.Store != nil
}

// validate enforces spec §3's invariants:
//
//	store_ref.is_some() ⇒ persistent (true by construction here)
//	transient types require a Build function
func (c ObjectConfig) validate() error {
	if c.Name == "" {
		return errors.New("type name must not be empty")
	}
	if !c.Persistent() && c.Build == nil {
		return errors.Errorf("transient type %q requires a Build function", c.Name)
	}
	if !c.Persistent() && c.Update == nil {
		return errors.Errorf("transient type %q requires an Update function", c.Name)
	}
	return nil
}
