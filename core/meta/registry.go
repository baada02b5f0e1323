package meta

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/compforge/syncmesh/cmn/nlog"
	"github.com/compforge/syncmesh/cmn/syncerr"
)

// Registry is the Type Registry (spec §4.1): an immutable-after-register
// map from type name to ObjectConfig, read-mostly and safe for
// concurrent lookups during SyncOutgoing/SyncIncoming.
type Registry struct {
	mu    sync.RWMutex
	types map[string]ObjectConfig
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]ObjectConfig)}
}

// Register inserts cfg keyed by cfg.Name. Re-registration is not
// supported; callers must Unregister first (spec §4.1).
func (r *Registry) Register(cfg ObjectConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.types[cfg.Name]; ok {
		if existing.ServerOwned && cfg.ServerOwned {
			// Diagnostic only, per spec §9: the source neither declares
			// nor enforces cluster-wide master uniqueness; a second
			// local master claim for the same name is almost certainly
			// a misconfiguration, but registration still fails the same
			// way any re-registration would.
			nlog.Warningf("type %q re-registered as server-owned while already server-owned locally", cfg.Name)
		}
		return errors.Wrapf(syncerr.ErrAlreadyRegistered, "type %q", cfg.Name)
	}

	r.types[cfg.Name] = cfg
	nlog.Infof("registered sync type %q (server_owned=%v persistent=%v)",
		cfg.Name, cfg.ServerOwned, cfg.Persistent())
	return nil
}

// Unregister removes a type's configuration. Idempotent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.types, name)
}

// Lookup returns the ObjectConfig registered for name, if any. Lookup
// also serves as meta.Host for ObjectConfig.Update callbacks.
func (r *Registry) Lookup(name string) (ObjectConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.types[name]
	return cfg, ok
}

// Names returns every registered type name, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	return out
}

var _ Host = (*Registry)(nil)
