package meta

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/teris-io/shortid"

	"github.com/compforge/syncmesh/cmn/nlog"
	"github.com/compforge/syncmesh/cmn/peerauth"
	"github.com/compforge/syncmesh/cmn/syncerr"
)

// Conn is an opaque handle to a peer connection, supplied by the host
// (spec §1: "the hosting process registers them", not the engine).
type Conn interface {
	// ID uniquely and stably identifies the connection for the engine's
	// lifetime, used for log labels and as the fan-out sort key.
	ID() string

	// AuthToken is the bearer token the peer presented at dial time,
	// checked once against peerauth.Verifier during RegisterConnection.
	AuthToken() string
}

// ConnTable is the Connection Table (spec §4.2): for each registered
// peer connection, the set of type names it subscribes to.
type ConnTable struct {
	verifier *peerauth.Verifier

	mu     sync.RWMutex
	subs   map[Conn]map[string]struct{}
	labels map[Conn]string
}

// NewConnTable builds a ConnTable. verifier may be nil to accept every
// connection unauthenticated (local/dev use).
func NewConnTable(verifier *peerauth.Verifier) *ConnTable {
	if verifier == nil {
		verifier = peerauth.NewVerifier("")
	}
	return &ConnTable{
		verifier: verifier,
		subs:     make(map[Conn]map[string]struct{}),
		labels:   make(map[Conn]string),
	}
}

// RegisterConnection records conn's subscription set. An empty types
// slice is valid and means "master-only relay, no subscriptions" (spec
// §4.2). Fails with ErrDuplicateConnection if conn is already present,
// or with a plain, non-sentinel error if the peer's token doesn't verify
// (the peerauth failure is logged, not surfaced as a distinct error
// kind, matching spec §4.2's "returns false on any validation failure").
func (t *ConnTable) RegisterConnection(conn Conn, types []string) error {
	peerID, err := t.verifier.Verify(conn.AuthToken())
	if err != nil {
		nlog.Warningf("connection %s rejected: %v", conn.ID(), err)
		return errors.New("peer authentication failed")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.subs[conn]; exists {
		return errors.Wrapf(syncerr.ErrDuplicateConnection, "connection %s", conn.ID())
	}

	set := make(map[string]struct{}, len(types))
	for _, ty := range types {
		set[ty] = struct{}{}
	}
	t.subs[conn] = set

	label, err := shortid.Generate()
	if err != nil {
		label = conn.ID()
	}
	t.labels[conn] = label

	nlog.Infof("connection %s (peer=%q, label=%s) subscribed to %d type(s)", conn.ID(), peerID, label, len(types))
	return nil
}

// RemoveConnection drops conn's registration. Idempotent; returns true
// iff a registration existed.
func (t *ConnTable) RemoveConnection(conn Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.subs[conn]; !exists {
		return false
	}
	delete(t.subs, conn)
	delete(t.labels, conn)
	return true
}

// Connections returns every registered connection, sorted by ID for a
// deterministic fan-out order within a single SyncOutgoing call (spec
// §4.2: "must be stable within a single SyncOutgoing call").
func (t *ConnTable) Connections() []Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Conn, 0, len(t.subs))
	for conn := range t.subs {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SubscribedTypes returns conn's subscription set, sorted by name for a
// stable per-connection type iteration order.
func (t *ConnTable) SubscribedTypes(conn Conn) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.subs[conn]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for ty := range set {
		out = append(out, ty)
	}
	sort.Strings(out)
	return out
}

// Subscribers returns every connection currently subscribed to typeName,
// sorted by ID (spec §4.2 scoping property: a connection not in this set
// never receives frames for typeName).
func (t *ConnTable) Subscribers(typeName string) []Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Conn
	for conn, set := range t.subs {
		if _, ok := set[typeName]; ok {
			out = append(out, conn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
