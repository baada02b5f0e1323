// Package transport declares the wire-level collaborator the sync
// engine drains its outbound queue through: something that can push a
// pre-built frame at a specific connection. Concrete transports (e.g.
// fasthttpconn) live in subpackages so the engine never imports a
// specific network stack.
package transport

import (
	"context"

	"github.com/compforge/syncmesh/core/meta"
)

// Transport sends an already-encoded frame to one registered
// connection. Implementations MUST be safe for concurrent use: spec
// §4.6 fans SyncOutgoing's per-connection sends out concurrently.
type Transport interface {
	Send(ctx context.Context, conn meta.Conn, frame []byte) error
}
