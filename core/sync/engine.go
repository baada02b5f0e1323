package sync

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/compforge/syncmesh/cmn/nlog"
	"github.com/compforge/syncmesh/cmn/syncerr"
	"github.com/compforge/syncmesh/cmn/xmetrics"
	"github.com/compforge/syncmesh/codec"
	"github.com/compforge/syncmesh/core/meta"
	"github.com/compforge/syncmesh/core/wire"
	"github.com/compforge/syncmesh/transport"
)

// Engine is the Sync Engine (spec §4.4–4.6): the only component that
// touches the Type Registry, Connection Table, and Outbound Queue
// together, under a single engine-wide mutex (spec §5).
type Engine struct {
	mu sync.Mutex

	registry *meta.Registry
	conns    *meta.ConnTable
	queue    *outboundQueue

	transport transport.Transport
	codec     codec.Codec
	metrics   *xmetrics.Metrics

	compressionThreshold int
	clusterKey           *[wire.ClusterKeySize]byte
	maxFlushWorkers      int
}

// Option configures optional Engine behavior at construction time.
type Option func(*Engine)

// WithCompressionThreshold lz4-compresses transient snapshot payloads
// at or above n bytes. n <= 0 disables compression (the default).
func WithCompressionThreshold(n int) Option {
	return func(e *Engine) { e.compressionThreshold = n }
}

// WithClusterKey enables secretbox payload encryption between peers.
func WithClusterKey(key *[wire.ClusterKeySize]byte) Option {
	return func(e *Engine) { e.clusterKey = key }
}

// WithMaxFlushWorkers bounds the errgroup fan-out SyncOutgoing uses to
// encode and send per-connection frames. Default 8.
func WithMaxFlushWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFlushWorkers = n
		}
	}
}

// WithMetrics attaches a cmn/xmetrics.Metrics instance.
func WithMetrics(m *xmetrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds an Engine over registry/conns, dispatching outbound
// frames through tr and decoding transient snapshots through objCodec.
func NewEngine(registry *meta.Registry, conns *meta.ConnTable, tr transport.Transport, objCodec codec.Codec, opts ...Option) *Engine {
	e := &Engine{
		registry:        registry,
		conns:           conns,
		queue:           newOutboundQueue(),
		transport:       tr,
		codec:           objCodec,
		maxFlushWorkers: 8,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterType exposes meta.Registry.Register under the engine lock
// (spec §5: registration takes the engine-wide mutex).
func (e *Engine) RegisterType(cfg meta.ObjectConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Register(cfg)
}

// UnregisterType exposes meta.Registry.Unregister under the engine lock.
func (e *Engine) UnregisterType(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Unregister(name)
}

// RegisterConnection exposes meta.ConnTable.RegisterConnection, folding
// any error into a bool per spec §4.2 ("returns false on any validation
// failure").
func (e *Engine) RegisterConnection(conn meta.Conn, types []string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.conns.RegisterConnection(conn, types); err != nil {
		nlog.Warningf("register_connection %s: %v", conn.ID(), err)
		return false
	}
	return true
}

// RemoveConnection exposes meta.ConnTable.RemoveConnection.
func (e *Engine) RemoveConnection(conn meta.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conns.RemoveConnection(conn)
}

// UpdateRecord implements spec §4.4. The full lookup + local-apply +
// enqueue sequence runs under the engine lock.
func (e *Engine) UpdateRecord(typeName string, record meta.Record) error {
	return e.applyChange(typeName, record, false)
}

// RemoveRecord is UpdateRecord's symmetric counterpart (spec §4.4,
// final sentence).
func (e *Engine) RemoveRecord(typeName string, record meta.Record) error {
	return e.applyChange(typeName, record, true)
}

func (e *Engine) applyChange(typeName string, record meta.Record, isRemove bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, ok := e.registry.Lookup(typeName)
	if !ok {
		return errors.Wrapf(syncerr.ErrUnknownType, "type %q", typeName)
	}

	if cfg.ServerOwned {
		if !cfg.Persistent() {
			if !cfg.Update(e.registry, typeName, record, isRemove) {
				return errors.Wrapf(syncerr.ErrLocalApplyFailed, "type %q", typeName)
			}
		}
		// Persistent types: the caller already wrote the change to
		// Store; the engine only relays.
		e.enqueue(typeName, record, isRemove)
		return nil
	}

	// Replica: enqueue only. The master's echo back through
	// SyncIncoming performs the local apply.
	e.enqueue(typeName, record, isRemove)
	return nil
}

func (e *Engine) enqueue(typeName string, record meta.Record, isRemove bool) {
	if isRemove {
		e.queue.enqueueRemove(typeName, record)
	} else {
		e.queue.enqueueUpdate(typeName, record)
	}
	e.metrics.RecordEnqueued(typeName, isRemove)
}

// SyncOutgoing implements spec §4.5: drain the queue under the engine
// lock, then — lock released — encode and hand off one frame per
// (connection, type) to the Transport, fanned out across up to
// maxFlushWorkers goroutines via errgroup.
func (e *Engine) SyncOutgoing(ctx context.Context) error {
	e.mu.Lock()
	drained := e.queue.drain()
	conns := e.conns.Connections()
	e.mu.Unlock()

	for typeName := range drained {
		e.metrics.RecordDrained(typeName)
	}
	if len(drained) == 0 || len(conns) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxFlushWorkers)

	for _, conn := range conns {
		conn := conn
		types := e.conns.SubscribedTypes(conn)
		for _, typeName := range types {
			dt, ok := drained[typeName]
			if !ok || (len(dt.Updates) == 0 && len(dt.Removes) == 0) {
				continue
			}
			typeName := typeName
			dt := dt
			g.Go(func() error {
				return e.sendOne(ctx, conn, typeName, dt)
			})
		}
	}
	return g.Wait()
}

func (e *Engine) sendOne(ctx context.Context, conn meta.Conn, typeName string, dt drainedType) error {
	cfg, ok := e.registry.Lookup(typeName)
	if !ok {
		// Type was unregistered between enqueue and drain; drop the
		// frame rather than fail the whole fan-out.
		return nil
	}

	frame := wire.Frame{TypeName: typeName}

	updates, err := e.encodeRecords(cfg, dt.Updates)
	if err != nil {
		e.metrics.DecodeError(typeName)
		return errors.Wrapf(err, "encode updates for %q", typeName)
	}
	frame.Updates = updates

	removes, err := e.encodeRecords(cfg, dt.Removes)
	if err != nil {
		e.metrics.DecodeError(typeName)
		return errors.Wrapf(err, "encode removes for %q", typeName)
	}
	frame.Removes = removes

	raw, err := wire.Encode(frame)
	if err != nil {
		return errors.Wrapf(err, "wire-encode frame for %q", typeName)
	}

	if err := e.transport.Send(ctx, conn, raw); err != nil {
		e.metrics.TransportError(typeName)
		return errors.Wrapf(syncerr.ErrTransport, "%s to conn %s: %v", typeName, conn.ID(), err)
	}
	e.metrics.FrameSent(typeName)
	return nil
}

// encodeRecords serializes records per spec §4.7: a 16-byte UUID for
// persistent types, a full Object Codec snapshot (optionally
// lz4-compressed / secretbox-encrypted) for transient ones. Compression
// is decided per record against compressionThreshold (and may decline
// even above it, if lz4 doesn't actually shrink the payload), so each
// wire.Payload carries its own flags rather than sharing one frame-wide
// byte — a batch can freely mix a compressed and an uncompressed
// snapshot.
func (e *Engine) encodeRecords(cfg meta.ObjectConfig, records []meta.Record) ([]wire.Payload, error) {
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]wire.Payload, 0, len(records))

	if cfg.Persistent() {
		for _, r := range records {
			id := r.SyncUUID()
			out = append(out, wire.Payload{Data: append([]byte(nil), id[:]...)})
		}
		return out, nil
	}

	for _, r := range records {
		raw, err := e.codec.Encode(r)
		if err != nil {
			return nil, errors.Wrap(err, "object codec encode")
		}
		data, flags := wire.EncodePayload(raw, e.compressionThreshold, e.clusterKey)
		out = append(out, wire.Payload{Flags: flags, Data: data})
	}
	return out, nil
}

// SyncIncoming implements spec §4.6. The frame is fully decoded
// structurally before any semantic processing, so a malformed body
// never desynchronizes the caller's stream accounting.
func (e *Engine) SyncIncoming(ctx context.Context, frameBytes []byte) error {
	frame, err := wire.Decode(frameBytes)
	if err != nil {
		return errors.Wrap(syncerr.ErrDecode, err.Error())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, ok := e.registry.Lookup(frame.TypeName)
	if !ok {
		return errors.Wrapf(syncerr.ErrUnknownType, "type %q", frame.TypeName)
	}

	for _, payload := range frame.Updates {
		if err := e.applyIncoming(ctx, cfg, frame.TypeName, payload, false); err != nil {
			return errors.Wrapf(syncerr.ErrDecode, "update in %q: %v", frame.TypeName, err)
		}
	}
	for _, payload := range frame.Removes {
		if err := e.applyIncoming(ctx, cfg, frame.TypeName, payload, true); err != nil {
			return errors.Wrapf(syncerr.ErrDecode, "remove in %q: %v", frame.TypeName, err)
		}
	}
	return nil
}

// applyIncoming materializes one record from its wire payload and
// applies it, relaying it onward if this peer is master for typeName.
// Decode failures are fatal to the frame (returned); missing-persistent
// and update_fn rejections are logged and swallowed (spec §4.6 steps
// 2–3).
func (e *Engine) applyIncoming(ctx context.Context, cfg meta.ObjectConfig, typeName string, payload wire.Payload, isRemove bool) error {
	record, found, err := e.materializeRecord(ctx, cfg, typeName, payload)
	if err != nil {
		return err
	}
	if !found {
		nlog.Warningf("%v: type %q", syncerr.ErrMissingPersistent, typeName)
		return nil
	}

	if cfg.Update != nil && !cfg.Update(e.registry, typeName, record, isRemove) {
		nlog.Warningf("%v: type %q update_fn rejected record", syncerr.ErrLocalApplyFailed, typeName)
	}

	if cfg.ServerOwned {
		e.enqueue(typeName, record, isRemove)
	}
	return nil
}

// materializeRecord decodes a single update/remove payload into a
// concrete Record: a Store reload for persistent types, an Object Codec
// snapshot decode for transient ones. The Store lookup is performed
// with the engine lock released (spec §5: "Store load may block I/O...
// invoked with the lock released"); this function re-acquires the lock
// itself right after the Store call, so it returns with the lock held.
func (e *Engine) materializeRecord(ctx context.Context, cfg meta.ObjectConfig, typeName string, payload wire.Payload) (meta.Record, bool, error) {
	if cfg.Persistent() {
		if len(payload.Data) != 16 {
			return nil, false, errors.Errorf("persistent payload for %q is %d bytes, want 16", typeName, len(payload.Data))
		}
		id, err := uuid.FromBytes(payload.Data)
		if err != nil {
			return nil, false, errors.Wrap(err, "parse uuid")
		}

		e.mu.Unlock()
		record, found, err := cfg.Store.Load(ctx, typeName, id)
		e.mu.Lock()
		if err != nil {
			return nil, false, errors.Wrap(err, "store load")
		}
		return record, found, nil
	}

	if cfg.Build == nil {
		return nil, false, errors.Errorf("transient type %q has no Build function", typeName)
	}
	raw, err := wire.DecodePayload(payload.Data, payload.Flags, e.clusterKey)
	if err != nil {
		return nil, false, errors.Wrap(err, "decode payload")
	}
	blank := cfg.Build()
	if err := e.codec.Decode(blank, raw); err != nil {
		return nil, false, errors.Wrap(err, "object codec decode")
	}
	return blank, true, nil
}

