// Command syncd is the reference host process: it wires a
// core/meta.Registry, core/meta.ConnTable, core/sync.Engine, a
// configurable store.Store backend, and transport/fasthttpconn
// together, and demonstrates registering the two demo types from
// internal/demo. Grounded on the teacher's own cmd/cli command-line
// shape (github.com/urfave/cli v1), generalized from cluster
// administration subcommands to a single long-running app action.
package main

import (
	"context"
	"encoding/hex"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"

	"github.com/pkg/errors"

	"github.com/compforge/syncmesh/cmn/config"
	"github.com/compforge/syncmesh/cmn/nlog"
	"github.com/compforge/syncmesh/cmn/peerauth"
	"github.com/compforge/syncmesh/cmn/xmetrics"
	"github.com/compforge/syncmesh/codec/jsoncodec"
	"github.com/compforge/syncmesh/core/meta"
	syncengine "github.com/compforge/syncmesh/core/sync"
	"github.com/compforge/syncmesh/core/wire"
	"github.com/compforge/syncmesh/internal/demo"
	"github.com/compforge/syncmesh/store"
	"github.com/compforge/syncmesh/store/azstore"
	"github.com/compforge/syncmesh/store/buntstore"
	"github.com/compforge/syncmesh/store/fsstore"
	"github.com/compforge/syncmesh/store/gcsstore"
	"github.com/compforge/syncmesh/store/hdfsstore"
	"github.com/compforge/syncmesh/store/s3store"
	"github.com/compforge/syncmesh/transport/fasthttpconn"
)

func main() {
	app := cli.NewApp()
	app.Name = "syncd"
	app.Usage = "run a syncmesh peer host"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "path to a JSON config file"},
	}
	app.Action = runAction

	if err := app.Run(os.Args); err != nil {
		nlog.Errorf("syncd: %v", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	nlog.Infof("starting syncd node=%s listen=%s store=%s", cfg.NodeID, cfg.ListenAddr, cfg.StoreBackend)

	metrics := xmetrics.New(prometheus.DefaultRegisterer)

	builders := store.Builders{
		demo.CharacterTypeName: func() meta.Record { return &demo.Character{} },
	}
	backend, err := openStore(context.Background(), cfg, builders, metrics)
	if err != nil {
		return err
	}

	registry := meta.NewRegistry()
	verifier := peerauth.NewVerifier(cfg.PeerSharedSecret)
	conns := meta.NewConnTable(verifier)
	tr := fasthttpconn.New(metrics)

	opts := []syncengine.Option{
		syncengine.WithCompressionThreshold(cfg.CompressionThresholdBytes),
		syncengine.WithMaxFlushWorkers(cfg.MaxFlushWorkers),
		syncengine.WithMetrics(metrics),
	}
	if cfg.ClusterKeyHex != "" {
		clusterKey, err := decodeClusterKey(cfg.ClusterKeyHex)
		if err != nil {
			return errors.Wrap(err, "cluster_key_hex")
		}
		opts = append(opts, syncengine.WithClusterKey(clusterKey))
	}

	engine := syncengine.NewEngine(registry, conns, tr, jsoncodec.New(), opts...)

	if err := engine.RegisterType(meta.ObjectConfig{
		Name:        demo.CharacterTypeName,
		ServerOwned: true,
		Store:       backend,
	}); err != nil {
		return err
	}
	if err := engine.RegisterType(meta.ObjectConfig{
		Name:        demo.ChatMessageTypeName,
		ServerOwned: false,
		Build:       func() meta.Record { return &demo.ChatMessage{} },
		Update:      demo.LogChatMessage,
	}); err != nil {
		return err
	}

	tr.OnFrame(func(peerID string, frame []byte) {
		if err := engine.SyncIncoming(context.Background(), frame); err != nil {
			nlog.Warningf("sync_incoming from peer %q: %v", peerID, err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() { serveErr <- tr.ListenAndServe(ctx, cfg.ListenAddr) }()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := engine.SyncOutgoing(ctx); err != nil {
				nlog.Warningf("sync_outgoing: %v", err)
			}
		case <-sig:
			nlog.Infoln("syncd: shutting down")
			cancel()
			<-serveErr
			return nlog.Sync()
		case err := <-serveErr:
			return err
		}
	}
}

// decodeClusterKey parses a hex-encoded secretbox key for
// syncengine.WithClusterKey, wiring cfg.ClusterKeyHex through to the
// wire package's payload encryption path.
func decodeClusterKey(hexKey string) (*[wire.ClusterKeySize]byte, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "decode hex")
	}
	if len(raw) != wire.ClusterKeySize {
		return nil, errors.Errorf("want %d bytes, got %d", wire.ClusterKeySize, len(raw))
	}
	var key [wire.ClusterKeySize]byte
	copy(key[:], raw)
	return &key, nil
}

// openStore constructs the store.Store backend named by
// cfg.StoreBackend, already validated by config.Load to carry whatever
// dial parameters that backend needs (config.go's validate).
func openStore(ctx context.Context, cfg *config.Config, builders store.Builders, metrics *xmetrics.Metrics) (meta.Store, error) {
	switch cfg.StoreBackend {
	case "fs":
		return fsstore.Open(cfg.StoreDSN, builders, metrics)
	case "bunt", "":
		return buntstore.Open(cfg.StoreDSN, builders)
	case "s3":
		return s3store.Open(ctx, cfg.StoreDSN, builders)
	case "az":
		return azstore.Open(cfg.StoreAccountURL, cfg.StoreDSN, builders)
	case "hdfs":
		return hdfsstore.Open(cfg.StoreNamenodeAddr, cfg.StoreDSN, builders)
	case "gcs":
		return gcsstore.Open(ctx, cfg.StoreDSN, builders)
	default:
		return nil, errors.Errorf("syncd: no store backend wired for %q", cfg.StoreBackend)
	}
}
