// Package nlog is the engine's leveled logger, shaped after the aistore
// cmn/nlog package (Infoln/Warningln/Errorln, a verbosity-gated V(n)) but
// backed by zap instead of a vendored glog fork.
package nlog

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	base      *zap.SugaredLogger
	verbosity int32
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	base = l.Sugar()
}

// SetLogger swaps the underlying zap logger, e.g. for a development build
// or for tests that want to capture output.
func SetLogger(l *zap.Logger) {
	base = l.Sugar()
}

// SetVerbosity sets the threshold V() gates against. Higher means chattier.
func SetVerbosity(n int) {
	atomic.StoreInt32(&verbosity, int32(n))
}

// V reports whether logging at the given verbosity level is enabled,
// mirroring the teacher's cmn.Rom.FastV(n, module) guard used ahead of
// expensive log-line construction.
func V(n int) bool {
	return atomic.LoadInt32(&verbosity) >= int32(n)
}

func Infof(format string, args ...any)    { base.Infof(format, args...) }
func Infoln(args ...any)                  { base.Infoln(args...) }
func Warningf(format string, args ...any) { base.Warnf(format, args...) }
func Warningln(args ...any)               { base.Warnln(args...) }
func Errorf(format string, args ...any)   { base.Errorf(format, args...) }
func Errorln(args ...any)                 { base.Errorln(args...) }

// Sync flushes buffered log entries; the host should call this on shutdown.
func Sync() error {
	return base.Sync()
}
