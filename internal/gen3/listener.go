// Package gen3 stands up the legacy Gen3 (pre-V5) listener. Decoding
// that logger generation's actual framing is out of scope: these
// loggers are end-of-life and the original itself only kept minimal
// support for them. This package accepts connections and shares
// infos.Store/Register so a Gen3 session can eventually report through
// the same telemetry path as Gen3+, but does not parse the wire
// protocol itself.
package gen3

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/tsunproxy/gen3plus/internal/infos"
)

// Listener accepts Gen3 logger connections and immediately closes them
// after recording the attempt, until real framing support lands.
type Listener struct {
	log   *logrus.Entry
	store *infos.Store
	dict  *infos.Dictionary
}

// New returns a Listener that records accepted connections against a
// shared register store. The legacy dictionary is already wired in so
// a future framing implementation only has to decode bytes against it.
func New(store *infos.Store, log *logrus.Entry) *Listener {
	return &Listener{store: store, log: log, dict: infos.LegacyRegisterMap()}
}

// ListenAndServe accepts and politely closes every connection on addr
// until ctx is cancelled.
func (l *Listener) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				l.log.WithError(err).Warn("gen3: accept failed")
				continue
			}
		}
		l.log.WithField("remote", conn.RemoteAddr().String()).
			WithField("dictionary_rows", len(l.dict.Entries())).
			Info("gen3: legacy logger connected, framing unsupported")
		_ = conn.Close()
	}
}
