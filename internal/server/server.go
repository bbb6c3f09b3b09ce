// Package server runs the Gen3+ listener and builds the admin HTTP
// handler: accept loops feed gen3plus.Connection goroutines, and a
// two-phase shutdown drains them the way the original's handle_shutdown
// does (graceful disconnect first, hard close second). The Gen3 legacy
// listener lives in package gen3.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/tsunproxy/gen3plus/internal/gen3plus"
	"github.com/tsunproxy/gen3plus/internal/mqttpub"
	"github.com/tsunproxy/gen3plus/internal/registry"
)

// Server owns the Gen3+ TCP listener(s) opened through ListenAndServe and
// the shared connection registry.
type Server struct {
	Registry *registry.Registry[*gen3plus.Connection]
	log      *logrus.Entry
	clk      clock.Clock

	cloudAddr string
	dial      gen3plus.Dialer
	pub       *mqttpub.Publisher

	mu        sync.Mutex
	listeners []net.Listener
	wg        sync.WaitGroup
}

// New returns a Server whose accepted connections dial cloudAddr for
// their TSUN-cloud pairing and publish AT-command responses through pub.
func New(cloudAddr string, dial gen3plus.Dialer, pub *mqttpub.Publisher, clk clock.Clock, log *logrus.Entry) *Server {
	return &Server{
		Registry:  registry.New[*gen3plus.Connection](),
		log:       log,
		clk:       clk,
		cloudAddr: cloudAddr,
		dial:      dial,
		pub:       pub,
	}
}

// ListenAndServe accepts connections on addr, each handed to
// gen3plus.Connection.Run in its own goroutine, until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

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
				s.log.WithError(err).Warn("accept failed")
				continue
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	entry := s.log.WithField("remote", conn.RemoteAddr().String())
	c := gen3plus.NewConnection(conn, gen3plus.RoleServer, s.Registry, s.clk, entry)
	c.SetRemoteDialer(s.dial, s.cloudAddr)
	c.SetPublisher(s.pub)
	c.Run(ctx)
}

// Shutdown implements the original's two-phase handle_shutdown: every
// live connection first gets a graceful deadline to drain, then
// anything still open is hard-closed.
func (s *Server) Shutdown(ctx context.Context) {
	s.mu.Lock()
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.mu.Unlock()

	deadline := time.NewTimer(2 * time.Second)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-deadline.C:
		for _, c := range s.Registry.Snapshot() {
			c.Close()
		}
	}
	deadline.Stop()
}

// Healthy reports whether every live connection is within its
// processing-latency budget, backing the /-/healthy HTTP route.
func (s *Server) Healthy() bool {
	for _, c := range s.Registry.Snapshot() {
		if !c.Healthy() {
			return false
		}
	}
	return true
}
