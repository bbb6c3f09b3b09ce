package gen3plus

import (
	"context"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/tsunproxy/gen3plus/internal/registry"
)

// ConnectRemote dials the TSUN cloud endpoint for a server-side
// connection that has just identified its logger, retrying with
// exponential backoff since the cloud endpoint is outside our control
// and transient DNS/connect failures shouldn't tear down the inverter
// side. It mirrors the lazy, on-first-forward remote connection the
// original's __async_forward establishes.
func ConnectRemote(ctx context.Context, server *Connection, dial Dialer, address string, reg *registry.Registry[*Connection], clk clock.Clock, log *logrus.Entry) (*Connection, error) {
	var conn net.Conn

	operation := func() error {
		c, err := dial(ctx, address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 30 * time.Second
	bo := backoff.WithContext(expBackoff, ctx)

	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}

	remote := NewConnection(conn, RoleClient, reg, clk, log.WithField("role", "client"))
	remote.loggerSerial = server.loggerSerial
	Pair(server, remote)
	return remote, nil
}

// DialTCP is the production Dialer: a context-aware plain TCP dial to
// the TSUN cloud.
func DialTCP(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}
