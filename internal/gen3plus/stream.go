package gen3plus

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Idle timeouts, by connection phase. A server-side connection that has
// reached State_up and is actively polling Modbus gets the tightest
// timeout, since a dead inverter should be noticed quickly; everything
// else affords more slack for a slow/asleep peer.
const (
	timeoutHandshake    = 400 * time.Second // init or received
	timeoutInverterIdle = 120 * time.Second // up, server-side, modbus polling
	timeoutDefaultIdle  = 360 * time.Second

	// maxProcessing is the watchdog threshold healthy() compares the
	// in-flight read-processing duration against.
	maxProcessing = 2 * time.Second
)

// idleTimeout picks the read deadline for the connection's current
// phase, mirroring AsyncStream.__timeout().
func idleTimeout(state State, role Role, modbusPolling bool) time.Duration {
	switch {
	case state == StateInit || state == StateReceived:
		return timeoutHandshake
	case state == StateUp && role == RoleServer && modbusPolling:
		return timeoutInverterIdle
	default:
		return timeoutDefaultIdle
	}
}

// procWatch tracks how long the current inbound frame has been in
// flight, for the health-check endpoint's staleness probe.
type procWatch struct {
	clk       clock.Clock
	startedAt time.Time
	running   bool
	maxSeen   time.Duration
}

func newProcWatch(clk clock.Clock) *procWatch {
	return &procWatch{clk: clk}
}

func (p *procWatch) start() {
	p.startedAt = p.clk.Now()
	p.running = true
}

func (p *procWatch) stop() {
	if !p.running {
		return
	}
	elapsed := p.clk.Now().Sub(p.startedAt)
	if elapsed > p.maxSeen {
		p.maxSeen = elapsed
	}
	p.running = false
}

// healthy reports whether the frame processing currently in flight, if
// any, has run for less than maxProcessing, matching
// AsyncStream.healthy(). It is always true between reads.
func (p *procWatch) healthy() bool {
	if !p.running {
		return true
	}
	return p.clk.Now().Sub(p.startedAt) < maxProcessing
}
