package gen3plus

import (
	"time"

	"github.com/benbjohnson/clock"
)

const (
	modbusPollInitialDelay = 40 * time.Second // first poll after a connection comes up
	modbusPollInterval     = 60 * time.Second // regular poll cadence
	modbusExtendedEvery    = 30               // every Nth expiry also polls the extended block
)

// PollTimer rearms itself on a clock.Clock, which lets tests substitute
// a clock.Mock instead of waiting on wall-clock time for the 40s/60s
// Modbus poll cadence.
type PollTimer struct {
	clk      clock.Clock
	timer    *clock.Timer
	expiries int
	fn       func(extended bool)
	done     chan struct{}
}

// NewPollTimer starts a timer that calls fn after the initial 40s delay,
// then every 60s thereafter; fn's extended argument is true on every
// 30th expiry, when the poll should also read the extended register
// block.
func NewPollTimer(clk clock.Clock, fn func(extended bool)) *PollTimer {
	pt := &PollTimer{clk: clk, fn: fn, done: make(chan struct{})}
	pt.timer = clk.Timer(modbusPollInitialDelay)
	go pt.run()
	return pt
}

func (pt *PollTimer) run() {
	for {
		select {
		case <-pt.timer.C:
			pt.expiries++
			extended := pt.expiries%modbusExtendedEvery == 0
			pt.fn(extended)
			pt.timer.Reset(modbusPollInterval)
		case <-pt.done:
			return
		}
	}
}

// Stop cancels the timer; safe to call more than once.
func (pt *PollTimer) Stop() {
	pt.timer.Stop()
	select {
	case <-pt.done:
	default:
		close(pt.done)
	}
}
