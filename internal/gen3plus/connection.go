package gen3plus

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tsunproxy/gen3plus/internal/infos"
	"github.com/tsunproxy/gen3plus/internal/mqttpub"
	"github.com/tsunproxy/gen3plus/internal/registry"
)

// Dialer opens the paired outbound connection to the TSUN cloud once a
// server-side connection has identified its logger. Production wiring
// is DialTCP, a plain net.Dialer.DialContext.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

// Connection is one half of a Gen3+ session: either the inverter-facing
// (server) side or the TSUN-cloud-facing (client) side. The two sides of
// a session are paired through the shared Registry rather than direct
// pointers, so tearing one down never leaves the other with a dangling
// reference to chase.
type Connection struct {
	ID       uuid.UUID
	Role     Role
	State    State
	log      *logrus.Entry
	conn     net.Conn
	reg      *registry.Registry[*Connection]
	self     registry.Handle
	remote   registry.Handle
	hasRemote bool

	seq     *Sequence
	Store   *infos.Store
	Modbus  *ModbusClient
	ACL     *ATAcl
	Pub     *mqttpub.Publisher
	clk     clock.Clock
	proc    *procWatch
	pollT   *PollTimer

	loggerSerial uint32
	unknownSNR   int
	modbusPoll   bool

	recvBuf    []byte
	sendBuf    []byte
	forwardBuf []byte

	cloudAddr string
	dial      Dialer
}

// NewConnection wraps an accepted (server-side) or dialed (client-side)
// net.Conn.
func NewConnection(conn net.Conn, role Role, reg *registry.Registry[*Connection], clk clock.Clock, log *logrus.Entry) *Connection {
	c := &Connection{
		Role:   role,
		State:  StateInit,
		log:    log,
		conn:   conn,
		reg:    reg,
		seq:    NewSequence(role),
		Store:  infos.NewStore(),
		ACL:    DefaultATAcl(),
		clk:    clk,
		proc:   newProcWatch(clk),
		recvBuf: make([]byte, 0, 4096),
	}
	c.self, c.ID = reg.Insert(c)
	return c
}

// SetRemoteDialer configures how and where a server-side connection
// dials its paired TSUN cloud connection on first forward.
func (c *Connection) SetRemoteDialer(dial Dialer, cloudAddr string) {
	c.dial = dial
	c.cloudAddr = cloudAddr
}

// SetPublisher wires the MQTT publisher a connection uses for its
// at_resp announcements on locally-blocked AT commands.
func (c *Connection) SetPublisher(pub *mqttpub.Publisher) {
	c.Pub = pub
}

// uniqueID identifies this connection's logger for MQTT topics, falling
// back to its registry UUID before the serial number has been learned.
func (c *Connection) uniqueID() string {
	if c.loggerSerial != 0 {
		return fmt.Sprintf("%d", c.loggerSerial)
	}
	return c.ID.String()
}

// Peer resolves the paired connection, if one exists and is still live.
func (c *Connection) Peer() (*Connection, bool) {
	if !c.hasRemote {
		return nil, false
	}
	peer, ok := c.reg.Lookup(c.remote)
	if !ok {
		c.hasRemote = false
	}
	return peer, ok
}

// Pair links two connections so each resolves the other through Peer().
func Pair(a, b *Connection) {
	a.remote, a.hasRemote = b.self, true
	b.remote, b.hasRemote = a.self, true
}

// Run drives the read/dispatch/forward/write cycle until the peer
// closes, a timeout fires, or ctx is cancelled. It mirrors
// AsyncStream.loop(): every iteration reads one chunk, dispatches
// whatever complete frames that chunk completed, then flushes pending
// writes and forwards.
func (c *Connection) Run(ctx context.Context) {
	defer c.teardown()

	buf := make([]byte, 4096)
	for {
		timeout := idleTimeout(c.State, c.Role, c.modbusPoll)
		_ = c.conn.SetReadDeadline(c.clk.Now().Add(timeout))

		n, err := c.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				c.log.WithField("timeout", timeout).Warn("dead connection timeout")
			} else {
				c.log.WithError(err).Debug("read error")
			}
			return
		}
		if n == 0 {
			c.log.WithError(ErrPeerClosed).Debug("peer closed")
			return
		}

		c.proc.start()
		c.recvBuf = append(c.recvBuf, buf[:n]...)
		c.consume()
		c.proc.stop()

		if err := c.flushSend(); err != nil {
			c.log.WithError(err).Debug("write error")
			return
		}
		if err := c.flushForward(); err != nil {
			c.log.WithError(err).Debug("forward error")
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// consume decodes and dispatches every complete frame currently sitting
// in recvBuf, looping through Resync/BadTrailer outcomes the same way
// the original's __parse_header retries after dropping bad bytes.
func (c *Connection) consume() {
	for {
		frame, n, result := Parse(c.recvBuf)
		switch result {
		case NeedMore:
			return
		case Resync:
			c.Store.Update(infos.InvalidMsgFormat, infos.IntValue(c.Store.GetInt(infos.InvalidMsgFormat, 0)+1))
			c.recvBuf = c.recvBuf[n:]
			if n == 0 {
				return
			}
			continue
		case BadTrailer:
			c.Store.Update(infos.InvalidMsgFormat, infos.IntValue(c.Store.GetInt(infos.InvalidMsgFormat, 0)+1))
			c.recvBuf = c.recvBuf[n:]
			continue
		case Ok:
			c.recvBuf = c.recvBuf[n:]
			c.seq.SetRecv(frame.Header.Serial)
			c.dispatch(frame)
		}
	}
}

// dispatch routes a decoded frame to its handler and promotes the
// connection's state per promotesToUp.
func (c *Connection) dispatch(f Frame) {
	defer func() {
		if r := recover(); r != nil {
			c.Store.Update(infos.SWException, infos.IntValue(c.Store.GetInt(infos.SWException, 0)+1))
			c.log.WithField("panic", r).Error("handler panic")
		}
	}()

	if c.State == StateInit {
		c.State = StateReceived
	}
	if c.State == StateReceived && promotesToUp(f.Header.ControlCode) {
		c.State = StateUp
		c.startModbusPolling()
	}

	h, ok := handlers[f.Header.ControlCode]
	if !ok {
		c.Store.Update(infos.UnknownMsg, infos.IntValue(c.Store.GetInt(infos.UnknownMsg, 0)+1))
		c.log.WithField("ctrl", fmt.Sprintf("%#04x", f.Header.ControlCode)).Debug("unknown control code")
		return
	}
	if err := h(c, f); err != nil {
		c.log.WithError(err).Debug("handler error")
	}
}

// sendFrame appends an encoded frame to the outbound buffer; it is
// flushed to the socket at the end of the current Run iteration, same as
// the original batching all replies into _send_buffer for one write().
func (c *Connection) sendFrame(ctrl uint16, payload []byte) {
	h := Header{ControlCode: ctrl, Serial: c.seq.Next(), LoggerSerial: c.loggerSerial}
	c.sendBuf = append(c.sendBuf, Encode(h, payload)...)
}

// forward queues raw bytes (typically the frame just received) to be
// relayed to the paired connection; flushForward rewrites each queued
// frame's sequence and checksum before relaying it.
func (c *Connection) forward(raw []byte) {
	c.forwardBuf = append(c.forwardBuf, raw...)
}

func (c *Connection) flushSend() error {
	if len(c.sendBuf) == 0 {
		return nil
	}
	_, err := c.conn.Write(c.sendBuf)
	c.sendBuf = c.sendBuf[:0]
	return err
}

// flushForward relays forwardBuf to the peer, dialing it lazily if the
// pairing hasn't been established yet (async_create_remote).
func (c *Connection) flushForward() error {
	if len(c.forwardBuf) == 0 {
		return nil
	}
	peer, ok := c.Peer()
	if !ok {
		if c.Role != RoleServer || c.dial == nil || c.cloudAddr == "" {
			return fmt.Errorf("gen3plus: no peer to forward to")
		}
		remote, err := ConnectRemote(context.Background(), c, c.dial, c.cloudAddr, c.reg, c.clk, c.log)
		if err != nil {
			return fmt.Errorf("gen3plus: dialing remote: %w", err)
		}
		peer = remote
		go peer.Run(context.Background())
	}
	for off := 0; off+minFrame <= len(c.forwardBuf); {
		n := minFrame + int(binary.LittleEndian.Uint16(c.forwardBuf[off+1:off+3]))
		if off+n > len(c.forwardBuf) {
			break
		}
		updateHeaderSerial(c.forwardBuf[off:off+n], peer.seq.Next())
		off += n
	}
	_, err := peer.conn.Write(c.forwardBuf)
	c.forwardBuf = c.forwardBuf[:0]
	return err
}

// updateHeaderSerial rewrites the serial field of an already-encoded
// frame and recomputes its checksum in place, the Go equivalent of
// _update_header patching the forward buffer before relaying it.
func updateHeaderSerial(raw []byte, serial uint16) {
	if len(raw) < headerSize+trailerSize {
		return
	}
	raw[5] = byte(serial)
	raw[6] = byte(serial >> 8)
	checksumIdx := len(raw) - 2
	raw[checksumIdx] = checksum(raw[1:checksumIdx])
}

// Healthy reports whether this connection is fit per the health-check
// endpoint: not closed, and not stuck mid-processing.
func (c *Connection) Healthy() bool {
	return c.State != StateClosed && c.proc.healthy()
}

// Close hard-closes the underlying socket, unblocking Run's pending
// Read so the connection's goroutine exits and tears itself down. Used
// by the second, non-graceful phase of server shutdown.
func (c *Connection) Close() {
	_ = c.conn.Close()
}

// teardown marks the connection closed, stops its poll timer and frees
// its registry slot. Mirrors AsyncStream.close(): idempotent, safe to
// call once the read loop exits for any reason.
func (c *Connection) teardown() {
	if c.State == StateClosed {
		return
	}
	if outputPower, ok := c.Store.Get(infos.OutputPower); ok {
		if v := asFloatPublic(outputPower); v < 2 {
			c.Store.Update(infos.InverterStatus, infos.IntValue(0))
			c.Store.MarkDirty(infos.GroupEnv)
		}
	}
	c.State = StateClosed
	if c.pollT != nil {
		c.pollT.Stop()
	}
	_ = c.conn.Close()
	c.reg.Remove(c.self)
}

// asFloatPublic widens a Value the same way infos.asFloat does; kept
// local since that helper is unexported across package boundaries.
func asFloatPublic(v infos.Value) float64 {
	switch v.Kind {
	case infos.KindFloat:
		return v.Flt
	case infos.KindInt:
		return float64(v.Int)
	default:
		return 0
	}
}

// startModbusPolling arms the 40s/60s poll timer once a server-side
// connection reaches State_up; called from dispatch on that transition,
// whatever the sensor list.
func (c *Connection) startModbusPolling() {
	if c.pollT != nil || c.Role != RoleServer {
		return
	}
	c.modbusPoll = true
	c.Modbus = NewModbusClient(1, func(rtu []byte) {
		c.sendFrame(CtrlCommandReq, buildCommandPayload(rtu))
	})
	c.pollT = NewPollTimer(c.clk, func(extended bool) {
		go c.pollRegisters(extended)
	})
}

// pollRegisters issues the two blocking reads the original's
// mb_timout_cb performs: the main telemetry block every expiry, and
// every 30th expiry an additional extended block.
func (c *Connection) pollRegisters(extended bool) {
	raw, err := c.Modbus.ReadHoldingRegisters(0x3000, 48, 5*time.Second)
	if err != nil {
		c.log.WithError(err).Debug("modbus poll failed")
		return
	}
	c.decodeModbusBlock(0x3000, raw)

	if !extended {
		return
	}
	raw, err = c.Modbus.ReadHoldingRegisters(0x2000, 96, 5*time.Second)
	if err != nil {
		c.log.WithError(err).Debug("modbus extended poll failed")
		return
	}
	c.decodeModbusBlock(0x2000, raw)
}

// decodeModbusBlock walks a block of 16 bit registers starting at
// baseAddr and feeds each one through the dictionary for the
// connection's current sensor list.
func (c *Connection) decodeModbusBlock(baseAddr uint16, raw []byte) {
	sensorList := uint16(c.Store.GetInt(infos.SensorList, 0))
	dict := infos.RegisterMapFor(sensorList)
	for off := 0; off+2 <= len(raw); off += 2 {
		addr := baseAddr + uint16(off/2)
		key := infos.MakeKey(0x42, 0x02, addr)
		entry, ok := dict.Lookup(key)
		if !ok {
			continue
		}
		v, ok := entry.Decode(raw[off : off+2])
		if !ok {
			c.Store.Update(infos.InvalidDataType, infos.IntValue(c.Store.GetInt(infos.InvalidDataType, 0)+1))
			continue
		}
		c.Store.Update(entry.Reg, v)
	}
	infos.ApplyModel(c.Store)
}

// buildCommandPayload wraps an RTU frame in the Solarman V5
// command-request payload layout (frame type, sensor type, working
// time, power-on time, then the RTU bytes), the same fields
// SolarmanV5RequestPayload carries.
func buildCommandPayload(rtu []byte) []byte {
	payload := make([]byte, 0, 11+len(rtu))
	payload = append(payload, 0x02)             // frame type: modbus
	payload = append(payload, 0x00, 0x00)       // sensor type
	payload = append(payload, 0, 0, 0, 0)       // total working time
	payload = append(payload, 0, 0, 0, 0)       // power-on time, filled by caller if needed
	payload = append(payload, rtu...)
	return payload
}

// extractCommandRTU pulls the embedded Modbus RTU frame back out of a
// command frame's payload, the receiving half of buildCommandPayload.
func extractCommandRTU(payload []byte) ([]byte, error) {
	const commandPayloadMin = 11
	if len(payload) < commandPayloadMin {
		return nil, fmt.Errorf("%w: command payload too short", ErrInvalidFraming)
	}
	return payload[commandPayloadMin:], nil
}
