package gen3plus

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/tsunproxy/gen3plus/internal/infos"
)

type handlerFunc func(c *Connection, f Frame) error

// handlers is the control-code dispatch table, the Go equivalent of the
// original's switch dict keyed by control code.
var handlers = map[uint16]handlerFunc{
	CtrlDeviceInd:   msgDeviceInd,
	CtrlDataInd:     msgDataInd,
	CtrlSyncStart:   msgSyncStart,
	CtrlSyncEnd:     msgSyncEnd,
	CtrlHeartbeat:   msgHeartbeat,
	CtrlCommandReq:  msgCommandReq,
	CtrlCommandResp: msgCommandResp,
}

const maxUnknownSNR = 3

// heartbeatInterval is the fixed interval (seconds) the proxy advises in
// every ack's heartbeat field, matching the original's _heartbeat().
const heartbeatInterval = 60

// requestFtype returns the frame-type byte a request/indication payload
// leads with, or 0 if the payload is empty.
func requestFtype(f Frame) byte {
	if len(f.Payload) == 0 {
		return 0
	}
	return f.Payload[0]
}

// buildAckPayload builds the 10-byte ack body every 0x1x10 response
// carries: ftype(1) | status(1)=0x01 | timestamp(4 LE) | heartbeat(4 LE),
// the Go equivalent of __send_ack_rsp's
// struct.pack('<BBLL', ftype, ack, timestamp(), heartbeat()).
func buildAckPayload(ftype byte, clk clock.Clock) []byte {
	buf := make([]byte, 10)
	buf[0] = ftype
	buf[1] = 0x01
	binary.LittleEndian.PutUint32(buf[2:6], uint32(clk.Now().Unix()))
	binary.LittleEndian.PutUint32(buf[6:10], heartbeatInterval)
	return buf
}

// msgDeviceInd handles the 0x4110 device-indication frame: it carries
// the logger's serial number and sensor list. The first serial seen is
// kept for the connection's lifetime (__set_serial_no). A device
// indication with a different serial is counted in Unknown_SNR; from the
// maxUnknownSNR-th such frame on it is not processed and the handler
// returns ErrAuthRequired, which dispatch logs without closing the
// connection. Frames of other control codes are dispatched whether or
// not a device indication has been seen.
func msgDeviceInd(c *Connection, f Frame) error {
	serial := f.Header.LoggerSerial
	if c.loggerSerial == 0 {
		c.loggerSerial = serial
	} else if c.loggerSerial != serial {
		c.unknownSNR++
		c.Store.Update(infos.UnknownSNR, infos.IntValue(int64(c.unknownSNR)))
		if c.unknownSNR >= maxUnknownSNR {
			return fmt.Errorf("%w: serial changed %d times", ErrAuthRequired, c.unknownSNR)
		}
	}

	if len(f.Payload) >= 2 {
		sensorList := binary.LittleEndian.Uint16(f.Payload[:2])
		c.Store.Update(infos.SensorList, infos.IntValue(int64(sensorList)))
		infos.ApplyNoInputs(c.Store, sensorList)
	}
	c.Store.Update(infos.InverterCnt, infos.IntValue(1))

	c.sendFrame(CtrlDeviceResp, buildAckPayload(requestFtype(f), c.clk))
	c.forward(Encode(f.Header, f.Payload))
	return nil
}

// msgDataInd handles 0x4210 data-indication frames, the logger's
// unsolicited telemetry push. Every (addr,value) pair is decoded against
// the dictionary selected by the sensor list seen in msgDeviceInd.
func msgDataInd(c *Connection, f Frame) error {
	sensorList := uint16(c.Store.GetInt(infos.SensorList, 0))
	dict := infos.RegisterMapFor(sensorList)

	const recordHeader = 4 // offset(2) + length(2) per TLV record, matching the wire layout grid-x/modbus-style PDUs use for register blocks
	for off := 0; off+recordHeader <= len(f.Payload); {
		addr := binary.BigEndian.Uint16(f.Payload[off : off+2])
		length := binary.BigEndian.Uint16(f.Payload[off+2 : off+4])
		start := off + recordHeader
		end := start + int(length)
		if end > len(f.Payload) {
			c.Store.Update(infos.InvalidMsgFormat, infos.IntValue(c.Store.GetInt(infos.InvalidMsgFormat, 0)+1))
			break
		}
		key := infos.MakeKey(0x42, 0x02, addr)
		if entry, ok := dict.Lookup(key); ok {
			if v, ok := entry.Decode(f.Payload[start:end]); ok {
				c.Store.Update(entry.Reg, v)
			} else {
				c.Store.Update(infos.InvalidDataType, infos.IntValue(c.Store.GetInt(infos.InvalidDataType, 0)+1))
			}
		}
		off = end
	}
	runCalcRows(c.Store, dict)
	infos.ApplyModel(c.Store)

	c.sendFrame(CtrlDataResp, buildAckPayload(requestFtype(f), c.clk))
	c.forward(Encode(f.Header, f.Payload))
	return nil
}

// runCalcRows evaluates every FmtCalc row in dict against the store's
// freshly updated raw registers (prod_sum/cmp_values derived fields).
func runCalcRows(s *infos.Store, dict *infos.Dictionary) {
	for _, row := range dict.Entries() {
		if row.Entry.Fmt != infos.FmtCalc || row.Entry.Calc == nil {
			continue
		}
		if v, ok := row.Entry.Calc(s); ok {
			s.Update(row.Entry.Reg, v)
		}
	}
}

// msgSyncStart handles 0x4310, sent once per session to establish the
// logger's notion of wall-clock time; the proxy just acknowledges it and
// relays it on.
func msgSyncStart(c *Connection, f Frame) error {
	c.sendFrame(CtrlSyncStartResp, buildAckPayload(requestFtype(f), c.clk))
	c.forward(Encode(f.Header, f.Payload))
	return nil
}

// msgSyncEnd handles 0x4810, the matching bookend to msgSyncStart.
func msgSyncEnd(c *Connection, f Frame) error {
	c.sendFrame(CtrlSyncEndResp, buildAckPayload(requestFtype(f), c.clk))
	c.forward(Encode(f.Header, f.Payload))
	return nil
}

// msgHeartbeat handles 0x4710 keepalives.
func msgHeartbeat(c *Connection, f Frame) error {
	c.sendFrame(CtrlHeartbeatResp, buildAckPayload(requestFtype(f), c.clk))
	c.forward(Encode(f.Header, f.Payload))
	return nil
}

// msgCommandReq handles 0x4510 command frames: either an AT command
// (ftype 0x01) subject to the ACL, or a Modbus request (ftype 0x02)
// forwarded straight through to the logger.
func msgCommandReq(c *Connection, f Frame) error {
	if len(f.Payload) == 0 {
		return fmt.Errorf("%w: empty command payload", ErrInvalidFraming)
	}
	ftype := f.Payload[0]
	switch ftype {
	case 0x01: // AT command
		const atHeaderLen = 15 // ftype(1) + 14 reserved bytes
		if len(f.Payload) < atHeaderLen {
			return fmt.Errorf("%w: AT payload too short", ErrInvalidFraming)
		}
		cmd := strings.TrimRight(string(f.Payload[atHeaderLen:]), "\r")
		origin := OriginTSUN
		if c.Role == RoleServer {
			origin = OriginMQTT
		}
		if !c.ACL.Allowed(origin, cmd) {
			c.Store.Update(infos.ATCommandBlocked, infos.IntValue(c.Store.GetInt(infos.ATCommandBlocked, 0)+1))
			if origin == OriginMQTT && c.Pub != nil {
				c.Pub.PublishATResponse(c.uniqueID(), cmd, true)
			}
			return fmt.Errorf("%w: %q", ErrATCommandBlocked, cmd)
		}
		c.Store.Update(infos.ATCommand, infos.IntValue(c.Store.GetInt(infos.ATCommand, 0)+1))
		c.forward(Encode(f.Header, f.Payload))
	case 0x02: // Modbus
		c.Store.Update(infos.ModbusCommand, infos.IntValue(c.Store.GetInt(infos.ModbusCommand, 0)+1))
		c.forward(Encode(f.Header, f.Payload))
	default:
		return fmt.Errorf("%w: command ftype %#02x", ErrUnknownControlCode, ftype)
	}
	return nil
}

// msgCommandResp handles 0x1510 command responses: a Modbus response is
// peeled out and delivered to the owning ModbusClient; anything else is
// just relayed to the peer.
func msgCommandResp(c *Connection, f Frame) error {
	if len(f.Payload) > 0 && f.Payload[0] == 0x02 && c.Modbus != nil {
		rtu, err := extractCommandRTU(f.Payload)
		if err == nil {
			c.Modbus.Deliver(rtu)
			return nil
		}
	}
	c.forward(Encode(f.Header, f.Payload))
	return nil
}
