package gen3plus

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	gxmodbus "github.com/grid-x/modbus"
)

// Modbus function codes used by the register poll and the occasional
// write-register command relayed from Home Assistant.
const (
	FuncReadHoldingRegisters byte = 0x03
	FuncWriteSingleRegister  byte = 0x06
)

// ModbusClient is the embedded Modbus-RTU-over-V5 master: it builds RTU
// PDUs the same way evcc's SolarmanV5Client does, but instead of owning
// its own net.Conn it hands frames to the owning Connection's send
// buffer and is fed responses the dispatch loop peels out of
// command-response (0x1510) frames. One request is ever outstanding at a
// time, matching the original _send_modbus_cmd/send_modbus_cb pairing.
type ModbusClient struct {
	mu      sync.Mutex
	slaveID byte
	pending *pendingRequest
	send    func(rtu []byte) // hands an RTU frame to the owning connection
}

type pendingRequest struct {
	pdu     gxmodbus.ProtocolDataUnit
	deliver chan modbusResult
	timer   *time.Timer
}

type modbusResult struct {
	pdu gxmodbus.ProtocolDataUnit
	err error
}

// NewModbusClient builds a client bound to slaveID, using send to hand
// completed RTU request frames to the owning connection.
func NewModbusClient(slaveID byte, send func(rtu []byte)) *ModbusClient {
	return &ModbusClient{slaveID: slaveID, send: send}
}

// ReadHoldingRegisters issues function code 0x03 and blocks (up to
// timeout) for the matching response, which Deliver supplies once the
// dispatch loop sees it arrive in a command-response frame.
func (c *ModbusClient) ReadHoldingRegisters(addr, quantity uint16, timeout time.Duration) ([]byte, error) {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], quantity)
	pdu := gxmodbus.ProtocolDataUnit{FunctionCode: FuncReadHoldingRegisters, Data: data}
	resp, err := c.do(pdu, timeout)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) < 1 {
		return nil, fmt.Errorf("%w: short read-holding-registers response", ErrModbusFault)
	}
	byteCount := int(resp.Data[0])
	if len(resp.Data) < 1+byteCount {
		return nil, fmt.Errorf("%w: truncated read-holding-registers response", ErrModbusFault)
	}
	return resp.Data[1 : 1+byteCount], nil
}

// WriteSingleRegister issues function code 0x06, used to relay a
// Home-Assistant-initiated write down to the inverter.
func (c *ModbusClient) WriteSingleRegister(addr, value uint16, timeout time.Duration) error {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], value)
	pdu := gxmodbus.ProtocolDataUnit{FunctionCode: FuncWriteSingleRegister, Data: data}
	_, err := c.do(pdu, timeout)
	return err
}

func (c *ModbusClient) do(pdu gxmodbus.ProtocolDataUnit, timeout time.Duration) (gxmodbus.ProtocolDataUnit, error) {
	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return gxmodbus.ProtocolDataUnit{}, fmt.Errorf("gen3plus: modbus request already in flight")
	}
	req := &pendingRequest{pdu: pdu, deliver: make(chan modbusResult, 1)}
	c.pending = req
	c.mu.Unlock()

	req.timer = time.AfterFunc(timeout, func() {
		c.mu.Lock()
		if c.pending == req {
			c.pending = nil
		}
		c.mu.Unlock()
		req.deliver <- modbusResult{err: ErrModbusTimeout}
	})

	c.send(buildRTURequest(c.slaveID, pdu))

	res := <-req.deliver
	req.timer.Stop()
	return res.pdu, res.err
}

// Deliver feeds the RTU bytes extracted from an inbound command-response
// frame to whichever request is outstanding. It is a no-op if nothing is
// pending (a stray or duplicate response).
func (c *ModbusClient) Deliver(rtu []byte) {
	c.mu.Lock()
	req := c.pending
	c.pending = nil
	c.mu.Unlock()
	if req == nil {
		return
	}
	req.timer.Stop()
	pdu, err := parseRTUResponse(rtu, req.pdu.FunctionCode)
	req.deliver <- modbusResult{pdu: pdu, err: err}
}

// buildRTURequest assembles a Modbus RTU frame: slave id, function code,
// data, CRC16 (little endian), the same layout evcc's
// SolarmanV5Client.buildModbusRequest uses.
func buildRTURequest(slaveID byte, pdu gxmodbus.ProtocolDataUnit) []byte {
	frame := make([]byte, 0, 2+len(pdu.Data)+2)
	frame = append(frame, slaveID, pdu.FunctionCode)
	frame = append(frame, pdu.Data...)
	crc := crc16(frame)
	frame = append(frame, byte(crc), byte(crc>>8))
	return frame
}

// parseRTUResponse validates an RTU response's CRC and exception bit
// and returns the decoded PDU, mirroring
// SolarmanV5Client.parseModbusResponse.
func parseRTUResponse(rtu []byte, wantFunc byte) (gxmodbus.ProtocolDataUnit, error) {
	if len(rtu) < 4 {
		return gxmodbus.ProtocolDataUnit{}, fmt.Errorf("%w: short RTU frame", ErrModbusFault)
	}
	payload, gotCRC := rtu[:len(rtu)-2], binary.LittleEndian.Uint16(rtu[len(rtu)-2:])
	if crc16(payload) != gotCRC {
		return gxmodbus.ProtocolDataUnit{}, fmt.Errorf("%w: CRC mismatch", ErrModbusFault)
	}
	funcCode := payload[1]
	if funcCode&0x80 != 0 {
		exCode := byte(0)
		if len(payload) > 2 {
			exCode = payload[2]
		}
		return gxmodbus.ProtocolDataUnit{}, fmt.Errorf("%w: exception code %#02x", ErrModbusFault, exCode)
	}
	if funcCode != wantFunc {
		return gxmodbus.ProtocolDataUnit{}, fmt.Errorf("%w: function code mismatch, got %#02x want %#02x", ErrModbusFault, funcCode, wantFunc)
	}
	return gxmodbus.ProtocolDataUnit{FunctionCode: funcCode, Data: payload[2:]}, nil
}

// crc16 is the standard Modbus CRC16 (poly 0xA001), identical to
// evcc's util/modbus crc16 helper.
func crc16(data []byte) uint16 {
	const poly = 0xA001
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
