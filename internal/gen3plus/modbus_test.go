package gen3plus

import (
	"testing"
	"time"

	gxmodbus "github.com/grid-x/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRTURequestEncoding(t *testing.T) {
	data := make([]byte, 4)
	data[0], data[1] = 0x30, 0x00 // addr 0x3000
	data[2], data[3] = 0x00, 0x30 // quantity 48

	frame := buildRTURequest(1, gxmodbus.ProtocolDataUnit{FunctionCode: FuncReadHoldingRegisters, Data: data})
	t.Logf("rtu request: % x", frame)

	require.Len(t, frame, 8)
	assert.Equal(t, byte(1), frame[0], "slave id")
	assert.Equal(t, FuncReadHoldingRegisters, frame[1])
	gotCRC := uint16(frame[6]) | uint16(frame[7])<<8
	assert.Equal(t, crc16(frame[:6]), gotCRC)
}

func TestParseRTUResponseRejectsBadCRC(t *testing.T) {
	frame := buildRTURequest(1, gxmodbus.ProtocolDataUnit{FunctionCode: FuncReadHoldingRegisters, Data: []byte{0, 0, 0, 1}})
	frame[len(frame)-1] ^= 0xFF

	_, err := parseRTUResponse(frame, FuncReadHoldingRegisters)
	require.Error(t, err)
}

func TestParseRTUResponseRejectsExceptionBit(t *testing.T) {
	payload := []byte{1, FuncReadHoldingRegisters | 0x80, 0x02}
	crc := crc16(payload)
	frame := append(payload, byte(crc), byte(crc>>8))

	_, err := parseRTUResponse(frame, FuncReadHoldingRegisters)
	require.ErrorIs(t, err, ErrModbusFault)
}

func TestModbusClientRoundTrip(t *testing.T) {
	var sent []byte
	client := NewModbusClient(1, func(rtu []byte) { sent = rtu })

	done := make(chan struct{})
	go func() {
		raw, err := client.ReadHoldingRegisters(0x3000, 2, time.Second)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x02}, raw)
		close(done)
	}()

	// wait until the client has actually sent its request
	for sent == nil {
		time.Sleep(time.Millisecond)
	}

	respData := append([]byte{byte(4)}, 0x00, 0x01, 0x00, 0x02)
	payload := append([]byte{1, FuncReadHoldingRegisters}, respData...)
	crc := crc16(payload)
	rtu := append(payload, byte(crc), byte(crc>>8))

	client.Deliver(rtu)
	<-done
}

func TestModbusClientTimesOut(t *testing.T) {
	client := NewModbusClient(1, func(rtu []byte) {})
	_, err := client.ReadHoldingRegisters(0x3000, 2, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrModbusTimeout)
}
