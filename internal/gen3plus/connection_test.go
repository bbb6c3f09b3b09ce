package gen3plus

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsunproxy/gen3plus/internal/infos"
	"github.com/tsunproxy/gen3plus/internal/registry"
)

func newTestConnection(t *testing.T, conn net.Conn) (*Connection, *registry.Registry[*Connection]) {
	t.Helper()
	reg := registry.New[*Connection]()
	log := logrus.New()
	log.SetOutput(testWriter{t})
	c := NewConnection(conn, RoleServer, reg, clock.New(), logrus.NewEntry(log))
	return c, reg
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

func readFrame(t *testing.T, conn net.Conn) Frame {
	t.Helper()
	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	frame, consumed, result := Parse(buf[:n])
	require.Equal(t, Ok, result)
	require.Equal(t, n, consumed)
	return frame
}

func TestConnectionPromotesStateOnDataIndication(t *testing.T) {
	peerSide, proxySide := net.Pipe()
	defer peerSide.Close()

	c, _ := newTestConnection(t, proxySide)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	// device-indication: sensor list 0x02b0 (microinverter)
	sensorPayload := make([]byte, 2)
	binary.LittleEndian.PutUint16(sensorPayload, infos.SensorListMicroinverter)
	devFrame := Encode(Header{ControlCode: CtrlDeviceInd, LoggerSerial: 555}, sensorPayload)
	_, err := peerSide.Write(devFrame)
	require.NoError(t, err)
	readFrame(t, peerSide) // ack

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateReceived, c.State, "a bare device-indication must not promote to up")
	assert.Equal(t, int64(infos.SensorListMicroinverter), c.Store.GetInt(infos.SensorList, 0))

	// data-indication: grid voltage register, addr 0x2016, raw 0x0906 => 231.0V
	payload := make([]byte, 4+2)
	binary.BigEndian.PutUint16(payload[0:2], 0x2016)
	binary.BigEndian.PutUint16(payload[2:4], 2)
	payload[4], payload[5] = 0x09, 0x06
	dataFrame := Encode(Header{ControlCode: CtrlDataInd, LoggerSerial: 555}, payload)
	_, err = peerSide.Write(dataFrame)
	require.NoError(t, err)
	readFrame(t, peerSide) // ack

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateUp, c.State, "data-indication traffic must promote a received connection to up")
	assert.InDelta(t, 231.0, c.Store.GetFloat(infos.GridVoltage, 0), 0.01)
}

func TestConnectionBadChecksumIncrementsCounterAndKeepsGoing(t *testing.T) {
	peerSide, proxySide := net.Pipe()
	defer peerSide.Close()

	c, _ := newTestConnection(t, proxySide)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	bad := Encode(Header{ControlCode: CtrlHeartbeat}, []byte{0x01})
	bad[len(bad)-2] ^= 0xFF
	_, err := peerSide.Write(bad)
	require.NoError(t, err)

	good := Encode(Header{ControlCode: CtrlHeartbeat}, []byte{0x02})
	_, err = peerSide.Write(good)
	require.NoError(t, err)
	readFrame(t, peerSide) // ack for the good frame

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), c.Store.GetInt(infos.InvalidMsgFormat, 0))
}

func TestATCommandBlockedByACL(t *testing.T) {
	peerSide, proxySide := net.Pipe()
	defer peerSide.Close()

	c, _ := newTestConnection(t, proxySide)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	payload := append([]byte{0x01}, make([]byte, 14)...) // ftype + 14 reserved bytes
	payload = append(payload, []byte("AT+Z=1\r")...)
	frame := Encode(Header{ControlCode: CtrlCommandReq}, payload)
	_, err := peerSide.Write(frame)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), c.Store.GetInt(infos.ATCommandBlocked, 0))
}
