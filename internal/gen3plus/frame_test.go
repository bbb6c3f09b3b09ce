package gen3plus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{ControlCode: CtrlHeartbeat, Serial: 7, LoggerSerial: 123456789}
	payload := []byte{0x01, 0x02, 0x03}

	raw := Encode(h, payload)

	frame, consumed, result := Parse(raw)
	require.Equal(t, Ok, result)
	assert.Equal(t, len(raw), consumed)
	assert.Equal(t, h.ControlCode, frame.Header.ControlCode)
	assert.Equal(t, h.Serial, frame.Header.Serial)
	assert.Equal(t, h.LoggerSerial, frame.Header.LoggerSerial)
	assert.Equal(t, payload, frame.Payload)
}

func TestParseNeedsMoreOnPartialFrame(t *testing.T) {
	raw := Encode(Header{ControlCode: CtrlHeartbeat}, []byte{0x01, 0x02})

	_, consumed, result := Parse(raw[:headerSize+1])
	assert.Equal(t, NeedMore, result)
	assert.Equal(t, 0, consumed)
}

func TestParseBadStartByteDropsWholeBuffer(t *testing.T) {
	raw := Encode(Header{ControlCode: CtrlHeartbeat}, []byte{0xAA})
	garbage := append([]byte{0x01, 0x02, 0x03}, raw...)

	// a corrupted start byte discredits the length field too, so the
	// whole buffer is dropped rather than hunting forward for the next
	// start byte: the valid frame behind the garbage is lost.
	_, consumed, result := Parse(garbage)
	require.Equal(t, Resync, result)
	assert.Equal(t, len(garbage), consumed)
}

func TestParseBadChecksumDropsOnlyThatFrame(t *testing.T) {
	raw := Encode(Header{ControlCode: CtrlHeartbeat}, []byte{0x01})
	raw[len(raw)-2] ^= 0xFF // corrupt checksum byte only

	_, consumed, result := Parse(raw)
	assert.Equal(t, BadTrailer, result)
	assert.Equal(t, len(raw), consumed)
}

func TestParseBadStopByteDropsWholeBufferWhenNothingFollowsLooksValid(t *testing.T) {
	raw := Encode(Header{ControlCode: CtrlHeartbeat}, []byte{0x01})
	raw[len(raw)-1] = 0x00 // corrupt stop byte
	trailing := append(raw, 0xAA, 0xBB)

	_, consumed, result := Parse(trailing)
	assert.Equal(t, BadTrailer, result)
	assert.Equal(t, len(trailing), consumed)
}

func TestParseBadStopByteFollowedByValidFrameDropsOnlyThatFrame(t *testing.T) {
	bad := Encode(Header{ControlCode: CtrlHeartbeat}, []byte{0x01})
	bad[len(bad)-1] = 0x00 // corrupt stop byte
	good := Encode(Header{ControlCode: CtrlDataInd}, []byte{0x02})
	buf := append(append([]byte{}, bad...), good...)

	// the byte right after the corrupt frame is a plausible start byte,
	// so only the corrupt frame is dropped and the good one behind it
	// still gets parsed next, satisfying invariant 3.
	_, consumed, result := Parse(buf)
	require.Equal(t, BadTrailer, result)
	assert.Equal(t, len(bad), consumed)

	frame, consumed2, result2 := Parse(buf[consumed:])
	require.Equal(t, Ok, result2)
	assert.Equal(t, len(good), consumed2)
	assert.Equal(t, CtrlDataInd, frame.Header.ControlCode)
}

func TestChecksumIsSumModulo256(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30, 0xF0}
	assert.Equal(t, byte((0x10+0x20+0x30+0xF0)&0xFF), checksum(data))
}
