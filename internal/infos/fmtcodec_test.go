package infos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUint16WithRatio(t *testing.T) {
	e := Entry{Reg: GridVoltage, Fmt: FmtUint16, Ratio: 0.1}
	v, ok := e.Decode([]byte{0x09, 0x06}) // 0x0906 = 2310 -> 231.0V
	require.True(t, ok)
	assert.InDelta(t, 231.0, v.Flt, 0.001)
}

func TestDecodeInt16Negative(t *testing.T) {
	e := Entry{Reg: InverterTemp, Fmt: FmtInt16}
	v, ok := e.Decode([]byte{0xFF, 0xF6}) // -10
	require.True(t, ok)
	assert.Equal(t, int64(-10), v.Int)
}

func TestDecodeMac(t *testing.T) {
	e := Entry{Reg: MacAddr, Fmt: FmtMac}
	v, ok := e.Decode([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01})
	require.True(t, ok)
	assert.Equal(t, "de:ad:be:ef:00:01", v.Str)
}

func TestDecodeShortBufferFails(t *testing.T) {
	e := Entry{Reg: GridVoltage, Fmt: FmtUint16}
	_, ok := e.Decode([]byte{0x01})
	assert.False(t, ok)
}

func TestDecodeHex4(t *testing.T) {
	e := Entry{Reg: BattHwVers, Fmt: FmtHex4}
	v, ok := e.Decode([]byte{0x01, 0x0a})
	require.True(t, ok)
	assert.Equal(t, "010a", v.Str)
}
