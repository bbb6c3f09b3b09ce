package infos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMapForMicroinverterIncludesBaseAndBlock(t *testing.T) {
	d := RegisterMapFor(SensorListMicroinverter)

	_, ok := d.Lookup(MakeKey(msgTypeDevice, ftypeModbusMap, 0x0000))
	assert.True(t, ok, "base block rows must be present")

	e, ok := d.Lookup(MakeKey(msgTypeData, ftypeModbusMap, 0x2016))
	require.True(t, ok)
	assert.Equal(t, GridVoltage, e.Reg)
}

func TestRegisterMapForBatteryHybridHasCalcRows(t *testing.T) {
	d := RegisterMapFor(SensorListBatteryHybrid)
	found := false
	for _, row := range d.Entries() {
		if row.Entry.Reg == BattPwr && row.Entry.Fmt == FmtCalc {
			found = true
		}
	}
	assert.True(t, found, "battery dictionary must carry the derived BattPwr row")
}

func TestRegisterMapForUnknownSensorListFallsBackToBase(t *testing.T) {
	d := RegisterMapFor(0xFFFF)
	_, ok := d.Lookup(MakeKey(msgTypeData, ftypeModbusMap, 0x2016))
	assert.False(t, ok, "an unrecognised sensor list must not pull in microinverter rows")
}
