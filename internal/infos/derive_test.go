package infos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProdSumSkipsIncompletePairs(t *testing.T) {
	s := NewStore()
	s.Update(BattPV1Volt, FloatValue(40.0))
	s.Update(BattPV1Cur, FloatValue(2.0))
	// PV2 deliberately left unset

	v, ok := calcBattPVPwr(s)
	require.True(t, ok)
	assert.Equal(t, 80.0, v.Flt)
}

func TestProdSumUnsetYieldsNoResult(t *testing.T) {
	s := NewStore()
	_, ok := calcBattPVPwr(s)
	assert.False(t, ok)
}

func TestCmpValuesPicksBranchBySign(t *testing.T) {
	s := NewStore()
	s.Update(BattCur, FloatValue(-1.5))
	v, ok := calcBattStatus(s)
	require.True(t, ok)
	assert.Equal(t, "discharging", v.Str)

	s.Update(BattCur, FloatValue(1.5))
	v, _ = calcBattStatus(s)
	assert.Equal(t, "charging", v.Str)

	s.Update(BattCur, FloatValue(0))
	v, _ = calcBattStatus(s)
	assert.Equal(t, "idle", v.Str)
}

func TestBattPwrSuplStateTracksOutputSign(t *testing.T) {
	s := NewStore()
	s.Update(BattOutVolt, FloatValue(48.0))
	s.Update(BattOutCur, FloatValue(2.0))

	v, ok := calcBattPwrSuplState(s)
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int)
}
