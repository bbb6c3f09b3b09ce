package infos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpdateReportsChange(t *testing.T) {
	s := NewStore()

	changed, ok := s.Update(GridVoltage, FloatValue(230.0))
	require.True(t, ok)
	assert.True(t, changed)

	changed, ok = s.Update(GridVoltage, FloatValue(230.0))
	require.True(t, ok)
	assert.False(t, changed, "identical value should not count as a change")

	changed, ok = s.Update(GridVoltage, FloatValue(231.5))
	require.True(t, ok)
	assert.True(t, changed)
}

func TestStoreUpdateRejectsKindMismatch(t *testing.T) {
	s := NewStore()
	_, ok := s.Update(SerialNumber, StringValue("ABC123"))
	require.True(t, ok)

	_, ok = s.Update(SerialNumber, IntValue(42))
	assert.False(t, ok, "a string register must never be silently replaced by a number")

	v, _ := s.Get(SerialNumber)
	assert.Equal(t, "ABC123", v.Str, "the rejected update must not have taken effect")
}

func TestStoreSetDefaultOnlyAppliesOnce(t *testing.T) {
	s := NewStore()
	s.SetDefault(Manufacturer, StringValue("TSUN"))
	s.SetDefault(Manufacturer, StringValue("someone-else"))

	assert.Equal(t, "TSUN", s.GetString(Manufacturer, ""))
}

func TestStoreDirtyGroupsDrainsOnRead(t *testing.T) {
	s := NewStore()
	s.Update(GridVoltage, FloatValue(230.0))
	s.Update(PV1Power, IntValue(100))

	groups := s.DirtyGroups()
	assert.ElementsMatch(t, []TopicGroup{GroupGrid, GroupInputPV1}, groups)

	assert.Empty(t, s.DirtyGroups(), "a second read before any further update must be empty")
}

func TestGetFloatWidensIntValues(t *testing.T) {
	s := NewStore()
	s.Update(OutputPower, IntValue(500))
	assert.Equal(t, 500.0, s.GetFloat(OutputPower, -1))
}
