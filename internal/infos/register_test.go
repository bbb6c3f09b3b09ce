package infos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupForKnownRegisters(t *testing.T) {
	assert.Equal(t, GroupGrid, groupFor(GridVoltage))
	assert.Equal(t, GroupInputPV3, groupFor(PV3Current))
	assert.Equal(t, GroupProxy, groupFor(ATCommandBlocked))
}

func TestGroupForDefaultsToInverter(t *testing.T) {
	assert.Equal(t, GroupInverter, groupFor(OutputPower))
}
