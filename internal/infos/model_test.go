package infos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferModel(t *testing.T) {
	cases := []struct {
		maxPower, ratedPower int
		want                 string
	}{
		{2000, 800, "TSOL-MS2000(rated)"},
		{2000, 600, "TSOL-MS2000(rated)"},
		{2000, 2000, "TSOL-MS2000"},
		{1800, 1800, "TSOL-MS1800"},
		{1600, 1600, "TSOL-MS1600"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, InferModel(c.maxPower, c.ratedPower))
	}
}

func TestApplyModelWaitsForBothRegisters(t *testing.T) {
	s := NewStore()
	ApplyModel(s)
	_, ok := s.Get(EquipmentModel)
	assert.False(t, ok, "model must not be synthesized before both power registers are known")

	s.Update(MaxDesignedPower, IntValue(2000))
	ApplyModel(s)
	_, ok = s.Get(EquipmentModel)
	assert.False(t, ok)

	s.Update(RatedPower, IntValue(800))
	ApplyModel(s)
	assert.Equal(t, "TSOL-MS2000(rated)", s.GetString(EquipmentModel, ""))
}
