package infos

import "fmt"

// InferModel synthesizes the EQUIPMENT_MODEL string from the two
// registers every microinverter reports regardless of firmware version:
// its maximum designed power and its rated power. Some power classes
// have a distinguished "rated" variant that only differs in rated power,
// so the table special-cases those instead of just printing the max.
// A power class the table does not know yields the placeholder
// TSOL-MSxx00.
func InferModel(maxDesignedPower, ratedPower int) string {
	switch maxDesignedPower {
	case 2000:
		switch ratedPower {
		case 800, 600:
			return "TSOL-MS2000(rated)"
		default:
			return "TSOL-MS2000"
		}
	case 1800, 1600:
		return fmt.Sprintf("TSOL-MS%d", maxDesignedPower)
	default:
		return "TSOL-MSxx00"
	}
}

// ApplyModel infers and stores EquipmentModel, Manufacturer and ChipType
// once a microinverter's power registers are known. It is a no-op until
// both MaxDesignedPower and RatedPower have been decoded, and only ever
// sets the registers once (SetDefault), matching the original's
// one-shot model-name build on first sight of the power registers.
func ApplyModel(s *Store) {
	maxP, ok1 := s.Get(MaxDesignedPower)
	ratedP, ok2 := s.Get(RatedPower)
	if !ok1 || !ok2 {
		return
	}
	model := InferModel(int(asFloat(maxP)), int(asFloat(ratedP)))
	s.SetDefault(EquipmentModel, StringValue(model))
	s.SetDefault(Manufacturer, StringValue("TSUN"))
	s.SetDefault(ChipType, StringValue("IGEN-TECH"))
}

// ApplyNoInputs records how many PV strings a sensor list implies, used
// to decide how many input/pvN groups to publish.
func ApplyNoInputs(s *Store, sensorList uint16) {
	switch sensorList {
	case SensorListMicroinverter:
		s.SetDefault(NoInputs, IntValue(4))
	case SensorListBatteryHybrid:
		s.SetDefault(NoInputs, IntValue(2))
	default:
		s.SetDefault(NoInputs, IntValue(0))
	}
}
