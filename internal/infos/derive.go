package infos

// ProdSum multiplies each pair of registers and sums the products,
// mirroring RegisterFunc.prod_sum from the register dictionary: a
// derived power register built from several voltage*current pairs. A
// pair is skipped (treated as zero) when either operand is unset, so a
// battery with only one PV string still yields a sensible total.
func ProdSum(s *Store, pairs ...[2]Register) (Value, bool) {
	var sum float64
	any := false
	for _, pair := range pairs {
		a, aok := s.Get(pair[0])
		b, bok := s.Get(pair[1])
		if !aok || !bok {
			continue
		}
		sum += asFloat(a) * asFloat(b)
		any = true
	}
	if !any {
		return Value{}, false
	}
	return FloatValue(sum), true
}

// CmpValues implements RegisterFunc.cmp_values: compares src against
// pivot and yields one of three constant results depending on whether src
// is below, equal to, or above pivot.
func CmpValues(s *Store, src Register, pivot float64, below, equal, above Value) (Value, bool) {
	v, ok := s.Get(src)
	if !ok {
		return Value{}, false
	}
	f := asFloat(v)
	switch {
	case f < pivot:
		return below, true
	case f > pivot:
		return above, true
	default:
		return equal, true
	}
}

func asFloat(v Value) float64 {
	switch v.Kind {
	case KindFloat:
		return v.Flt
	case KindInt:
		return float64(v.Int)
	default:
		return 0
	}
}

func calcBattPVPwr(s *Store) (Value, bool) {
	return ProdSum(s,
		[2]Register{BattPV1Volt, BattPV1Cur},
		[2]Register{BattPV2Volt, BattPV2Cur},
	)
}

func calcBattPwr(s *Store) (Value, bool) {
	return ProdSum(s, [2]Register{BattVolt, BattCur})
}

func calcBattOutPwr(s *Store) (Value, bool) {
	return ProdSum(s, [2]Register{BattOutVolt, BattOutCur})
}

// calcBattPwrSuplState reports whether the battery is discharging (1),
// idle (0) or charging (-1) based on the sign of the derived output
// power, matching the original's three way BATT_PWR_SUPL_STATE mapping.
func calcBattPwrSuplState(s *Store) (Value, bool) {
	out, ok := calcBattOutPwr(s)
	if !ok {
		return Value{}, false
	}
	switch {
	case out.Flt > 0:
		return IntValue(1), true
	case out.Flt < 0:
		return IntValue(-1), true
	default:
		return IntValue(0), true
	}
}

// calcBattStatus mirrors BATT_STATUS: charging/discharging/idle text
// derived from the sign of the battery current.
func calcBattStatus(s *Store) (Value, bool) {
	return CmpValues(s, BattCur, 0.0,
		StringValue("charging"),
		StringValue("idle"),
		StringValue("discharging"),
	)
}
