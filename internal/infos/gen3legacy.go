package infos

// Gen3 legacy support.
//
// The original Gen3 loggers (pre-Solarman V5) speak a much smaller,
// text-oriented dialect of the same reporting protocol. Decoding that
// framing is out of scope here (see internal/gen3), but the legacy
// loggers report a subset of the same physical quantities, so they share
// this package's Store and Register set rather than keeping a parallel
// database.
//
// legacyDictionary only needs the handful of registers the Gen3 "data"
// record actually carries; everything else a Gen3 connection might want
// to report (proxy counters, model name) reuses the same Register
// constants as Gen3+.
var legacyDictionary = buildLegacyDictionary()

const (
	msgTypeLegacyData uint8 = 0x91
	ftypeLegacy       uint8 = 0x00
)

func buildLegacyDictionary() *Dictionary {
	d := newDictionary()
	row := func(addr uint16, reg Register, f WireFmt, ratio float64, unit string) {
		d.add(MakeKey(msgTypeLegacyData, ftypeLegacy, addr), Entry{Reg: reg, Fmt: f, Ratio: ratio, Unit: unit})
	}
	row(0x00, SerialNumber, FmtUTF8, 0, "")
	row(0x01, GridVoltage, FmtUint16, 0.1, "V")
	row(0x02, GridFrequency, FmtUint16, 0.01, "Hz")
	row(0x03, OutputPower, FmtUint16, 1, "W")
	row(0x04, InverterTemp, FmtInt16, 1, "°C")
	row(0x05, DailyGeneration, FmtUint16, 0.01, "kWh")
	row(0x06, TotalGeneration, FmtUint32, 0.01, "kWh")
	return d
}

// LegacyRegisterMap returns the Gen3 record dictionary. It never varies
// by sensor list: the legacy wire format predates that concept.
func LegacyRegisterMap() *Dictionary {
	return legacyDictionary
}
