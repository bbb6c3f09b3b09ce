package infos

// Key is the composite dictionary key the wire uses to address a register:
// the outer V5 message type, the inner frame type (ftype) and the 16 bit
// Modbus-style register address, packed as msg_type:8 | ftype:8 | addr:16.
// Packing all three into one integer lets one flat, ordered map stand in
// for what the dictionary really is: an address decoder.
type Key uint32

// MakeKey builds the composite dictionary key for a wire field.
func MakeKey(msgType, ftype uint8, addr uint16) Key {
	return Key(msgType)<<24 | Key(ftype)<<16 | Key(addr)
}

// WireFmt names how an Entry's bytes are laid out on the wire.
type WireFmt int

const (
	FmtUint8 WireFmt = iota
	FmtUint16
	FmtUint32
	FmtInt16
	FmtInt32
	FmtUTF8
	FmtMac
	FmtVersion // major.minor packed into 2 bytes
	FmtHex4    // 2 raw bytes rendered as a 4 hex-digit string
	FmtConst   // no wire bytes consumed; Entry.Const is used verbatim
	FmtCalc    // value is produced by a CalcFunc, not read off the wire
)

// CalcFunc computes a derived register from already-decoded ones.
type CalcFunc func(s *Store) (Value, bool)

// Entry is one row of the register dictionary: how to decode (or
// synthesize) one register, and the scaling needed to turn the raw wire
// integer into an engineering-unit Value.
type Entry struct {
	Reg      Register
	Fmt      WireFmt
	Length   int     // byte width on the wire, 0 uses Fmt's natural width
	Ratio    float64 // multiplied into the raw integer, 0 means 1
	Offset   float64 // added after scaling
	Unit     string
	Const    Value
	Calc     CalcFunc
	MinProxy int // register only applies from this proxy mode upward, 0 = always
}

func (e Entry) ratio() float64 {
	if e.Ratio == 0 {
		return 1
	}
	return e.Ratio
}

// Dictionary is an ordered register map: entries are visited in
// declaration order when building an outbound snapshot (e.g. for a
// Home Assistant discovery payload), matching the original's reliance on
// Python's ordered-dict semantics.
type Dictionary struct {
	order []Key
	byKey map[Key]Entry
}

func newDictionary() *Dictionary {
	return &Dictionary{byKey: make(map[Key]Entry)}
}

func (d *Dictionary) add(key Key, e Entry) {
	if _, exists := d.byKey[key]; !exists {
		d.order = append(d.order, key)
	}
	d.byKey[key] = e
}

// merge copies all rows of other into d, preserving other's order after
// d's own rows. Used to layer a sensor-list-specific block on top of the
// common device block.
func (d *Dictionary) merge(other *Dictionary) {
	for _, k := range other.order {
		d.add(k, other.byKey[k])
	}
}

// Lookup finds the Entry for a wire field, reporting false for an address
// the dictionary has no opinion about (Unknown_Msg territory).
func (d *Dictionary) Lookup(key Key) (Entry, bool) {
	e, ok := d.byKey[key]
	return e, ok
}

// Entries returns the dictionary rows in declaration order.
func (d *Dictionary) Entries() []struct {
	Key   Key
	Entry Entry
} {
	out := make([]struct {
		Key   Key
		Entry Entry
	}, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, struct {
			Key   Key
			Entry Entry
		}{k, d.byKey[k]})
	}
	return out
}

// Sensor list identifiers carried in the device-indication message; they
// select which telemetry block the data-indication rows are decoded
// against.
const (
	SensorListMicroinverter uint16 = 0x02b0
	SensorListBatteryHybrid uint16 = 0x3026
)

const (
	msgTypeDevice  uint8 = 0x41
	msgTypeData    uint8 = 0x42
	ftypeModbusMap uint8 = 0x02
)

var baseDictionary = buildBaseDictionary()
var microinverterDictionary = buildMicroinverterDictionary()
var batteryHybridDictionary = buildBatteryHybridDictionary()

// RegisterMapFor returns the full dictionary (base block merged with the
// sensor-list-specific block) to decode data-indication frames received
// from a logger that advertised sensorList in its device-indication
// frame. An unrecognised sensor list falls back to the base block alone,
// matching RegisterSel.get() in the original.
func RegisterMapFor(sensorList uint16) *Dictionary {
	d := newDictionary()
	d.merge(baseDictionary)
	switch sensorList {
	case SensorListMicroinverter:
		d.merge(microinverterDictionary)
	case SensorListBatteryHybrid:
		d.merge(batteryHybridDictionary)
	}
	return d
}

func buildBaseDictionary() *Dictionary {
	d := newDictionary()
	row := func(addr uint16, reg Register, f WireFmt, ratio float64, unit string) {
		d.add(MakeKey(msgTypeDevice, ftypeModbusMap, addr), Entry{Reg: reg, Fmt: f, Ratio: ratio, Unit: unit})
	}
	row(0x0000, DataUpInterval, FmtUint16, 0, "s")
	row(0x0001, CollectInterval, FmtUint16, 0, "s")
	row(0x0002, HeartbeatInterval, FmtUint16, 0, "s")
	row(0x0003, SignalStrength, FmtUint8, 0, "%")
	row(0x0004, ChipModel, FmtUTF8, 0, "")
	row(0x0005, MacAddr, FmtMac, 0, "")
	row(0x0006, IPAddress, FmtUTF8, 0, "")
	row(0x0007, SensorList, FmtUint16, 0, "")
	row(0x0008, CollectorFwVersion, FmtVersion, 0, "")
	row(0x0009, SSID, FmtUTF8, 0, "")
	return d
}

func buildMicroinverterDictionary() *Dictionary {
	d := newDictionary()
	row := func(addr uint16, reg Register, f WireFmt, ratio, offset float64, unit string) {
		d.add(MakeKey(msgTypeData, ftypeModbusMap, addr), Entry{Reg: reg, Fmt: f, Ratio: ratio, Offset: offset, Unit: unit})
	}
	row(0x2000, PowerOnTime, FmtUint32, 0, 0, "s")
	row(0x2002, SerialNumber, FmtUTF8, 0, 0, "")
	row(0x200a, InverterStatus, FmtUint16, 0, 0, "")
	row(0x200b, DetectStatus1, FmtUint16, 0, 0, "")
	row(0x200c, DetectStatus2, FmtUint16, 0, 0, "")
	row(0x200d, EventAlarm, FmtUint32, 0, 0, "")
	row(0x200f, EventFault, FmtUint32, 0, 0, "")
	row(0x2011, EventBF1, FmtUint32, 0, 0, "")
	row(0x2013, EventBF2, FmtUint32, 0, 0, "")
	row(0x2015, Version, FmtVersion, 0, 0, "")
	row(0x2016, GridVoltage, FmtUint16, 0.1, 0, "V")
	row(0x2017, GridCurrent, FmtUint16, 0.01, 0, "A")
	row(0x2018, GridFrequency, FmtUint16, 0.01, 0, "Hz")
	row(0x2019, InverterTemp, FmtInt16, 1, 0, "°C")
	row(0x201a, RatedPower, FmtUint16, 1, 0, "W")
	row(0x201b, OutputPower, FmtUint16, 1, 0, "W")
	row(0x201c, PV1Voltage, FmtUint16, 0.1, 0, "V")
	row(0x201d, PV1Current, FmtUint16, 0.01, 0, "A")
	row(0x201e, PV1Power, FmtUint16, 1, 0, "W")
	row(0x201f, PV2Voltage, FmtUint16, 0.1, 0, "V")
	row(0x2020, PV2Current, FmtUint16, 0.01, 0, "A")
	row(0x2021, PV2Power, FmtUint16, 1, 0, "W")
	row(0x2022, PV3Voltage, FmtUint16, 0.1, 0, "V")
	row(0x2023, PV3Current, FmtUint16, 0.01, 0, "A")
	row(0x2024, PV3Power, FmtUint16, 1, 0, "W")
	row(0x2025, PV4Voltage, FmtUint16, 0.1, 0, "V")
	row(0x2026, PV4Current, FmtUint16, 0.01, 0, "A")
	row(0x2027, PV4Power, FmtUint16, 1, 0, "W")
	row(0x2028, DailyGeneration, FmtUint16, 0.01, 0, "kWh")
	row(0x2029, TotalGeneration, FmtUint32, 0.01, 0, "kWh")
	row(0x202b, PV1DailyGeneration, FmtUint16, 0.01, 0, "kWh")
	row(0x202c, PV1TotalGeneration, FmtUint32, 0.01, 0, "kWh")
	row(0x202e, PV2DailyGeneration, FmtUint16, 0.01, 0, "kWh")
	row(0x202f, PV2TotalGeneration, FmtUint32, 0.01, 0, "kWh")
	row(0x2031, PV3DailyGeneration, FmtUint16, 0.01, 0, "kWh")
	row(0x2032, PV3TotalGeneration, FmtUint32, 0.01, 0, "kWh")
	row(0x2034, PV4DailyGeneration, FmtUint16, 0.01, 0, "kWh")
	row(0x2035, PV4TotalGeneration, FmtUint32, 0.01, 0, "kWh")
	row(0x2037, BootStatus, FmtUint16, 0, 0, "")
	row(0x2038, DspStatus, FmtUint16, 0, 0, "")
	row(0x2039, WorkMode, FmtUint16, 0, 0, "")
	row(0x203a, OutputShutdown, FmtUint16, 0, 0, "")
	row(0x203b, MaxDesignedPower, FmtUint16, 1, 0, "W")
	row(0x203c, RatedLevel, FmtUint16, 0, 0, "")
	row(0x203d, InputCoefficient, FmtUint16, 0, 0, "")
	row(0x203e, GridVoltCalCoef, FmtUint16, 0, 0, "")
	row(0x203f, ProdComplType, FmtUint16, 0, 0, "")
	row(0x2040, OutputCoefficient, FmtUint16, 0, 0, "")
	row(0x2041, PollingInterval, FmtUint16, 0, 0, "s")
	return d
}

func buildBatteryHybridDictionary() *Dictionary {
	d := newDictionary()
	row := func(addr uint16, reg Register, f WireFmt, ratio float64, unit string) {
		d.add(MakeKey(msgTypeData, ftypeModbusMap, addr), Entry{Reg: reg, Fmt: f, Ratio: ratio, Unit: unit})
	}
	row(0x3000, BattPV1Volt, FmtUint16, 0.1, "V")
	row(0x3001, BattPV1Cur, FmtUint16, 0.01, "A")
	row(0x3002, BattPV2Volt, FmtUint16, 0.1, "V")
	row(0x3003, BattPV2Cur, FmtUint16, 0.01, "A")
	row(0x3004, BattTotalCharg, FmtUint32, 0.01, "kWh")
	row(0x3006, BattPV1Status, FmtUint16, 0, "")
	row(0x3007, BattPV2Status, FmtUint16, 0, "")
	row(0x3008, BattVolt, FmtUint16, 0.1, "V")
	row(0x3009, BattCur, FmtInt16, 0.01, "A")
	row(0x300a, BattSOC, FmtUint16, 0, "%")
	row(0x300b, BattOutVolt, FmtUint16, 0.1, "V")
	row(0x300c, BattOutCur, FmtInt16, 0.01, "A")
	row(0x300d, BattOutStatus, FmtUint16, 0, "")
	row(0x300e, BattAlarm, FmtUint32, 0, "")
	row(0x3010, BattHwVers, FmtHex4, 0, "")
	row(0x3011, BattSwVers, FmtHex4, 0, "")

	// derived rows carry no wire address of their own; they are calculated
	// immediately after the raw rows above are decoded. Parked at
	// 0x3f00+ so they never collide with a real Modbus address.
	calcRow := func(slot uint16, reg Register, fn CalcFunc) {
		d.add(MakeKey(msgTypeData, ftypeModbusMap, 0x3f00+slot), Entry{Reg: reg, Fmt: FmtCalc, Calc: fn})
	}
	calcRow(0, BattPVPwr, calcBattPVPwr)
	calcRow(1, BattPwr, calcBattPwr)
	calcRow(2, BattOutPwr, calcBattOutPwr)
	calcRow(3, BattPwrSuplState, calcBattPwrSuplState)
	calcRow(4, BattStatus, calcBattStatus)
	return d
}
