// Package infos implements the typed register database ("Infos" in the
// design documents) shared by the Gen3+ and Gen3 protocol engines.
package infos

// Register names a semantic value decoded from (or destined for) the wire.
type Register int

const (
	RegUnknown Register = iota

	// device / common block
	DataUpInterval
	CollectInterval
	HeartbeatInterval
	SignalStrength
	ChipModel
	MacAddr
	IPAddress
	SensorList
	CollectorFwVersion
	SSID

	// microinverter (sensor list 0x02b0) telemetry block
	PowerOnTime
	SerialNumber
	InverterStatus
	DetectStatus1
	DetectStatus2
	EventAlarm
	EventFault
	EventBF1
	EventBF2
	Version
	GridVoltage
	GridCurrent
	GridFrequency
	InverterTemp
	RatedPower
	OutputPower
	PV1Voltage
	PV1Current
	PV1Power
	PV2Voltage
	PV2Current
	PV2Power
	PV3Voltage
	PV3Current
	PV3Power
	PV4Voltage
	PV4Current
	PV4Power
	DailyGeneration
	TotalGeneration
	PV1DailyGeneration
	PV1TotalGeneration
	PV2DailyGeneration
	PV2TotalGeneration
	PV3DailyGeneration
	PV3TotalGeneration
	PV4DailyGeneration
	PV4TotalGeneration
	BootStatus
	DspStatus
	WorkMode
	OutputShutdown
	MaxDesignedPower
	RatedLevel
	InputCoefficient
	GridVoltCalCoef
	ProdComplType
	OutputCoefficient
	PollingInterval

	// battery / hybrid (sensor list 0x3026) telemetry block
	BattPV1Volt
	BattPV1Cur
	BattPV2Volt
	BattPV2Cur
	BattTotalCharg
	BattPV1Status
	BattPV2Status
	BattVolt
	BattCur
	BattSOC
	BattOutVolt
	BattOutCur
	BattOutStatus
	BattAlarm
	BattHwVers
	BattSwVers
	BattPVPwr        // derived: prod_sum(PV1V*PV1I + PV2V*PV2I)
	BattPwr          // derived: prod_sum(BattVolt*BattCur)
	BattOutPwr       // derived: prod_sum(BattOutVolt*BattOutCur)
	BattPwrSuplState // derived: cmp_values(BattOutPwr, 0, ...)
	BattStatus       // derived: cmp_values(BattCur, 0.0, ...)

	// synthesized / meta
	Manufacturer
	EquipmentModel
	ChipType
	NoInputs

	// proxy-internal counters, topic group "proxy"
	InvalidMsgFormat
	UnknownMsg
	UnknownSNR
	InvalidDataType
	SWException
	ATCommandBlocked
	ATCommand
	ModbusCommand
	InverterCnt
)

// TopicGroup is the MQTT-publish grouping a register belongs to.
type TopicGroup string

const (
	GroupInverter   TopicGroup = "inverter"
	GroupGrid       TopicGroup = "grid"
	GroupEnv        TopicGroup = "env"
	GroupController TopicGroup = "controller"
	GroupProxy      TopicGroup = "proxy"
	GroupInputPV1   TopicGroup = "input/pv1"
	GroupInputPV2   TopicGroup = "input/pv2"
	GroupInputPV3   TopicGroup = "input/pv3"
	GroupInputPV4   TopicGroup = "input/pv4"
)

// registerGroup maps a register to the topic group it is published under.
// Registers not present here default to GroupInverter, which matches the
// original's behaviour of treating the bulk of the microinverter block as
// one "inverter" topic.
var registerGroup = map[Register]TopicGroup{
	GridVoltage:        GroupGrid,
	GridCurrent:        GroupGrid,
	GridFrequency:      GroupGrid,
	InverterTemp:       GroupEnv,
	SignalStrength:     GroupEnv,
	DataUpInterval:     GroupController,
	CollectInterval:    GroupController,
	HeartbeatInterval:  GroupController,
	SensorList:         GroupController,
	PollingInterval:    GroupController,

	PV1Voltage: GroupInputPV1, PV1Current: GroupInputPV1, PV1Power: GroupInputPV1,
	PV1DailyGeneration: GroupInputPV1, PV1TotalGeneration: GroupInputPV1,
	PV2Voltage: GroupInputPV2, PV2Current: GroupInputPV2, PV2Power: GroupInputPV2,
	PV2DailyGeneration: GroupInputPV2, PV2TotalGeneration: GroupInputPV2,
	PV3Voltage: GroupInputPV3, PV3Current: GroupInputPV3, PV3Power: GroupInputPV3,
	PV3DailyGeneration: GroupInputPV3, PV3TotalGeneration: GroupInputPV3,
	PV4Voltage: GroupInputPV4, PV4Current: GroupInputPV4, PV4Power: GroupInputPV4,
	PV4DailyGeneration: GroupInputPV4, PV4TotalGeneration: GroupInputPV4,
}

func init() {
	for r := InvalidMsgFormat; r <= InverterCnt; r++ {
		registerGroup[r] = GroupProxy
	}
}

func groupFor(r Register) TopicGroup {
	if g, ok := registerGroup[r]; ok {
		return g
	}
	return GroupInverter
}
