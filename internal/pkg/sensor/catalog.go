// Package sensor holds the static catalog of the Deye hybrid inverter
// holding-register map and the interpreter that turns raw registers into
// typed values. The tables are immutable and shared; callers reference
// sensors by name, the numeric ids are an internal detail.
package sensor

// ID indexes the sensor catalog.
type ID uint8

const (
	InverterID ID = iota
	ControlBoardVersion
	CommBoardVersion
	RunningStatus
	TotalGridProduction
	DailyEnergyBought
	DailyEnergySold
	TotalEnergyBought
	TotalEnergySold
	DailyLoadConsumption
	TotalLoadConsumption
	DCTemperature
	ACTemperature
	TotalProduction
	Alert
	DailyProduction
	PV1Voltage
	PV1Current
	PV2Voltage
	PV2Current
	GridVoltageL1
	GridVoltageL2
	LoadVoltage
	CurrentL1
	CurrentL2
	MicroInverterPower
	GenConnectedStatus
	GenPower
	InternalCTL1Power
	InternalCTL2Power
	GridStatus
	TotalGridPower
	ExternalCTL1Power
	ExternalCTL2Power
	InverterL1Power
	InverterL2Power
	TotalPower
	LoadL1Power
	LoadL2Power
	TotalLoadPower
	BatteryTemperature
	BatteryVoltage
	BatterySOC
	PV1Power
	PV2Power
	BatteryStatus
	BatteryPower
	BatteryCurrent
	GridConnectedStatus
	SmartloadEnableStatus
	WorkMode
	TimeOfUse

	numSensors
)

// Meta describes one catalog entry: a named, contiguous register range
// and the rule for interpreting it.
type Meta struct {
	Name          string
	BeginAddress  uint16
	RegisterCount uint16
	Rep           Rep
}

// End returns one past the last register address of the entry.
func (m Meta) End() int {
	return int(m.BeginAddress) + int(m.RegisterCount)
}

var catalog = [numSensors]Meta{
	InverterID:            {"Inverter ID", 3, 5, RegistersRep()},
	ControlBoardVersion:   {"Control Board Version No.", 13, 1, IntegerRep(1, 0)},
	CommBoardVersion:      {"Communication Board Version No.", 14, 1, IntegerRep(1, 0)},
	RunningStatus:         {"Running Status", 59, 1, EnumerationRep(RunningStatusEnum)},
	TotalGridProduction:   {"Total Grid Production", 63, 2, PhysicalRep(100, 0, WattHours)},
	DailyEnergyBought:     {"Daily Energy Bought", 76, 1, PhysicalRep(100, 0, WattHours)},
	DailyEnergySold:       {"Daily Energy Sold", 77, 1, PhysicalRep(100, 0, WattHours)},
	TotalEnergyBought:     {"Total Energy Bought", 78, 2, PhysicalRep(100, 0, WattHours)},
	TotalEnergySold:       {"Total Energy Sold", 81, 2, PhysicalRep(100, 0, WattHours)},
	DailyLoadConsumption:  {"Daily Load Consumption", 84, 1, PhysicalRep(100, 0, WattHours)},
	TotalLoadConsumption:  {"Total Load Consumption", 85, 2, PhysicalRep(100, 0, WattHours)},
	DCTemperature:         {"DC Temperature", 90, 1, PhysicalRep(0.1, 0, DegreesCelsius)},
	ACTemperature:         {"AC Temperature", 91, 1, PhysicalRep(0.1, 0, DegreesCelsius)},
	TotalProduction:       {"Total Production", 96, 2, PhysicalRep(100, 0, WattHours)},
	Alert:                 {"Alert", 101, 6, RegistersRep()},
	DailyProduction:       {"Daily Production", 108, 1, PhysicalRep(100, 0, WattHours)},
	PV1Voltage:            {"PV1 Voltage", 109, 1, PhysicalRep(0.1, 0, Volts)},
	PV1Current:            {"PV1 Current", 110, 1, PhysicalRep(0.1, 0, Ampere)},
	PV2Voltage:            {"PV2 Voltage", 111, 1, PhysicalRep(0.1, 0, Volts)},
	PV2Current:            {"PV2 Current", 112, 1, PhysicalRep(0.1, 0, Ampere)},
	GridVoltageL1:         {"Grid Voltage L1", 150, 1, PhysicalRep(0.1, 0, Volts)},
	GridVoltageL2:         {"Grid Voltage L2", 151, 1, PhysicalRep(0.1, 0, Volts)},
	LoadVoltage:           {"Load Voltage", 157, 1, PhysicalRep(0.1, 0, Volts)},
	CurrentL1:             {"Current L1", 164, 1, PhysicalRep(0.01, 0, Ampere)},
	CurrentL2:             {"Current L2", 165, 1, PhysicalRep(0.01, 0, Ampere)},
	MicroInverterPower:    {"Micro-inverter Power", 166, 1, PhysicalRep(1, 0, Watts)},
	GenConnectedStatus:    {"Gen-connected Status", 166, 1, EnumerationRep(GenConnectedStatusEnum)},
	GenPower:              {"Gen Power", 166, 1, PhysicalRep(1, 0, Watts)},
	InternalCTL1Power:     {"Internal CT L1 Power", 167, 1, PhysicalRep(1, 0, Watts)},
	InternalCTL2Power:     {"Internal CT L2 Power", 168, 1, PhysicalRep(1, 0, Watts)},
	GridStatus:            {"Grid Status", 169, 1, EnumerationRep(GridStatusEnum)},
	TotalGridPower:        {"Total Grid Power", 169, 1, PhysicalRep(1, 0, Watts)},
	ExternalCTL1Power:     {"External CT L1 Power", 170, 1, PhysicalRep(1, 0, Watts)},
	ExternalCTL2Power:     {"External CT L2 Power", 171, 1, PhysicalRep(1, 0, Watts)},
	InverterL1Power:       {"Inverter L1 Power", 173, 1, PhysicalRep(1, 0, Watts)},
	InverterL2Power:       {"Inverter L2 Power", 174, 1, PhysicalRep(1, 0, Watts)},
	TotalPower:            {"Total Power", 175, 1, PhysicalRep(1, 0, Watts)},
	LoadL1Power:           {"Load L1 Power", 176, 1, PhysicalRep(1, 0, Watts)},
	LoadL2Power:           {"Load L2 Power", 177, 1, PhysicalRep(1, 0, Watts)},
	TotalLoadPower:        {"Total Load Power", 178, 1, PhysicalRep(1, 0, Watts)},
	BatteryTemperature:    {"Battery Temperature", 182, 1, PhysicalRep(0.1, 0, DegreesCelsius)},
	BatteryVoltage:        {"Battery Voltage", 183, 1, PhysicalRep(0.01, 0, Volts)},
	BatterySOC:            {"Battery SOC", 184, 1, PhysicalRep(1, 0, Percentage)},
	PV1Power:              {"PV1 Power", 186, 1, PhysicalRep(1, 0, Watts)},
	PV2Power:              {"PV2 Power", 187, 1, PhysicalRep(1, 0, Watts)},
	BatteryStatus:         {"Battery Status", 190, 1, EnumerationRep(BatteryStatusEnum)},
	BatteryPower:          {"Battery Power", 190, 1, PhysicalRep(1, 0, Watts)},
	BatteryCurrent:        {"Battery Current", 191, 1, PhysicalRep(0.01, 0, Ampere)},
	GridConnectedStatus:   {"Grid-connected Status", 194, 1, EnumerationRep(GridConnectedStatusEnum)},
	SmartloadEnableStatus: {"SmartLoad Enable Status", 195, 1, EnumerationRep(SmartloadEnableEnum)},
	WorkMode:              {"Work Mode", 244, 2, EnumerationRep(WorkModeEnum)},
	TimeOfUse:             {"Time of use", 248, 1, EnumerationRep(TimeOfUseEnum)},
}

var nameIndex = func() map[string]ID {
	m := make(map[string]ID, numSensors)
	for id := ID(0); id < numSensors; id++ {
		m[catalog[id].Name] = id
	}
	return m
}()

// ByID looks up a catalog entry. The second return is false for an id
// outside the catalog.
func ByID(id ID) (Meta, bool) {
	if id >= numSensors {
		return Meta{}, false
	}
	return catalog[id], true
}

// ByName resolves a display name to its sensor id.
func ByName(name string) (ID, bool) {
	id, ok := nameIndex[name]
	return id, ok
}

// All returns every sensor id in catalog order.
func All() []ID {
	ids := make([]ID, numSensors)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}
