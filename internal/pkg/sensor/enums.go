package sensor

// EnumID indexes the enumeration table.
type EnumID uint8

const (
	RunningStatusEnum EnumID = iota
	GenConnectedStatusEnum
	GridStatusEnum
	BatteryStatusEnum
	GridConnectedStatusEnum
	SmartloadEnableEnum
	WorkModeEnum
	TimeOfUseEnum

	numEnumerations
)

// EnumerationTable is an ordered list of display strings looked up by the
// raw register value.
type EnumerationTable struct {
	Names []string
}

// Name returns the display string for index i. The second return is
// false when the device reported an index outside the enumeration; the
// caller decides how to render that, it is a data error, not a crash.
func (e EnumerationTable) Name(i int) (string, bool) {
	if i < 0 || i >= len(e.Names) {
		return "", false
	}
	return e.Names[i], true
}

var enumerations = [numEnumerations]EnumerationTable{
	RunningStatusEnum:       {[]string{"Stand-by", "Self-checking", "Normal", "FAULT"}},
	GenConnectedStatusEnum:  {[]string{"OFF", "ON"}},
	GridStatusEnum:          {[]string{"SELL", "BUY", "Stand-by"}},
	BatteryStatusEnum:       {[]string{"Charge", "Stand-by", "Discharge"}},
	GridConnectedStatusEnum: {[]string{"Off-Grid", "On-Grid"}},
	SmartloadEnableEnum:     {[]string{"OFF", "ON"}},
	WorkModeEnum: {[]string{
		"Selling First",
		"Zero-Export to Load&Solar Sell",
		"Zero-Export to Home&Solar Sell",
		"Zero-Export to Load",
		"Zero-Export to Home",
	}},
	TimeOfUseEnum: {[]string{"Disable", "Enable"}},
}

// EnumerationByID looks up an enumeration. The second return is false
// for an id outside the table.
func EnumerationByID(id EnumID) (EnumerationTable, bool) {
	if id >= numEnumerations {
		return EnumerationTable{}, false
	}
	return enumerations[id], true
}
