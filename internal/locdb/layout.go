package locdb

// Memory map of the device
//
//	[0]                    layout version
//	[1]                    number of records
//	[2:2+max*RecordSize]   records
//	[optionsBase+0]        XpressNet bus address
//	[optionsBase+1..4]     option flags (see Option)
//	[optionsBase+5]        selected record index
//
// optionsBase = 2 + max*RecordSize
const (
	LayoutVersion  byte   = 2
	DefaultAddress uint16 = 3

	versionOffset = 0
	countOffset   = 1
	dataOffset    = 2

	busAddressField = 0
	selectedField   = 5
	optionsSize     = 6
)

// Option a persisted single byte UI option flag
type Option int

const (
	// OptionAC speed and direction are not changed with the rotary encoder
	OptionAC Option = iota + 1
	// OptionEmergency stop button acts as emergency stop
	OptionEmergency
	// OptionPulseInvert inverts the pulse switch turn direction
	OptionPulseInvert
	// OptionAutoOff sends the turnout off command automatically
	OptionAutoOff
)

func (o Option) String() string {
	switch o {
	case OptionAC:
		return "ac"
	case OptionEmergency:
		return "emergency"
	case OptionPulseInvert:
		return "pulseinvert"
	case OptionAutoOff:
		return "autooff"
	}
	return "unknown"
}

func (o Option) valid() bool {
	return o >= OptionAC && o <= OptionAutoOff
}

// Options all option flags in offset order
func Options() []Option {
	return []Option{OptionAC, OptionEmergency, OptionPulseInvert, OptionAutoOff}
}

// RegionSize bytes needed on the device for max records
func RegionSize(maxRecords int) int {
	return dataOffset + maxRecords*RecordSize + optionsSize
}

type layout struct {
	max int
}

func (l layout) recordOffset(index int) int64 {
	return int64(dataOffset + index*RecordSize)
}

func (l layout) optionsBase() int {
	return dataOffset + l.max*RecordSize
}

func (l layout) fieldOffset(field int) int {
	return l.optionsBase() + field
}
