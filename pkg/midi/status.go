package midi

type statusKind int

const (
	undefinedKind statusKind = iota
	channelKind
	sysexStartKind
	sysexEndKind
	commonKind
	realTimeKind
)

const (
	NoteOff               = 0x80
	NoteOn                = 0x90
	PolyphonicKeyPressure = 0xA0
	ControlChange         = 0xB0
	ProgramChange         = 0xC0
	ChannelPressure       = 0xD0
	PitchBend             = 0xE0

	SysExStart = 0xF0
	SysExEnd   = 0xF7
)

type statusClass struct {
	name    string
	kind    statusKind
	dataLen int
}

// indexed by status>>4 for 0x80-0xEF
var channelClasses = [16]statusClass{
	0x8: {name: "noteOff", kind: channelKind, dataLen: 2},
	0x9: {name: "noteOn", kind: channelKind, dataLen: 2},
	0xA: {name: "polyphonicKeyPressure", kind: channelKind, dataLen: 2},
	0xB: {name: "controlChange", kind: channelKind, dataLen: 2},
	0xC: {name: "programChange", kind: channelKind, dataLen: 1},
	0xD: {name: "channelPressure", kind: channelKind, dataLen: 1},
	0xE: {name: "pitchBend", kind: channelKind, dataLen: 2},
}

// indexed by status&0x0F for 0xF0-0xFF
var systemClasses = [16]statusClass{
	0x0: {name: "sysExStart", kind: sysexStartKind, dataLen: -1},
	0x1: {name: "quarterFrame", kind: commonKind, dataLen: 1},
	0x2: {name: "songPosition", kind: commonKind, dataLen: 2},
	0x3: {name: "songSelect", kind: commonKind, dataLen: 1},
	0x4: {name: "undefined", kind: undefinedKind},
	0x5: {name: "undefined", kind: undefinedKind},
	0x6: {name: "tuneRequest", kind: commonKind, dataLen: 0},
	0x7: {name: "sysExEnd", kind: sysexEndKind, dataLen: 0},
	0x8: {name: "clock", kind: realTimeKind, dataLen: 0},
	0x9: {name: "undefined", kind: undefinedKind},
	0xA: {name: "start", kind: realTimeKind, dataLen: 0},
	0xB: {name: "continue", kind: realTimeKind, dataLen: 0},
	0xC: {name: "stop", kind: realTimeKind, dataLen: 0},
	0xD: {name: "undefined", kind: undefinedKind},
	0xE: {name: "activeSensing", kind: realTimeKind, dataLen: 0},
	0xF: {name: "reset", kind: realTimeKind, dataLen: 0},
}

var dataClass = statusClass{name: "data", kind: undefinedKind}

func classify(b byte) statusClass {
	switch {
	case b < 0x80:
		return dataClass
	case b < 0xF0:
		return channelClasses[b>>4]
	default:
		return systemClasses[b&0x0F]
	}
}

// DataLen returns the number of data bytes that follow the status byte,
// -1 for a system exclusive start and 0 for data and undefined bytes.
func DataLen(status byte) int {
	return classify(status).dataLen
}

func StatusName(status byte) string {
	return classify(status).name
}

func IsChannel(status byte) bool {
	return classify(status).kind == channelKind
}

func IsRealTime(status byte) bool {
	return classify(status).kind == realTimeKind
}

func isStatus(b byte) bool {
	return b&0x80 != 0
}
