package dbc

// EntryKind classifies the fact a single DBC source line carries. It is used
// for dispatch in the merge engine and for error messages.
type EntryKind int

const (
	KindVersion EntryKind = iota
	KindBusConfiguration
	KindFrameDefinition
	KindFrameDescription
	KindFrameAttribute
	KindSignalDefinition
	KindSignalDescription
	KindSignalAttribute
	KindSignalValueTable
	KindUnknown
)

func (k EntryKind) String() string {
	switch k {
	case KindVersion:
		return "Version"
	case KindBusConfiguration:
		return "BusConfiguration"
	case KindFrameDefinition:
		return "FrameDefinition"
	case KindFrameDescription:
		return "FrameDescription"
	case KindFrameAttribute:
		return "FrameAttribute"
	case KindSignalDefinition:
		return "SignalDefinition"
	case KindSignalDescription:
		return "SignalDescription"
	case KindSignalAttribute:
		return "SignalAttribute"
	case KindSignalValueTable:
		return "SignalValueTable"
	default:
		return "Unknown"
	}
}

// Entry is one parsed fact from a single DBC source line. Entries are
// immutable; they carry no relationship beyond a shared frame ID or signal
// name. The set of implementations is closed.
type Entry interface {
	Kind() EntryKind
}

// Version carries the `VERSION "..."` header line.
type Version struct {
	Text string
}

// BusConfiguration carries the `BS_: <speed>` line.
type BusConfiguration struct {
	Speed float32
}

// FrameDefinition carries a `BO_` line defining one CAN frame.
type FrameDefinition struct {
	// Arbitration ID. Both standard and extended IDs occur, encoded as an
	// unsigned integer; J1939-style files use values above the 29-bit range.
	ID     uint32
	Name   string
	Length uint32
	Sender string
}

// FrameDescription carries a `CM_ BO_` comment line.
type FrameDescription struct {
	ID   uint32
	Text string
}

// FrameAttribute carries a `BA_ "<key>" BO_` line.
type FrameAttribute struct {
	ID    uint32
	Key   string
	Value string
}

// SignalDefinition carries a `SG_` line: the complete bit layout and physical
// scaling of one signal. It has no frame ID of its own; in a valid DBC file it
// always follows the BO_ line of the frame it belongs to.
type SignalDefinition struct {
	Name     string
	StartBit uint
	BitLen   uint
	// Byte order of the packed value: true for Intel (1), false for
	// Motorola (0).
	LittleEndian bool
	// Recorded from the +/- marker. Decoding currently treats every raw
	// value as unsigned regardless of this flag.
	Signed    bool
	Scale     float32
	Offset    float32
	Min       float32
	Max       float32
	Unit      string
	Receivers string
}

// SignalDescription carries a `CM_ SG_` comment line.
type SignalDescription struct {
	ID         uint32
	SignalName string
	Text       string
}

// SignalAttribute carries a `BA_ "<key>" SG_` line.
type SignalAttribute struct {
	ID         uint32
	SignalName string
	Key        string
	Value      string
}

// SignalValueTable carries a `VAL_` line mapping raw ordinals of an enum-like
// signal to label strings.
type SignalValueTable struct {
	ID         uint32
	SignalName string
	Values     map[uint64]string
}

// Unknown holds a line the tokenizer matched as a known-but-unmodeled
// directive.
type Unknown struct {
	Raw string
}

func (Version) Kind() EntryKind           { return KindVersion }
func (BusConfiguration) Kind() EntryKind  { return KindBusConfiguration }
func (FrameDefinition) Kind() EntryKind   { return KindFrameDefinition }
func (FrameDescription) Kind() EntryKind  { return KindFrameDescription }
func (FrameAttribute) Kind() EntryKind    { return KindFrameAttribute }
func (SignalDefinition) Kind() EntryKind  { return KindSignalDefinition }
func (SignalDescription) Kind() EntryKind { return KindSignalDescription }
func (SignalAttribute) Kind() EntryKind   { return KindSignalAttribute }
func (SignalValueTable) Kind() EntryKind  { return KindSignalValueTable }
func (Unknown) Kind() EntryKind           { return KindUnknown }
