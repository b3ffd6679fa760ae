package dbc

// Frame accumulates every entry pertaining to one arbitration ID: the frame
// definition fields, a free-text description, attribute key/value pairs and
// the signals packed into the payload. The ID is fixed by the first entry
// that creates the record; later entries only update non-key fields.
type Frame struct {
	id          uint32
	name        string
	length      uint32
	sender      string
	description string
	attributes  map[string]string
	signals     map[string]*Signal
	// signal names in ingestion order, which for a well-formed file is the
	// order of the SG_ lines below the frame's BO_ line
	order []string
}

// newFrameFromEntry builds a Frame from the first entry referencing id.
// Fields the entry kind does not carry stay empty.
func newFrameFromEntry(id uint32, entry Entry) (*Frame, error) {
	f := &Frame{
		id:         id,
		attributes: make(map[string]string),
		signals:    make(map[string]*Signal),
	}
	if err := f.mergeEntry(entry); err != nil {
		return nil, err
	}
	return f, nil
}

// mergeEntry folds an entry into the record. Frame-level entries overwrite
// the fields they carry; signal-bearing entries are routed into the owned
// Signal keyed by signal name with the same create-or-merge rule.
func (f *Frame) mergeEntry(entry Entry) error {
	switch e := entry.(type) {
	case FrameDefinition:
		f.name = e.Name
		f.length = e.Length
		f.sender = e.Sender
	case FrameDescription:
		f.description = e.Text
	case FrameAttribute:
		f.attributes[e.Key] = e.Value
	case SignalDefinition:
		return f.mergeSignal(e.Name, entry)
	case SignalDescription:
		return f.mergeSignal(e.SignalName, entry)
	case SignalAttribute:
		return f.mergeSignal(e.SignalName, entry)
	case SignalValueTable:
		return f.mergeSignal(e.SignalName, entry)
	default:
		return &UnsupportedEntryError{Kind: entry.Kind()}
	}
	return nil
}

func (f *Frame) mergeSignal(name string, entry Entry) error {
	if existing, ok := f.signals[name]; ok {
		return existing.mergeEntry(entry)
	}

	signal, err := newSignalFromEntry(name, entry)
	if err != nil {
		return err
	}
	f.signals[name] = signal
	f.order = append(f.order, name)
	return nil
}

// ID returns the arbitration ID.
func (f *Frame) ID() uint32 {
	return f.id
}

// Name returns the frame name from the BO_ line.
func (f *Frame) Name() string {
	return f.name
}

// Length returns the payload length in bytes.
func (f *Frame) Length() uint32 {
	return f.length
}

// Sender returns the sending node name.
func (f *Frame) Sender() string {
	return f.sender
}

// Description returns the free-text comment, empty if none was ingested.
func (f *Frame) Description() string {
	return f.description
}

// Attribute queries one attribute key/value pair.
func (f *Frame) Attribute(key string) (string, bool) {
	v, ok := f.attributes[key]
	return v, ok
}

// Signal queries an owned signal by name.
func (f *Frame) Signal(name string) (*Signal, bool) {
	s, ok := f.signals[name]
	return s, ok
}

// Signals returns the owned signals in ingestion order.
func (f *Frame) Signals() []*Signal {
	out := make([]*Signal, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.signals[name])
	}
	return out
}

// SignalNames returns the owned signal names in ingestion order.
func (f *Frame) SignalNames() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}
