package dbc

// LongNameAttribute is the attribute key some generators use to carry signal
// names beyond the 32-character DBC limit.
const LongNameAttribute = "SystemSignalLongSymbol"

// Signal accumulates every entry pertaining to one named signal of a frame:
// the bit layout, a free-text description, attribute key/value pairs and an
// optional value-enumeration table. A Signal may exist without a definition
// when a description or attribute line was ingested before the SG_ line;
// codec operations on such a signal fail instead of defaulting to zero.
type Signal struct {
	name        string
	definition  *SignalDefinition
	description string
	attributes  map[string]string
	values      map[uint64]string
}

// newSignalFromEntry builds a Signal from the first entry referencing its
// name. Fields the entry kind does not carry stay empty.
func newSignalFromEntry(name string, entry Entry) (*Signal, error) {
	s := &Signal{
		name:       name,
		attributes: make(map[string]string),
	}
	if err := s.mergeEntry(entry); err != nil {
		return nil, err
	}
	return s, nil
}

// mergeEntry folds a subsequent entry into the record. Fields carried by the
// entry overwrite the record's; everything else is left untouched.
func (s *Signal) mergeEntry(entry Entry) error {
	switch e := entry.(type) {
	case SignalDefinition:
		def := e
		s.definition = &def
	case SignalDescription:
		s.description = e.Text
	case SignalAttribute:
		s.attributes[e.Key] = e.Value
	case SignalValueTable:
		if s.values == nil {
			s.values = make(map[uint64]string)
		}
		for ordinal, label := range e.Values {
			s.values[ordinal] = label
		}
	default:
		return &UnsupportedEntryError{Kind: entry.Kind()}
	}
	return nil
}

// Name returns the signal name the record is keyed by.
func (s *Signal) Name() string {
	return s.name
}

// Definition returns the signal's bit layout. The second return is false for
// a record whose SG_ line has not been seen yet.
func (s *Signal) Definition() (*SignalDefinition, bool) {
	if s.definition == nil {
		return nil, false
	}
	return s.definition, true
}

// Description returns the free-text comment, empty if none was ingested.
func (s *Signal) Description() string {
	return s.description
}

// Attribute queries one attribute key/value pair.
func (s *Signal) Attribute(key string) (string, bool) {
	v, ok := s.attributes[key]
	return v, ok
}

// Values returns the value-enumeration table, nil for non-enum signals.
func (s *Signal) Values() map[uint64]string {
	return s.values
}

// LongName returns the value of the long-symbol attribute when present and
// the definition name otherwise.
func (s *Signal) LongName() string {
	if name, ok := s.attributes[LongNameAttribute]; ok {
		return name
	}
	return s.name
}
