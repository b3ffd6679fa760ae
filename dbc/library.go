package dbc

import (
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/fabianbally/canparse/base"
)

var log = base.Logger

// Library is the root container assembled from a stream of entries: a map of
// arbitration ID to Frame plus the transient last-touched frame ID used to
// attribute SG_ lines, which carry no ID of their own. Frames are only ever
// added or merged into, never removed.
//
// A Library is built serially and may afterwards be read concurrently; there
// is no internal locking, so ingestion must finish before the value is shared.
type Library struct {
	frames  map[uint32]*Frame
	lastID  uint32
	hasLast bool
}

// New returns an empty Library.
func New() *Library {
	return &Library{frames: make(map[uint32]*Frame)}
}

// NewFromFrames returns a Library over an existing frame lookup table.
func NewFromFrames(frames map[uint32]*Frame) *Library {
	if frames == nil {
		frames = make(map[uint32]*Frame)
	}
	return &Library{frames: frames}
}

// AddEntry folds one entry into the library. The target frame is determined
// by the ID the entry carries, or for signal definitions by the most recently
// touched frame; if no frame exists for the ID one is created from the entry,
// otherwise the entry is merged into it in place.
//
// Returns ErrMissingContext for a signal definition before any frame, and
// UnsupportedEntryError for entry kinds outside the model.
func (l *Library) AddEntry(entry Entry) error {
	var id uint32

	switch e := entry.(type) {
	case FrameDefinition:
		id = e.ID
	case FrameDescription:
		id = e.ID
	case FrameAttribute:
		id = e.ID
	case SignalDefinition:
		if !l.hasLast {
			return ErrMissingContext
		}
		id = l.lastID
	case SignalDescription:
		id = e.ID
	case SignalAttribute:
		id = e.ID
	case SignalValueTable:
		id = e.ID
	default:
		return &UnsupportedEntryError{Kind: entry.Kind()}
	}

	if frame, ok := l.frames[id]; ok {
		if err := frame.mergeEntry(entry); err != nil {
			return err
		}
	} else {
		frame, err := newFrameFromEntry(id, entry)
		if err != nil {
			return err
		}
		l.frames[id] = frame
	}

	l.lastID = id
	l.hasLast = true
	return nil
}

// FromReader loads a whole DBC document from r. The byte stream is decoded as
// ISO 8859-1; lines that fail to tokenize and entries the model rejects are
// skipped, so files containing node lists, attribute definitions or
// multiplexed-signal syntax load with those directives ignored. Only read
// failures are returned.
func FromReader(r io.Reader) (*Library, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, err
	}

	lib := New()
	for _, line := range strings.Split(string(text), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		entry, err := ParseLine(line)
		if err != nil {
			continue
		}
		if err := lib.AddEntry(entry); err != nil {
			log.Debugf("Skipping entry(%s): %v", entry.Kind(), err)
		}
	}

	return lib, nil
}

// FromFile loads a whole DBC file, with FromReader's tolerance for lines the
// model does not understand. Open and read failures propagate.
func FromFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return FromReader(f)
}

// Frame queries a frame record by arbitration ID.
func (l *Library) Frame(id uint32) (*Frame, bool) {
	f, ok := l.frames[id]
	return f, ok
}

// Signal scans all frames for a signal with the given name and returns the
// first match. When the same name occurs in multiple frames the result
// follows map iteration order, which is not ID order.
func (l *Library) Signal(name string) (*Signal, bool) {
	for _, frame := range l.frames {
		if s, ok := frame.signals[name]; ok {
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of frames in the library.
func (l *Library) Len() int {
	return len(l.frames)
}

// IsEmpty reports whether the library contains no frames.
func (l *Library) IsEmpty() bool {
	return len(l.frames) == 0
}

// FrameIDs returns the arbitration IDs of all frames, in map order.
func (l *Library) FrameIDs() []uint32 {
	ids := make([]uint32, 0, len(l.frames))
	for id := range l.frames {
		ids = append(ids, id)
	}
	return ids
}
