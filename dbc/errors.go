package dbc

import (
	"errors"
	"fmt"
)

// ErrMissingContext is returned when a signal definition arrives before any
// frame has been ingested. SG_ lines carry no frame ID of their own and are
// attributed to the most recently touched frame.
var ErrMissingContext = errors.New("dbc: signal definition without preceding frame")

// UnsupportedEntryError is returned by AddEntry for an entry kind the library
// model does not represent, such as a version header or bus configuration.
type UnsupportedEntryError struct {
	Kind EntryKind
}

func (e *UnsupportedEntryError) Error() string {
	return fmt.Sprintf("dbc: unsupported entry: %s", e.Kind)
}
