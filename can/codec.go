package can

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/fabianbally/canparse/dbc"
)

var (
	// ErrNoPayload is returned when decoding from an empty byte buffer.
	ErrNoPayload = errors.New("can: empty payload")
	// ErrNoDefinition is returned for codec operations on a signal whose
	// SG_ line has not been ingested.
	ErrNoDefinition = errors.New("can: signal has no definition")
)

// OverflowError is returned when an encoded value's magnitude exceeds the
// signal's bit width.
type OverflowError struct {
	Value  float64
	BitLen uint
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("can: value %v does not fit into %d bits", e.Value, e.BitLen)
}

// MissingSignalError is returned by EncodeFrame when the signal map lacks a
// value for one of the frame's signals.
type MissingSignalError struct {
	Name string
}

func (e *MissingSignalError) Error() string {
	return fmt.Sprintf("can: missing signal data: %s", e.Name)
}

// Decode extracts a signal's physical value from a frame payload. The payload
// is interpreted as a 64-bit word in the layout's byte order, zero-padded on
// the right when shorter than 8 bytes and truncated when longer; only an
// empty payload fails. The raw bits are scaled as raw*Scale+Offset in 32-bit
// float arithmetic.
//
// The Signed flag is not applied: raw values are always treated as unsigned,
// with no two's-complement sign extension.
func Decode(def *dbc.SignalDefinition, payload []byte) (float32, error) {
	if len(payload) == 0 {
		return 0, ErrNoPayload
	}

	var buf [8]byte
	copy(buf[:], payload)

	var word uint64
	if def.LittleEndian {
		word = binary.LittleEndian.Uint64(buf[:])
	} else {
		word = binary.BigEndian.Uint64(buf[:])
	}

	raw := (word >> def.StartBit) & bitMask(def.BitLen)
	return float32(raw)*def.Scale + def.Offset, nil
}

// DecodeSignal decodes one signal record from a frame payload, failing with
// ErrNoDefinition when the record has no bit layout yet.
func DecodeSignal(sig *dbc.Signal, payload []byte) (float32, error) {
	def, ok := sig.Definition()
	if !ok {
		return 0, ErrNoDefinition
	}
	return Decode(def, payload)
}

// EncodeSignal converts a physical value back into its 8-byte contribution to
// a frame payload, in the layout's byte order. The overflow check is a loose
// magnitude bound, log2(raw) against the bit count, not an exact bit-fit test.
func EncodeSignal(def *dbc.SignalDefinition, physical float64) ([8]byte, error) {
	var out [8]byte

	raw := (physical - float64(def.Offset)) / float64(def.Scale)
	if math.Log2(raw) > float64(def.BitLen) {
		return out, &OverflowError{Value: raw, BitLen: def.BitLen}
	}

	word := uint64(raw) << def.StartBit
	if def.LittleEndian {
		binary.LittleEndian.PutUint64(out[:], word)
	} else {
		binary.BigEndian.PutUint64(out[:], word)
	}
	return out, nil
}

// EncodeFrame packs one value per owned signal into an 8-byte payload by
// OR-combining each signal's contribution. Every signal of the frame must
// appear in signalMap and have a definition. Bit ranges are assumed
// non-overlapping; overlap is not checked.
func EncodeFrame(frame *dbc.Frame, signalMap map[string]float64) ([]byte, error) {
	var result [8]byte

	for _, sig := range frame.Signals() {
		def, ok := sig.Definition()
		if !ok {
			return nil, fmt.Errorf("can: encoding %s: %w", sig.Name(), ErrNoDefinition)
		}

		value, ok := signalMap[sig.Name()]
		if !ok {
			return nil, &MissingSignalError{Name: sig.Name()}
		}

		contribution, err := EncodeSignal(def, value)
		if err != nil {
			return nil, fmt.Errorf("can: encoding %s: %w", sig.Name(), err)
		}

		for i := range result {
			result[i] |= contribution[i]
		}
	}

	return result[:], nil
}

// DecodeFrame decodes every signal of the frame that has a definition,
// returning physical values keyed by signal name. Signals without a layout
// and undecodable payloads are skipped.
func DecodeFrame(frame *dbc.Frame, payload []byte) map[string]float32 {
	values := make(map[string]float32, len(frame.SignalNames()))

	for _, sig := range frame.Signals() {
		v, err := DecodeSignal(sig, payload)
		if err != nil {
			continue
		}
		values[sig.Name()] = v
	}

	return values
}

func bitMask(bitLen uint) uint64 {
	if bitLen >= 64 {
		return ^uint64(0)
	}
	return 1<<bitLen - 1
}
