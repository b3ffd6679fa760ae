package dbc

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEntryCreatesFrame(t *testing.T) {
	lib := New()

	require.NoError(t, lib.AddEntry(FrameDefinition{
		ID:     2364539904,
		Name:   "EEC1",
		Length: 8,
		Sender: "Vector__XXX",
	}))

	require.Equal(t, 1, lib.Len())
	frame, ok := lib.Frame(2364539904)
	require.True(t, ok)
	assert.Equal(t, uint32(2364539904), frame.ID())
	assert.Equal(t, "EEC1", frame.Name())
	assert.Equal(t, uint32(8), frame.Length())
	assert.Equal(t, "Vector__XXX", frame.Sender())
}

func TestAddEntrySignalAttachesToLastFrame(t *testing.T) {
	lib := New()

	require.NoError(t, lib.AddEntry(FrameDefinition{ID: 256, Name: "A", Length: 8}))
	require.NoError(t, lib.AddEntry(SignalDefinition{Name: "First", StartBit: 0, BitLen: 8, Scale: 1}))

	// the description touches frame 512, so the next SG_ belongs to it
	require.NoError(t, lib.AddEntry(FrameDescription{ID: 512, Text: "second frame"}))
	require.NoError(t, lib.AddEntry(SignalDefinition{Name: "Second", StartBit: 8, BitLen: 8, Scale: 1}))

	frameA, ok := lib.Frame(256)
	require.True(t, ok)
	_, ok = frameA.Signal("First")
	assert.True(t, ok)
	_, ok = frameA.Signal("Second")
	assert.False(t, ok)

	frameB, ok := lib.Frame(512)
	require.True(t, ok)
	assert.Equal(t, "second frame", frameB.Description())
	_, ok = frameB.Signal("Second")
	assert.True(t, ok)
}

func TestAddEntrySignalWithoutFrame(t *testing.T) {
	lib := New()

	err := lib.AddEntry(SignalDefinition{Name: "Orphan", BitLen: 8, Scale: 1})
	assert.ErrorIs(t, err, ErrMissingContext)
	assert.True(t, lib.IsEmpty())
}

func TestAddEntryUnsupportedKinds(t *testing.T) {
	lib := New()

	for _, entry := range []Entry{
		Version{Text: "1.0"},
		BusConfiguration{Speed: 250},
		Unknown{Raw: "BU_: Vector__XXX"},
	} {
		err := lib.AddEntry(entry)

		var unsupported *UnsupportedEntryError
		require.ErrorAs(t, err, &unsupported, "entry: %s", entry.Kind())
		assert.Equal(t, entry.Kind(), unsupported.Kind)
	}
	assert.True(t, lib.IsEmpty())
}

// A description or attribute line may precede the definition it refers to;
// the record is created and the layout filled in later.
func TestAddEntryOutOfOrder(t *testing.T) {
	lib := New()

	require.NoError(t, lib.AddEntry(SignalDescription{ID: 1024, SignalName: "Late", Text: "documented first"}))
	frame, ok := lib.Frame(1024)
	require.True(t, ok)
	assert.Empty(t, frame.Name())

	sig, ok := frame.Signal("Late")
	require.True(t, ok)
	assert.Equal(t, "documented first", sig.Description())
	_, ok = sig.Definition()
	assert.False(t, ok)

	require.NoError(t, lib.AddEntry(FrameDefinition{ID: 1024, Name: "LateFrame", Length: 8}))
	require.NoError(t, lib.AddEntry(SignalDefinition{Name: "Late", StartBit: 0, BitLen: 8, Scale: 1}))

	assert.Equal(t, "LateFrame", frame.Name())
	def, ok := sig.Definition()
	require.True(t, ok)
	assert.Equal(t, uint(8), def.BitLen)
}

func TestAddEntryMergesValueTable(t *testing.T) {
	lib := New()

	require.NoError(t, lib.AddEntry(FrameDefinition{ID: 100, Name: "Status", Length: 8}))
	require.NoError(t, lib.AddEntry(SignalDefinition{Name: "Mode", StartBit: 0, BitLen: 2, Scale: 1}))
	require.NoError(t, lib.AddEntry(SignalValueTable{ID: 100, SignalName: "Mode", Values: map[uint64]string{0: "Off"}}))
	require.NoError(t, lib.AddEntry(SignalValueTable{ID: 100, SignalName: "Mode", Values: map[uint64]string{1: "On"}}))

	sig, ok := lib.Signal("Mode")
	require.True(t, ok)
	assert.Equal(t, map[uint64]string{0: "Off", 1: "On"}, sig.Values())
}

func TestFromReader(t *testing.T) {
	doc := strings.Join([]string{
		`VERSION "1.0"`,
		``,
		`BO_ 256 Test : 8 ECU1`,
		` SG_ Counter : 0|8@1+ (1,0) [0|255] "" Vector__XXX`,
		`garbage line that matches nothing`,
		`CM_ BO_ 256 "test frame";`,
	}, "\r\n")

	lib, err := FromReader(strings.NewReader(doc))
	require.NoError(t, err)

	require.Equal(t, 1, lib.Len())
	frame, ok := lib.Frame(256)
	require.True(t, ok)
	assert.Equal(t, "Test", frame.Name())
	assert.Equal(t, "test frame", frame.Description())
	assert.Equal(t, []string{"Counter"}, frame.SignalNames())
}

func TestFromFile(t *testing.T) {
	lib, err := FromFile(filepath.Join("testdata", "sample.dbc"))
	require.NoError(t, err)

	require.Equal(t, 2, lib.Len())
	assert.ElementsMatch(t, []uint32{2364539904, 2566844926}, lib.FrameIDs())

	frame, ok := lib.Frame(2364539904)
	require.True(t, ok)
	assert.Equal(t, "EEC1", frame.Name())
	assert.Equal(t, uint32(8), frame.Length())
	assert.Equal(t, "Electronic Engine Controller 1", frame.Description())

	format, ok := frame.Attribute("VFrameFormat")
	require.True(t, ok)
	assert.Equal(t, "3", format)

	sig, ok := frame.Signal("Engine_Speed")
	require.True(t, ok)
	def, ok := sig.Definition()
	require.True(t, ok)
	assert.Equal(t, uint(24), def.StartBit)
	assert.Equal(t, uint(16), def.BitLen)
	assert.True(t, def.LittleEndian)
	assert.Equal(t, float32(0.125), def.Scale)
	assert.Equal(t, "rpm", def.Unit)

	assert.Contains(t, sig.Description(), "720 degrees")
	spn, ok := sig.Attribute("SPN")
	require.True(t, ok)
	assert.Equal(t, "190", spn)
	assert.Equal(t, map[uint64]string{0: "Stopped", 1: "Running"}, sig.Values())

	// no long-symbol attribute in the file, so LongName falls back
	assert.Equal(t, "Engine_Speed", sig.LongName())

	wheel, ok := lib.Signal("Wheel_Speed")
	require.True(t, ok)
	wheelDef, ok := wheel.Definition()
	require.True(t, ok)
	assert.Equal(t, float32(0.00390625), wheelDef.Scale)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join("testdata", "no-such.dbc"))
	assert.Error(t, err)
}

func TestNewFromFrames(t *testing.T) {
	frame, err := newFrameFromEntry(42, FrameDefinition{ID: 42, Name: "Seed", Length: 8})
	require.NoError(t, err)

	lib := NewFromFrames(map[uint32]*Frame{42: frame})
	got, ok := lib.Frame(42)
	require.True(t, ok)
	assert.Equal(t, "Seed", got.Name())

	assert.Equal(t, 0, NewFromFrames(nil).Len())
}
