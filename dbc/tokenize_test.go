package dbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineVersion(t *testing.T) {
	entry, err := ParseLine(`VERSION "1.0"`)
	require.NoError(t, err)
	require.Equal(t, KindVersion, entry.Kind())
	assert.Equal(t, Version{Text: "1.0"}, entry)
}

func TestParseLineBusConfiguration(t *testing.T) {
	entry, err := ParseLine(`BS_: 12345`)
	require.NoError(t, err)
	require.Equal(t, KindBusConfiguration, entry.Kind())
	assert.Equal(t, BusConfiguration{Speed: 12345}, entry)
}

func TestParseLineFrameDefinition(t *testing.T) {
	entry, err := ParseLine(`BO_ 2364539904 EEC1 : 8 Vector__XXX`)
	require.NoError(t, err)
	require.Equal(t, KindFrameDefinition, entry.Kind())
	assert.Equal(t, FrameDefinition{
		ID:     2364539904,
		Name:   "EEC1",
		Length: 8,
		Sender: "Vector__XXX",
	}, entry)
}

func TestParseLineFrameDescription(t *testing.T) {
	entry, err := ParseLine(`CM_ BO_ 2364539904 "Electronic Engine Controller 1";`)
	require.NoError(t, err)
	require.Equal(t, KindFrameDescription, entry.Kind())
	assert.Equal(t, FrameDescription{
		ID:   2364539904,
		Text: "Electronic Engine Controller 1",
	}, entry)
}

func TestParseLineFrameAttribute(t *testing.T) {
	entry, err := ParseLine(`BA_ "VFrameFormat" BO_ 2364539904 3;`)
	require.NoError(t, err)
	require.Equal(t, KindFrameAttribute, entry.Kind())
	assert.Equal(t, FrameAttribute{
		ID:    2364539904,
		Key:   "VFrameFormat",
		Value: "3",
	}, entry)
}

func TestParseLineSignalDefinition(t *testing.T) {
	entry, err := ParseLine(` SG_ Engine_Speed : 24|16@1+ (0.125,0) [0|8031.88] "rpm" Vector__XXX`)
	require.NoError(t, err)
	require.Equal(t, KindSignalDefinition, entry.Kind())
	assert.Equal(t, SignalDefinition{
		Name:         "Engine_Speed",
		StartBit:     24,
		BitLen:       16,
		LittleEndian: true,
		Signed:       false,
		Scale:        0.125,
		Offset:       0,
		Min:          0,
		Max:          8031.88,
		Unit:         "rpm",
		Receivers:    "Vector__XXX",
	}, entry)
}

func TestParseLineSignalDefinitionSignedBigEndian(t *testing.T) {
	entry, err := ParseLine(` SG_ Ambient_Temp : 7|10@0- (0.5,-40) [-40|210] "deg C" ECU1,ECU2`)
	require.NoError(t, err)

	def, ok := entry.(SignalDefinition)
	require.True(t, ok)
	assert.False(t, def.LittleEndian)
	assert.True(t, def.Signed)
	assert.Equal(t, float32(0.5), def.Scale)
	assert.Equal(t, float32(-40), def.Offset)
	assert.Equal(t, "ECU1,ECU2", def.Receivers)
}

// Multiplexer markers are dropped; the signal parses like a plain one.
func TestParseLineSignalDefinitionMultiplexed(t *testing.T) {
	entry, err := ParseLine(` SG_ Muxed m2 : 8|8@1+ (1,0) [0|255] "" Vector__XXX`)
	require.NoError(t, err)

	def, ok := entry.(SignalDefinition)
	require.True(t, ok)
	assert.Equal(t, "Muxed", def.Name)
	assert.Equal(t, uint(8), def.StartBit)
	assert.Equal(t, uint(8), def.BitLen)
}

func TestParseLineSignalDefinitionExponentScale(t *testing.T) {
	entry, err := ParseLine(` SG_ Tiny : 0|8@1+ (1e-5,0) [0|0.00255] "" Vector__XXX`)
	require.NoError(t, err)

	def, ok := entry.(SignalDefinition)
	require.True(t, ok)
	assert.InDelta(t, 1e-5, float64(def.Scale), 1e-12)
}

func TestParseLineSignalDescription(t *testing.T) {
	entry, err := ParseLine(`CM_ SG_ 2364539904 Engine_Speed "Actual engine speed.";`)
	require.NoError(t, err)
	require.Equal(t, KindSignalDescription, entry.Kind())
	assert.Equal(t, SignalDescription{
		ID:         2364539904,
		SignalName: "Engine_Speed",
		Text:       "Actual engine speed.",
	}, entry)
}

func TestParseLineSignalAttribute(t *testing.T) {
	entry, err := ParseLine(`BA_ "SPN" SG_ 2364539904 Engine_Speed 190;`)
	require.NoError(t, err)
	require.Equal(t, KindSignalAttribute, entry.Kind())
	assert.Equal(t, SignalAttribute{
		ID:         2364539904,
		SignalName: "Engine_Speed",
		Key:        "SPN",
		Value:      "190",
	}, entry)
}

func TestParseLineSignalAttributeQuoted(t *testing.T) {
	entry, err := ParseLine(`BA_ "SystemSignalLongSymbol" SG_ 2364539904 Engine_Speed "EngineSpeedExtended";`)
	require.NoError(t, err)

	attr, ok := entry.(SignalAttribute)
	require.True(t, ok)
	assert.Equal(t, "SystemSignalLongSymbol", attr.Key)
	assert.Equal(t, "EngineSpeedExtended", attr.Value)
}

func TestParseLineSignalValueTable(t *testing.T) {
	entry, err := ParseLine(`VAL_ 2364539904 Engine_Speed 0 "Stopped" 1 "Running" ;`)
	require.NoError(t, err)
	require.Equal(t, KindSignalValueTable, entry.Kind())
	assert.Equal(t, SignalValueTable{
		ID:         2364539904,
		SignalName: "Engine_Speed",
		Values: map[uint64]string{
			0: "Stopped",
			1: "Running",
		},
	}, entry)
}

func TestParseLineUnknownDirectives(t *testing.T) {
	lines := []string{
		`NS_ :`,
		`BU_: Vector__XXX ECU1`,
		`BS_:`,
		`VAL_TABLE_ StatusTable 0 "Off" 1 "On" ;`,
		`BA_DEF_ BO_ "VFrameFormat" ENUM "StandardCAN","ExtendedCAN";`,
		`BA_DEF_DEF_ "VFrameFormat" "ExtendedCAN";`,
		`SIG_VALTYPE_ 1024 Float_Signal : 1;`,
		`CM_ "global comment";`,
	}

	for _, line := range lines {
		entry, err := ParseLine(line)
		require.NoError(t, err, "line: %s", line)
		assert.Equal(t, KindUnknown, entry.Kind(), "line: %s", line)
	}
}

func TestParseLineNoMatch(t *testing.T) {
	for _, line := range []string{
		`this is not a dbc line`,
		`BO_TX_BU_ 1024 : ECU1;`,
		`VERSION without quotes`,
	} {
		_, err := ParseLine(line)
		assert.ErrorIs(t, err, ErrNoMatch, "line: %s", line)
	}
}
