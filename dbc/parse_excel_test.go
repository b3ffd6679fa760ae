package dbc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", excelSheet))

	header := []interface{}{
		"CanId", "CanName", "PeriodOfTx", "MsgLen", "StartByte",
		"StartBit", "BitWidth", "SignalName", "SignalSymbol", "TransmitterECU",
	}
	require.NoError(t, f.SetSheetRow(excelSheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(excelSheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "dbc.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseExcel(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"256", "Engine", "100", "8", "0", "0", "16", "Engine_Speed", "rpm", "ECU1"},
		{"256", "Engine", "100", "8", "2", "16", "8", "Throttle", "%", "ECU1"},
		{"512", "Brake", "50", "8", "0", "0", "8", "Brake_Pressure", "kPa", "ECU2"},
	})

	lib := New()
	require.NoError(t, ParseExcel(path, lib))

	require.Equal(t, 2, lib.Len())
	engine, ok := lib.Frame(256)
	require.True(t, ok)
	assert.Equal(t, "Engine", engine.Name())
	assert.Equal(t, uint32(8), engine.Length())
	assert.Equal(t, "ECU1", engine.Sender())
	assert.Equal(t, []string{"Engine_Speed", "Throttle"}, engine.SignalNames())

	sig, ok := engine.Signal("Throttle")
	require.True(t, ok)
	def, ok := sig.Definition()
	require.True(t, ok)
	assert.Equal(t, uint(16), def.StartBit)
	assert.Equal(t, uint(8), def.BitLen)
	// the sheet has no scaling columns
	assert.Equal(t, float32(1), def.Scale)
	assert.Equal(t, float32(0), def.Offset)
}

func TestParseExcelSkipsBadRows(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"not-a-number", "Engine", "100", "8", "0", "0", "16", "Engine_Speed", "rpm", "ECU1"},
		{"short", "row"},
		{"512", "Brake", "50", "8", "0", "0", "8", "Brake_Pressure", "kPa", "ECU2"},
	})

	lib := New()
	require.NoError(t, ParseExcel(path, lib))

	require.Equal(t, 1, lib.Len())
	_, ok := lib.Frame(512)
	assert.True(t, ok)
}

func TestParseExcelMissingFile(t *testing.T) {
	lib := New()
	assert.Error(t, ParseExcel(filepath.Join(t.TempDir(), "absent.xlsx"), lib))
}
