package dbc

import (
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Column layout of the DBC sheet.
const (
	colCanId = iota
	colCanName
	colPeriodOfTx
	colMsgLen
	colStartByte
	colStartBit
	colBitWidth
	colSignalName
	colSignalSymbol
	colTransmitterECU
	excelMaxColumn
)

const excelSheet = "DBC"

// ParseExcel merges the frame/signal rows of an exported workbook into lib.
// Each row carries one signal together with its frame columns; rows are fed
// through the same entry path as DBC lines, so a frame row seen twice simply
// merges. Only the layout columns are filled in; scale, offset and limits are
// not part of the sheet.
func ParseExcel(path string, lib *Library) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(excelSheet)
	if err != nil {
		return err
	}

	for idx, row := range rows {
		// header row
		if idx == 0 {
			continue
		}

		if len(row) < excelMaxColumn {
			log.Errorf("Invalid number of columns! want(%d), has(%d)", excelMaxColumn, len(row))
			continue
		}

		id, err := strconv.ParseUint(row[colCanId], 10, 32)
		if err != nil {
			log.Errorf("Invalid CAN ID in row %d: %v", idx+1, err)
			continue
		}
		length, _ := strconv.ParseUint(row[colMsgLen], 10, 32)
		startBit, _ := strconv.ParseUint(row[colStartBit], 10, 64)
		bitWidth, _ := strconv.ParseUint(row[colBitWidth], 10, 64)

		if err := lib.AddEntry(FrameDefinition{
			ID:     uint32(id),
			Name:   row[colCanName],
			Length: uint32(length),
			Sender: row[colTransmitterECU],
		}); err != nil {
			return err
		}

		if err := lib.AddEntry(SignalDefinition{
			Name:     row[colSignalName],
			StartBit: uint(startBit),
			BitLen:   uint(bitWidth),
			Scale:    1,
		}); err != nil {
			return err
		}
	}

	return nil
}
