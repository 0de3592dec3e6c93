package xlsxextract

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/optilude/xlsx-extract/document"
)

// sheetFixture describes one sheet of an in-memory test workbook.
type sheetFixture struct {
	name  string
	cells map[string]any
}

// buildFile creates an excelize file with the given sheets and cells. The
// first fixture replaces the default sheet.
func buildFile(t *testing.T, sheets ...sheetFixture) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for axis, v := range s.cells {
			require.NoError(t, f.SetCellValue(s.name, axis, v))
		}
	}
	return f
}

// buildWorkbook creates an in-memory workbook with the given sheets.
func buildWorkbook(t *testing.T, sheets ...sheetFixture) *document.Workbook {
	t.Helper()

	wb, err := document.FromFile(buildFile(t, sheets...))
	require.NoError(t, err)
	return wb
}

// reportCells is the standard source sheet used across tests: a header row
// with month names, four data rows, and a lone labelled cell below.
func reportCells() map[string]any {
	return map[string]any{
		"A1": "Quarterly Report",

		"B5": "Name", "C5": "Jan", "D5": "Feb", "E5": "Mar", "F5": "Apr",
		"B6": "Alpha", "C6": 1, "D6": 2, "E6": 3, "F6": 4,
		"B7": "Beta", "C7": 5, "D7": 7, "E7": 9, "F7": 12,
		"B8": "Gamma", "C8": 2, "D8": 4, "E8": 6, "F8": 8,
		"B9": "Delta", "C9": 10, "D9": 11, "E9": 12, "F9": 13,

		"A12": "Profit", "B12": 6,
	}
}

// sourceWorkbook builds the standard source workbook: the report sheet
// plus defined names for the lone cell and the data table.
func sourceWorkbook(t *testing.T) *document.Workbook {
	t.Helper()

	f := buildFile(t, sheetFixture{name: "Report 1", cells: reportCells()})
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{
		Name: "PROFIT", RefersTo: "'Report 1'!$B$12",
	}))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{
		Name: "DATA", RefersTo: "'Report 1'!$B$5:$F$9",
	}))

	wb, err := document.FromFile(f)
	require.NoError(t, err)
	return wb
}

func cellValue(t *testing.T, wb *document.Workbook, sheet string, row, col int) document.Value {
	t.Helper()

	s := wb.Sheet(sheet)
	require.NotNil(t, s)
	return s.Cell(row, col).Value()
}

func mustComparator(t *testing.T, op Operator, operand document.Value) *Comparator {
	t.Helper()

	cmp, err := NewComparator(op, operand)
	require.NoError(t, err)
	return cmp
}

func textEquals(t *testing.T, s string) *Comparator {
	t.Helper()
	return mustComparator(t, Equal, document.TextValue(s))
}
