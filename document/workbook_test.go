package document

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testWorkbook(t *testing.T, cells map[string]any) *Workbook {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Report"))
	for axis, v := range cells {
		require.NoError(t, f.SetCellValue("Report", axis, v))
	}
	wb, err := FromFile(f)
	require.NoError(t, err)
	return wb
}

func TestWorkbook_TypedLoad(t *testing.T) {
	wb := testWorkbook(t, map[string]any{
		"A1": "text",
		"B1": 3.5,
		"C1": 4,
		"D1": true,
		"E1": time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		"F1": time.Date(2021, 5, 1, 10, 30, 0, 0, time.UTC),
	})
	s := wb.Sheet("Report")
	require.NotNil(t, s)

	assert.Equal(t, KindText, s.Cell(1, 1).Value().Kind())
	assert.Equal(t, "text", s.Cell(1, 1).Value().Text())

	assert.Equal(t, KindNumber, s.Cell(1, 2).Value().Kind())
	assert.Equal(t, 3.5, s.Cell(1, 2).Value().Number())
	assert.Equal(t, 4.0, s.Cell(1, 3).Value().Number())

	assert.Equal(t, KindBool, s.Cell(1, 4).Value().Kind())
	assert.True(t, s.Cell(1, 4).Value().Bool())

	assert.Equal(t, KindDate, s.Cell(1, 5).Value().Kind())
	assert.Equal(t, 2021, s.Cell(1, 5).Value().Time().Year())

	assert.Equal(t, KindDateTime, s.Cell(1, 6).Value().Kind())
	assert.Equal(t, 10, s.Cell(1, 6).Value().Time().Hour())

	// Unset cells are Null
	assert.True(t, s.Cell(5, 5).Value().IsNull())
}

func TestWorkbook_Sheets(t *testing.T) {
	wb := testWorkbook(t, map[string]any{"A1": 1})

	require.Len(t, wb.Sheets(), 1)
	assert.NotNil(t, wb.Sheet("Report"))
	assert.Nil(t, wb.Sheet("Missing"))

	s, err := wb.AddSheet("Extra")
	require.NoError(t, err)
	assert.Equal(t, "Extra", s.Title())
	assert.Len(t, wb.Sheets(), 2)

	_, err = wb.AddSheet("Extra")
	assert.Error(t, err)
}

func TestWorkbook_DefinedNames(t *testing.T) {
	wb := testWorkbook(t, map[string]any{"B12": 6})
	sheet := wb.Sheet("Report")

	require.NoError(t, wb.SetDefinedName("PROFIT", "", "Report!$B$12"))

	dn, ok := wb.DefinedName("PROFIT", nil)
	require.True(t, ok)
	assert.Equal(t, "Report!$B$12", dn.RefersTo)

	// A sheet-local name shadows the global one for that sheet
	require.NoError(t, wb.SetDefinedName("PROFIT", "Report", "Report!$C$1"))
	dn, ok = wb.DefinedName("PROFIT", sheet)
	require.True(t, ok)
	assert.Equal(t, "Report!$C$1", dn.RefersTo)

	dn, ok = wb.DefinedName("PROFIT", nil)
	require.True(t, ok)
	assert.Equal(t, "Report!$B$12", dn.RefersTo)

	// Replacing keeps a single entry per scope
	require.NoError(t, wb.SetDefinedName("PROFIT", "", "Report!$D$4"))
	dn, _ = wb.DefinedName("PROFIT", nil)
	assert.Equal(t, "Report!$D$4", dn.RefersTo)

	_, ok = wb.DefinedName("MISSING", nil)
	assert.False(t, ok)
}

func TestWorkbook_Tables(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Report"))
	require.NoError(t, f.SetCellValue("Report", "B2", "Key"))
	require.NoError(t, f.SetCellValue("Report", "C2", "Value"))
	require.NoError(t, f.SetCellValue("Report", "B3", "a"))
	require.NoError(t, f.SetCellValue("Report", "C3", 1))
	require.NoError(t, f.AddTable("Report", &excelize.Table{Name: "Summary", Range: "B2:C3"}))

	wb, err := FromFile(f)
	require.NoError(t, err)
	sheet := wb.Sheet("Report")

	tbl, ok := wb.Table(sheet, "Summary")
	require.True(t, ok)
	assert.Equal(t, "B2:C3", tbl.Range)

	_, ok = wb.Table(sheet, "Missing")
	assert.False(t, ok)
	_, ok = wb.Table(nil, "Summary")
	assert.False(t, ok)

	require.NoError(t, wb.SetTableRange(sheet, "Summary", "B2:C5"))
	tbl, _ = wb.Table(sheet, "Summary")
	assert.Equal(t, "B2:C5", tbl.Range)
}

func TestWorkbook_RoundTrip(t *testing.T) {
	wb := testWorkbook(t, map[string]any{"A1": "x", "B2": 2})
	require.NoError(t, wb.Sheet("Report").Cell(3, 3).SetValue(NumberValue(9)))

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	reloaded, err := OpenReader(&buf)
	require.NoError(t, err)
	defer reloaded.Close()

	s := reloaded.Sheet("Report")
	require.NotNil(t, s)
	assert.Equal(t, "x", s.Cell(1, 1).Value().Text())
	assert.Equal(t, 2.0, s.Cell(2, 2).Value().Number())
	assert.Equal(t, 9.0, s.Cell(3, 3).Value().Number())
}

func TestSheet_WriteThrough(t *testing.T) {
	wb := testWorkbook(t, map[string]any{"A1": 1})
	s := wb.Sheet("Report")

	cell := s.Cell(2, 2)
	require.NoError(t, cell.SetValue(TextValue("hello")))
	assert.Equal(t, "hello", s.Cell(2, 2).Value().Text())

	raw, err := wb.File().GetCellValue("Report", "B2")
	require.NoError(t, err)
	assert.Equal(t, "hello", raw)

	err = s.Cell(0, 1).SetValue(TextValue("bad"))
	assert.Error(t, err)
}

func TestSheet_Dimensions(t *testing.T) {
	wb := testWorkbook(t, map[string]any{"B2": 1, "D7": 2})
	s := wb.Sheet("Report")

	maxRow, maxCol := s.Dimensions()
	assert.Equal(t, 7, maxRow)
	assert.Equal(t, 4, maxCol)

	empty := testWorkbook(t, nil)
	maxRow, maxCol = empty.Sheet("Report").Dimensions()
	assert.Equal(t, 0, maxRow)
	assert.Equal(t, 0, maxCol)
}

func TestSheet_Rect(t *testing.T) {
	wb := testWorkbook(t, map[string]any{"A1": 1})
	s := wb.Sheet("Report")

	block := s.Rect(2, 2, 3, 4)
	require.Len(t, block, 2)
	require.Len(t, block[0], 3)
	assert.Equal(t, "B2", block[0][0].Coordinate())
	assert.Equal(t, "D3", block[1][2].Coordinate())

	assert.Nil(t, s.Rect(3, 3, 2, 2))
	assert.Nil(t, s.Rect(0, 1, 1, 1))
}

func TestSheet_InsertDeleteRows(t *testing.T) {
	wb := testWorkbook(t, map[string]any{
		"A1": "one", "A2": "two", "A3": "three",
	})
	s := wb.Sheet("Report")

	require.NoError(t, s.InsertRows(2, 2))
	assert.Equal(t, "one", s.Cell(1, 1).Value().Text())
	assert.True(t, s.Cell(2, 1).Value().IsNull())
	assert.Equal(t, "two", s.Cell(4, 1).Value().Text())
	assert.Equal(t, "three", s.Cell(5, 1).Value().Text())

	// The file shifted too
	raw, err := wb.File().GetCellValue("Report", "A4")
	require.NoError(t, err)
	assert.Equal(t, "two", raw)

	require.NoError(t, s.DeleteRows(2, 2))
	assert.Equal(t, "two", s.Cell(2, 1).Value().Text())
	assert.Equal(t, "three", s.Cell(3, 1).Value().Text())

	maxRow, _ := s.Dimensions()
	assert.Equal(t, 3, maxRow)

	assert.Error(t, s.InsertRows(1, 0))
	assert.Error(t, s.DeleteRows(1, -1))
}

func TestSheet_InsertDeleteCols(t *testing.T) {
	wb := testWorkbook(t, map[string]any{
		"A1": "a", "B1": "b", "C1": "c",
	})
	s := wb.Sheet("Report")

	require.NoError(t, s.InsertCols(2, 1))
	assert.Equal(t, "a", s.Cell(1, 1).Value().Text())
	assert.True(t, s.Cell(1, 2).Value().IsNull())
	assert.Equal(t, "b", s.Cell(1, 3).Value().Text())
	assert.Equal(t, "c", s.Cell(1, 4).Value().Text())

	require.NoError(t, s.DeleteCols(2, 2))
	assert.Equal(t, "a", s.Cell(1, 1).Value().Text())
	assert.Equal(t, "c", s.Cell(1, 2).Value().Text())

	_, maxCol := s.Dimensions()
	assert.Equal(t, 2, maxCol)
}
