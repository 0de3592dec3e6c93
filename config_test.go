package xlsxextract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilude/xlsx-extract/document"
)

func TestParseComparator(t *testing.T) {
	for spelling, op := range map[string]Operator{
		"is": Equal, "=": Equal, "==": Equal,
		"is not": NotEqual, "!=": NotEqual,
		"matches": Regex, "regex": Regex,
		"<": Less, "<=": LessEqual, ">": Greater, ">=": GreaterEqual,
		"is empty": Empty, "empty": Empty,
		"is not empty": NotEmpty, "not empty": NotEmpty,
	} {
		cmp, err := parseComparator(spelling, document.TextValue("x"))
		require.NoError(t, err, spelling)
		assert.Equal(t, op, cmp.Operator(), spelling)
	}

	// Spellings are case-insensitive and tolerate padding
	cmp, err := parseComparator("  IS  ", document.TextValue("x"))
	require.NoError(t, err)
	assert.Equal(t, Equal, cmp.Operator())

	_, err = parseComparator("froobs", document.TextValue("x"))
	assert.Error(t, err)
}

func TestRunner_ParseBlock(t *testing.T) {
	wb := buildWorkbook(t, sheetFixture{name: "Config", cells: map[string]any{
		"A1": "Name", "B1": "is", "C1": "Profit",
		"A2": "Min Row", "B2": "is", "C2": 4,
		"A3": "", "B3": "is", "C3": "skipped",
		"A4": 12, "B4": "is", "C4": "skipped too",
	}})
	sheet := wb.Sheet("Config")

	r := NewRunner(nil)
	b, err := r.parseBlock(NewRange(sheet.Rect(1, 1, 4, 3)))
	require.NoError(t, err)
	require.NotNil(t, b)

	// Keys are lowercased; rows without a textual key are skipped
	assert.Len(t, b, 2)
	assert.Equal(t, "Profit", b["name"].Operand().Text())
	assert.Equal(t, 4.0, b["min row"].Operand().Number())
}

func TestRunner_ParseBlockInterpolates(t *testing.T) {
	wb := buildWorkbook(t, sheetFixture{name: "Config", cells: map[string]any{
		"A1": "Value", "B1": "is", "C1": "${label}",
	}})
	sheet := wb.Sheet("Config")

	r := NewRunner(nil)
	r.setVariable("Label", "Beta")

	b, err := r.parseBlock(NewRange(sheet.Rect(1, 1, 1, 3)))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Beta", b["value"].Operand().Text())
}

func TestRunner_ParseBlockRejectsNarrowRanges(t *testing.T) {
	wb := buildWorkbook(t, sheetFixture{name: "Config", cells: map[string]any{
		"A1": "Name", "B1": "is",
	}})
	sheet := wb.Sheet("Config")

	r := NewRunner(nil)
	b, err := r.parseBlock(NewRange(sheet.Rect(1, 1, 2, 2)))
	require.NoError(t, err)
	assert.Nil(t, b)
}

func saveWorkbook(t *testing.T, wb *document.Workbook, path string) {
	t.Helper()
	require.NoError(t, wb.SaveAs(path))
}

func TestRun_CellToCell(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "source.xlsx")
	saveWorkbook(t, sourceWorkbook(t), srcPath)

	targetWb := buildWorkbook(t,
		sheetFixture{name: "Config", cells: map[string]any{
			"A1": "Name", "B1": "is", "C1": "Profit value",
			"A2": "Sheet", "B2": "is", "C2": "Report 1",
			"A3": "Value", "B3": "is", "C3": "Profit",
			"A4": "Column offset", "B4": "is", "C4": 1,
			"A5": "Target cell", "B5": "is", "C5": "Out!B2",
		}},
		sheetFixture{name: "Out", cells: map[string]any{"B2": 0}},
	)

	history := Run(targetWb, "", srcPath, "Config")
	require.Len(t, history, 1)
	assert.True(t, history[0].Success, history[0].Message)
	assert.Equal(t, "Profit value", history[0].Name)

	assert.Equal(t, 6.0, cellValue(t, targetWb, "Out", 2, 2).Number())
}

func TestRun_DirectoryAndFileBlocks(t *testing.T) {
	dir := t.TempDir()
	saveWorkbook(t, sourceWorkbook(t), filepath.Join(dir, "report-2021.xlsx"))

	targetWb := buildWorkbook(t,
		sheetFixture{name: "Config", cells: map[string]any{
			"A1": "Directory", "B1": "is", "C1": dir,

			"A3": "File", "B3": "matches", "C3": `report-(.+)\.xlsx`,

			"A5": "Name", "B5": "is", "C5": "Profit value",
			"A6": "Sheet", "B6": "is", "C6": "Report 1",
			"A7": "Cell", "B7": "is", "C7": "PROFIT",
			"A8": "Target cell", "B8": "is", "C8": "Out!B2",
		}},
		sheetFixture{name: "Out", cells: map[string]any{"B2": 0}},
	)

	r := NewRunner(nil)
	history := r.Run(targetWb, "", "", "Config")
	require.Len(t, history, 3)
	for _, action := range history {
		assert.True(t, action.Success, action.Name+": "+action.Message)
	}

	// The regex capture from the filename becomes a variable
	assert.Equal(t, "2021", r.variables["file"])

	assert.Equal(t, 6.0, cellValue(t, targetWb, "Out", 2, 2).Number())
}

func TestRun_SourceMatchOnlyRecordsVariable(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "source.xlsx")
	saveWorkbook(t, sourceWorkbook(t), srcPath)

	targetWb := buildWorkbook(t,
		sheetFixture{name: "Config", cells: map[string]any{
			"A1": "Name", "B1": "is", "C1": "Label",
			"A2": "Sheet", "B2": "is", "C2": "Report 1",
			"A3": "Value", "B3": "matches", "C3": "^Quarterly (.+)$",
		}},
	)

	r := NewRunner(nil)
	history := r.Run(targetWb, "", srcPath, "Config")
	require.Len(t, history, 1)
	assert.True(t, history[0].Success, history[0].Message)
	assert.Equal(t, "Report", r.variables["label"])
}

func TestRun_NameBlockWithoutFileFails(t *testing.T) {
	targetWb := buildWorkbook(t,
		sheetFixture{name: "Config", cells: map[string]any{
			"A1": "Name", "B1": "is", "C1": "Too early",
			"A2": "Cell", "B2": "is", "C2": "A1",
		}},
	)

	history := Run(targetWb, "", "", "Config")
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
}

func TestRun_UnrecognisedOperatorFailsBlock(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "source.xlsx")
	saveWorkbook(t, sourceWorkbook(t), srcPath)

	targetWb := buildWorkbook(t,
		sheetFixture{name: "Config", cells: map[string]any{
			"A1": "Name", "B1": "froobs", "C1": "Broken",
			"A2": "Cell", "B2": "is", "C2": "A1",
		}},
	)

	history := Run(targetWb, "", srcPath, "Config")
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Message, "froobs")
}

func TestRun_NoConfigSheet(t *testing.T) {
	targetWb := buildWorkbook(t, sheetFixture{name: "Out", cells: map[string]any{"A1": 1}})
	assert.Nil(t, Run(targetWb, "", "", "Config"))
}

func TestRun_TableBlock(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "source.xlsx")
	saveWorkbook(t, sourceWorkbook(t), srcPath)

	targetWb := buildWorkbook(t,
		sheetFixture{name: "Config", cells: map[string]any{
			"A1": "Name", "B1": "is", "C1": "Data",
			"A2": "Sheet", "B2": "is", "C2": "Report 1",
			"A3": "Start value", "B3": "is", "C3": "Name",
			"A4": "Target table", "B4": "is", "C4": "Out!B2:C3",
			"A5": "Expand", "B5": "is", "C5": true,
		}},
		sheetFixture{name: "Out", cells: map[string]any{
			"B2": "h1", "C2": "h2",
			"B3": "a", "C3": 1,
		}},
	)

	history := Run(targetWb, "", srcPath, "Config")
	require.Len(t, history, 1)
	assert.True(t, history[0].Success, history[0].Message)

	assert.Equal(t, "Name", cellValue(t, targetWb, "Out", 2, 2).Text())
	assert.Equal(t, "Delta", cellValue(t, targetWb, "Out", 6, 2).Text())
	assert.Equal(t, 13.0, cellValue(t, targetWb, "Out", 6, 6).Number())
}
