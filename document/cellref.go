package document

import (
	"fmt"
	"strings"
)

// CellRef identifies a single cell by sheet name and 1-based row/column.
type CellRef struct {
	Sheet string // sheet name (empty = unqualified)
	Row   int    // 1-based row index
	Col   int    // 1-based column index
}

// NewCellRef creates a CellRef with explicit sheet, row, col.
func NewCellRef(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// ParseCellRef parses a cell reference string like "A1", "Sheet1!B5",
// "'Report 1'!$B$3" or "$A$1".
func ParseCellRef(s string) (CellRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CellRef{}, fmt.Errorf("empty cell reference")
	}

	var sheet string
	cellPart := s

	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		sheet = strings.Trim(s[:idx], "'")
		cellPart = s[idx+1:]
	}

	cellPart = strings.ReplaceAll(cellPart, "$", "")
	if cellPart == "" {
		return CellRef{}, fmt.Errorf("invalid cell reference: %q", s)
	}

	col, row, err := parseCellName(cellPart)
	if err != nil {
		return CellRef{}, fmt.Errorf("invalid cell reference %q: %w", s, err)
	}

	return CellRef{Sheet: sheet, Row: row, Col: col}, nil
}

// parseCellName parses "A1" into col=1, row=1.
func parseCellName(name string) (col, row int, err error) {
	if len(name) == 0 {
		return 0, 0, fmt.Errorf("empty cell name")
	}

	i := 0
	for i < len(name) && isAlpha(name[i]) {
		i++
	}
	if i == 0 || i == len(name) {
		return 0, 0, fmt.Errorf("invalid cell name: %q", name)
	}

	colStr := name[:i]
	rowStr := name[i:]

	col, err = NameToCol(colStr)
	if err != nil {
		return 0, 0, err
	}

	rowNum := 0
	for _, ch := range rowStr {
		if ch < '0' || ch > '9' {
			return 0, 0, fmt.Errorf("invalid row in cell name: %q", name)
		}
		rowNum = rowNum*10 + int(ch-'0')
	}
	if rowNum < 1 {
		return 0, 0, fmt.Errorf("invalid row number in cell name: %q", name)
	}

	return col, rowNum, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// String formats the CellRef as "Sheet1!A1" or "A1" if no sheet.
func (c CellRef) String() string {
	name := c.CellName()
	if c.Sheet != "" {
		return QuoteSheetName(c.Sheet) + "!" + name
	}
	return name
}

// CellName returns just the cell part like "A1" without sheet name.
func (c CellRef) CellName() string {
	return ColToName(c.Col) + fmt.Sprintf("%d", c.Row)
}

// AbsoluteName returns the cell part with absolute markers, like "$A$1".
func (c CellRef) AbsoluteName() string {
	return "$" + ColToName(c.Col) + fmt.Sprintf("$%d", c.Row)
}

// ColToName converts a 1-based column index to a column name.
// 1→"A", 26→"Z", 27→"AA"
func ColToName(col int) string {
	result := ""
	for col > 0 {
		col-- // adjust for 0-indexed letter
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// NameToCol converts a column name to a 1-based column index.
// "A"→1, "Z"→26, "AA"→27
func NameToCol(name string) (int, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, ch := range name {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name: %q", name)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col, nil
}

// QuoteSheetName quotes a sheet name for use in a reference if it contains
// anything beyond letters, digits and underscores.
func QuoteSheetName(name string) string {
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}

// AreaRef is a rectangular area defined by two cell references.
type AreaRef struct {
	First CellRef
	Last  CellRef
}

// NewAreaRef creates an AreaRef from two cell references.
func NewAreaRef(first, last CellRef) AreaRef {
	return AreaRef{First: first, Last: last}
}

// ParseAreaRef parses an area reference string like "A1:C5",
// "Sheet1!A1:C5" or "'Report 3'!$A$1:$E$5". A single-cell reference like
// "B3" parses to a one-cell area.
func ParseAreaRef(s string) (AreaRef, error) {
	s = strings.TrimSpace(s)

	parts := strings.SplitN(s, ":", 2)
	first, err := ParseCellRef(parts[0])
	if err != nil {
		return AreaRef{}, fmt.Errorf("invalid area reference %q: %w", s, err)
	}

	if len(parts) == 1 {
		return AreaRef{First: first, Last: first}, nil
	}

	last, err := ParseCellRef(parts[1])
	if err != nil {
		return AreaRef{}, fmt.Errorf("invalid area reference %q: %w", s, err)
	}

	// Inherit sheet name from first cell if last doesn't have one
	if last.Sheet == "" && first.Sheet != "" {
		last.Sheet = first.Sheet
	}

	// Normalize so First is the top-left corner
	if last.Row < first.Row {
		first.Row, last.Row = last.Row, first.Row
	}
	if last.Col < first.Col {
		first.Col, last.Col = last.Col, first.Col
	}

	return AreaRef{First: first, Last: last}, nil
}

// String formats the AreaRef as "Sheet1!A1:C5" or "A1:C5".
func (a AreaRef) String() string {
	if a.IsCell() {
		return a.First.String()
	}
	if a.First.Sheet != "" {
		return QuoteSheetName(a.First.Sheet) + "!" + a.First.CellName() + ":" + a.Last.CellName()
	}
	return a.First.CellName() + ":" + a.Last.CellName()
}

// IsCell reports whether the area covers exactly one cell.
func (a AreaRef) IsCell() bool {
	return a.First.Row == a.Last.Row && a.First.Col == a.Last.Col
}

// Rows returns the number of rows covered by the area.
func (a AreaRef) Rows() int { return a.Last.Row - a.First.Row + 1 }

// Cols returns the number of columns covered by the area.
func (a AreaRef) Cols() int { return a.Last.Col - a.First.Col + 1 }

// Contains reports whether the given cell reference lies within this area.
// The sheet name is ignored.
func (a AreaRef) Contains(ref CellRef) bool {
	return ref.Row >= a.First.Row && ref.Row <= a.Last.Row &&
		ref.Col >= a.First.Col && ref.Col <= a.Last.Col
}

// SheetName returns the sheet name of this area (from the First cell).
func (a AreaRef) SheetName() string {
	return a.First.Sheet
}
