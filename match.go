package xlsxextract

import (
	"fmt"
	"strings"

	"github.com/optilude/xlsx-extract/document"
)

// Match is a declarative locator, either a CellMatch or a RangeMatch,
// resolvable against a workbook to a concrete Range. A failed resolution
// returns a nil Range and a Null matched value; it is not an error.
type Match interface {
	// MatchName returns the configured name of the match, used in messages.
	MatchName() string

	// SheetComparator returns the sheet filter, or nil.
	SheetComparator() *Comparator

	// Match resolves the locator against a workbook. The second result is
	// the value captured by the match's value comparator, if any.
	Match(wb *document.Workbook) (*Range, document.Value)
}

// CellMatch locates a single cell, either by reference (defined name, named
// table or literal coordinate) or by scanning for a value within optional
// bounds. Exactly one of Reference and Value must be set. Construct with
// NewCellMatch.
type CellMatch struct {
	Name      string
	Sheet     *Comparator
	Reference string
	Value     *Comparator

	RowOffset int
	ColOffset int

	// Search bounds for value matches; zero means unbounded.
	MinRow int
	MinCol int
	MaxRow int
	MaxCol int
}

// NewCellMatch validates a CellMatch and returns a copy of it.
func NewCellMatch(m CellMatch) (*CellMatch, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *CellMatch) validate() error {
	if m.Reference == "" && m.Value == nil {
		return fmt.Errorf("%s: either a reference or a value match is required", m.Name)
	}
	if m.Reference != "" && m.Value != nil {
		return fmt.Errorf("%s: only one of reference and value match may be given", m.Name)
	}
	if m.MinRow < 0 || m.MinCol < 0 || m.MaxRow < 0 || m.MaxCol < 0 {
		return fmt.Errorf("%s: search bounds must be positive", m.Name)
	}
	return nil
}

func (m *CellMatch) clone() *CellMatch {
	c := *m
	return &c
}

// MatchName implements Match.
func (m *CellMatch) MatchName() string { return m.Name }

// SheetComparator implements Match.
func (m *CellMatch) SheetComparator() *Comparator { return m.Sheet }

// Match resolves the cell match against a workbook, returning a one-cell
// Range and the value captured by the value comparator (Null for reference
// lookups), or nil if nothing matched.
func (m *CellMatch) Match(wb *document.Workbook) (*Range, document.Value) {
	cell, captured := m.matchCell(wb, nil)
	if cell == nil {
		return nil, document.Null
	}
	return NewRange([][]*document.Cell{{cell}}), captured
}

// matchCell resolves the match to a single cell. fallback, if not nil, is
// the sheet to search when the match has no sheet comparator of its own
// (used by range matches and target locators to inject their sheet).
func (m *CellMatch) matchCell(wb *document.Workbook, fallback *document.Sheet) (*document.Cell, document.Value) {
	sheet := fallback
	if m.Sheet != nil {
		// an explicit sheet filter that matches nothing is a miss, not a
		// fallthrough to the enclosing sheet
		sheet = selectSheet(wb, m.Sheet)
	}

	var cell *document.Cell
	captured := document.Null

	if m.Reference != "" {
		rng := resolveReference(wb, sheet, m.Reference)
		if rng == nil || !rng.IsCell() {
			// a multi-cell reference is not a valid cell match
			return nil, document.Null
		}
		cell = rng.Cell()
	} else {
		cell, captured = m.scanForValue(sheet)
	}

	if cell == nil {
		return nil, document.Null
	}

	// Offsets apply after the search, and may legally leave the search box
	row := cell.Row() + m.RowOffset
	col := cell.Column() + m.ColOffset
	if row < 1 || col < 1 {
		return nil, document.Null
	}
	return cell.Sheet().Cell(row, col), captured
}

// scanForValue searches the sheet row by row, left to right, within the
// configured bounds, returning the first cell whose value satisfies the
// value comparator together with the captured value.
func (m *CellMatch) scanForValue(sheet *document.Sheet) (*document.Cell, document.Value) {
	if sheet == nil {
		return nil, document.Null
	}

	dimRow, dimCol := sheet.Dimensions()

	minRow, minCol := m.MinRow, m.MinCol
	if minRow == 0 {
		minRow = 1
	}
	if minCol == 0 {
		minCol = 1
	}
	maxRow, maxCol := m.MaxRow, m.MaxCol
	if maxRow == 0 {
		maxRow = dimRow
	}
	if maxCol == 0 {
		maxCol = dimCol
	}

	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			cell := sheet.Cell(r, c)
			if captured, ok := m.Value.Match(cell.Value()); ok {
				return cell, captured
			}
		}
	}
	return nil, document.Null
}

// RangeMatch locates a rectangular block, either by reference or from a
// start cell combined with one of three mutually exclusive size modes: an
// end cell, fixed dimensions, or contiguous growth (the default).
// Construct with NewRangeMatch.
type RangeMatch struct {
	Name      string
	Sheet     *Comparator
	Reference string
	StartCell *CellMatch
	EndCell   *CellMatch
	Rows      int
	Cols      int
}

// NewRangeMatch validates a RangeMatch and returns a copy of it. If the
// range match has a sheet comparator and its start/end cell matches do
// not, the sheet is copied into new child values, so a nested lookup by
// value inherits the enclosing sheet filter.
func NewRangeMatch(m RangeMatch) (*RangeMatch, error) {
	if m.Reference == "" && m.StartCell == nil {
		return nil, fmt.Errorf("%s: either a reference or a start cell is required", m.Name)
	}
	if m.Reference != "" && m.StartCell != nil {
		return nil, fmt.Errorf("%s: only one of reference and start cell may be given", m.Name)
	}
	if m.EndCell != nil && m.StartCell == nil {
		return nil, fmt.Errorf("%s: an end cell requires a start cell", m.Name)
	}
	if m.EndCell != nil && (m.Rows != 0 || m.Cols != 0) {
		return nil, fmt.Errorf("%s: only one of an end cell and fixed dimensions may be given", m.Name)
	}
	if (m.Rows != 0) != (m.Cols != 0) {
		return nil, fmt.Errorf("%s: rows and columns must be given together", m.Name)
	}
	if m.Rows < 0 || m.Cols < 0 {
		return nil, fmt.Errorf("%s: dimensions must be positive", m.Name)
	}

	// Propagate the sheet filter onto copies, never into shared state
	if m.StartCell != nil {
		m.StartCell = m.StartCell.clone()
		if m.StartCell.Sheet == nil {
			m.StartCell.Sheet = m.Sheet
		}
		if err := m.StartCell.validate(); err != nil {
			return nil, err
		}
	}
	if m.EndCell != nil {
		m.EndCell = m.EndCell.clone()
		if m.EndCell.Sheet == nil {
			m.EndCell.Sheet = m.Sheet
		}
		if err := m.EndCell.validate(); err != nil {
			return nil, err
		}
	}

	return &m, nil
}

// Contiguous reports whether the match uses contiguous growth, the default
// when neither an end cell nor fixed dimensions are given.
func (m *RangeMatch) Contiguous() bool {
	return m.StartCell != nil && m.EndCell == nil && m.Rows == 0
}

// MatchName implements Match.
func (m *RangeMatch) MatchName() string { return m.Name }

// SheetComparator implements Match.
func (m *RangeMatch) SheetComparator() *Comparator { return m.Sheet }

// Match resolves the range match against a workbook. The captured value is
// whatever the start cell's value search captured; reference-based
// resolutions return Null for that slot.
func (m *RangeMatch) Match(wb *document.Workbook) (*Range, document.Value) {
	if m.Reference != "" {
		sheet := selectSheet(wb, m.Sheet)
		rng := resolveReference(wb, sheet, m.Reference)
		if rng == nil || rng.IsEmpty() {
			return nil, document.Null
		}
		return rng, document.Null
	}

	start, captured := m.StartCell.matchCell(wb, nil)
	if start == nil {
		return nil, document.Null
	}
	sheet := start.Sheet()

	switch {
	case m.EndCell != nil:
		end, _ := m.EndCell.matchCell(wb, nil)
		if end == nil || end.Sheet() != sheet {
			return nil, document.Null
		}
		minRow, maxRow := ordered(start.Row(), end.Row())
		minCol, maxCol := ordered(start.Column(), end.Column())
		return NewRange(sheet.Rect(minRow, minCol, maxRow, maxCol)), captured

	case m.Rows != 0:
		return NewRange(sheet.Rect(
			start.Row(), start.Column(),
			start.Row()+m.Rows-1, start.Column()+m.Cols-1,
		)), captured

	default:
		return NewRange(growContiguous(start)), captured
	}
}

// growContiguous expands a range from an anchor cell: rightward along the
// anchor's row and downward along the anchor's column, stopping at the
// first null or empty-text cell in each direction. The anchor cell itself
// may be blank (a table corner) without terminating growth.
func growContiguous(anchor *document.Cell) [][]*document.Cell {
	sheet := anchor.Sheet()
	row, col := anchor.Row(), anchor.Column()

	maxCol := col
	for !sheet.Cell(row, maxCol+1).Value().IsEmpty() {
		maxCol++
	}
	maxRow := row
	for !sheet.Cell(maxRow+1, col).Value().IsEmpty() {
		maxRow++
	}

	return sheet.Rect(row, col, maxRow, maxCol)
}

func ordered(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}

// selectSheet returns the first sheet whose title satisfies the comparator,
// or nil when the comparator is nil or nothing matches.
func selectSheet(wb *document.Workbook, sheet *Comparator) *document.Sheet {
	if sheet == nil {
		return nil
	}
	for _, s := range wb.Sheets() {
		if _, ok := sheet.Match(document.TextValue(s.Title())); ok {
			return s
		}
	}
	return nil
}

// resolveReference resolves a reference string to a Range: first as a
// defined name local to the selected sheet, then as a global defined name,
// then as a named table on the selected sheet, and finally as a literal
// coordinate (which may itself be sheet-qualified). Returns nil when the
// reference cannot be resolved.
func resolveReference(wb *document.Workbook, sheet *document.Sheet, ref string) *Range {
	if dn, ok := wb.DefinedName(ref, sheet); ok {
		return rangeFromQualifiedRef(wb, dn.RefersTo, AliasDefinedName, dn.Name)
	}

	if tbl, ok := wb.Table(sheet, ref); ok {
		area, err := document.ParseAreaRef(tbl.Range)
		if err != nil {
			return nil
		}
		return NewAliasedRange(rectFromArea(sheet, area), AliasNamedTable, tbl.Name)
	}

	area, err := document.ParseAreaRef(ref)
	if err != nil {
		return nil
	}
	target := sheet
	if area.SheetName() != "" {
		target = wb.Sheet(area.SheetName())
	}
	if target == nil {
		return nil
	}
	return NewRange(rectFromArea(target, area))
}

// rangeFromQualifiedRef builds an aliased Range from a sheet-qualified
// reference string such as "'Report 3'!$A$1:$E$5".
func rangeFromQualifiedRef(wb *document.Workbook, ref string, kind AliasKind, name string) *Range {
	if strings.Contains(ref, ",") {
		// multi-area references are not supported
		return nil
	}
	area, err := document.ParseAreaRef(ref)
	if err != nil {
		return nil
	}
	sheet := wb.Sheet(area.SheetName())
	if sheet == nil {
		return nil
	}
	return NewAliasedRange(rectFromArea(sheet, area), kind, name)
}

func rectFromArea(sheet *document.Sheet, area document.AreaRef) [][]*document.Cell {
	return sheet.Rect(area.First.Row, area.First.Col, area.Last.Row, area.Last.Col)
}
