package xlsxextract

import (
	"fmt"
	"strings"

	"github.com/optilude/xlsx-extract/document"
)

// transferShape is the transfer case a Target performs, decided once at
// construction so the execution path never re-checks which locators are set.
type transferShape int

const (
	shapeCell   transferShape = iota // single cell to single cell
	shapeTable                       // whole-table replace
	shapeVector                      // row/column vector replace or align
)

// Target moves data from a resolved source Range into a target Range, with
// optional row/column triangulation, label alignment and resizing.
// Construct with NewTarget.
type Target struct {
	// Source and Target locate the cell or range being read and written.
	Source Match
	Target Match

	// Row/column locators, resolved within the bounding box of the
	// respective range. On a range side, both pick out a single cell
	// (triangulation) and one picks out a vector.
	SourceRow *CellMatch
	SourceCol *CellMatch
	TargetRow *CellMatch
	TargetCol *CellMatch

	// Align matches vectors by their label cells (first row/column of each
	// table) instead of by position.
	Align bool

	// Expand resizes the target table to fit the source before copying;
	// otherwise oversized sources are silently truncated.
	Expand bool

	shape transferShape
}

// NewTarget validates a Target, fixes its transfer shape, and returns a
// copy of it. The source's sheet filter is copied into source row/column
// locators that have none, and likewise on the target side.
func NewTarget(t Target) (*Target, error) {
	if t.Source == nil || t.Target == nil {
		return nil, fmt.Errorf("a source and a target match are required")
	}

	t.SourceRow = adoptSheet(t.SourceRow, t.Source.SheetComparator())
	t.SourceCol = adoptSheet(t.SourceCol, t.Source.SheetComparator())
	t.TargetRow = adoptSheet(t.TargetRow, t.Target.SheetComparator())
	t.TargetCol = adoptSheet(t.TargetCol, t.Target.SheetComparator())

	srcArity, err := sideArity(t.Source, t.SourceRow, t.SourceCol, "source")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Source.MatchName(), err)
	}
	dstArity, err := sideArity(t.Target, t.TargetRow, t.TargetCol, "target")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Source.MatchName(), err)
	}

	switch {
	case srcArity == arityCell && dstArity == arityCell:
		t.shape = shapeCell
	case srcArity == arityTable && dstArity == arityTable:
		t.shape = shapeTable
	case srcArity == arityVector && dstArity == arityVector:
		t.shape = shapeVector
	default:
		return nil, fmt.Errorf("%s: cannot copy a table to a single cell or vice-versa", t.Source.MatchName())
	}

	return &t, nil
}

// adoptSheet copies the parent's sheet comparator into a locator that has
// none, onto a fresh value so match templates are never shared.
func adoptSheet(locator *CellMatch, sheet *Comparator) *CellMatch {
	if locator == nil {
		return nil
	}
	c := locator.clone()
	if c.Sheet == nil {
		c.Sheet = sheet
	}
	return c
}

type sideShape int

const (
	arityCell sideShape = iota
	arityVector
	arityTable
)

// sideArity derives what one side of the transfer resolves to: a range
// with both locators triangulates to a cell, with one locator it denotes a
// vector, with none the whole table.
func sideArity(m Match, rowLoc, colLoc *CellMatch, side string) (sideShape, error) {
	switch m.(type) {
	case *CellMatch:
		if rowLoc != nil || colLoc != nil {
			return arityCell, fmt.Errorf("%s row/column locators require a range %s", side, side)
		}
		return arityCell, nil
	case *RangeMatch:
		switch {
		case rowLoc != nil && colLoc != nil:
			return arityCell, nil
		case rowLoc != nil || colLoc != nil:
			return arityVector, nil
		default:
			return arityTable, nil
		}
	default:
		return arityCell, fmt.Errorf("unsupported match type %T", m)
	}
}

// Extract resolves the source in the source workbook and updates the
// target workbook. It returns the original source match result, or a nil
// Range on any resolution failure along the way. All resolution happens
// before any mutation, so a failed extract leaves the target untouched.
func (t *Target) Extract(sourceWb, targetWb *document.Workbook) (*Range, document.Value) {
	miss := func() (*Range, document.Value) { return nil, document.Null }

	source, sourceValue := t.Source.Match(sourceWb)
	if source == nil || source.IsEmpty() {
		return miss()
	}

	target, _ := t.Target.Match(targetWb)
	if target == nil || target.IsEmpty() {
		return miss()
	}

	// Locate the cells that pin down rows and columns
	var sourceRowCell, sourceColCell, targetRowCell, targetColCell *document.Cell

	if t.SourceRow != nil {
		if sourceRowCell = locateInRange(sourceWb, source, t.SourceRow); sourceRowCell == nil {
			return miss()
		}
	}
	if t.SourceCol != nil {
		if sourceColCell = locateInRange(sourceWb, source, t.SourceCol); sourceColCell == nil {
			return miss()
		}
	}
	if t.TargetRow != nil {
		if targetRowCell = locateInRange(targetWb, target, t.TargetRow); targetRowCell == nil {
			return miss()
		}
	}
	if t.TargetCol != nil {
		if targetColCell = locateInRange(targetWb, target, t.TargetCol); targetColCell == nil {
			return miss()
		}
	}

	// Triangulate range sides with two locators into a single cell
	workingSource := source
	if sourceRowCell != nil && sourceColCell != nil {
		workingSource = NewRange([][]*document.Cell{{triangulate(sourceRowCell, sourceColCell)}})
	}
	workingTarget := target
	if targetRowCell != nil && targetColCell != nil {
		workingTarget = NewRange([][]*document.Cell{{triangulate(targetRowCell, targetColCell)}})
	}

	var err error
	switch t.shape {
	case shapeCell:
		err = copyValue(workingSource.FirstCell(), workingTarget.FirstCell())

	case shapeTable:
		err = t.updateTable(workingSource, workingTarget)

	case shapeVector:
		err = t.updateVector(
			workingSource, workingTarget,
			vectorIndex(workingSource, sourceRowCell, sourceColCell),
			vectorIndex(workingTarget, targetRowCell, targetColCell),
		)
	}
	if err != nil {
		return miss()
	}

	return source, sourceValue
}

// vector pins down a single row or column within a range.
type vector struct {
	inRow bool // true = a row of the table, false = a column
	index int  // 0-based index within the range
}

func vectorIndex(rng *Range, rowCell, colCell *document.Cell) vector {
	if rowCell != nil {
		return vector{inRow: true, index: rowCell.Row() - rng.FirstCell().Row()}
	}
	return vector{inRow: false, index: colCell.Column() - rng.FirstCell().Column()}
}

// locateInRange uses a cell match to find a cell within the bounding box of
// a resolved range. A hit whose offset lands outside the box is rejected.
func locateInRange(wb *document.Workbook, rng *Range, m *CellMatch) *document.Cell {
	if rng.IsEmpty() {
		return nil
	}

	first, last := rng.FirstCell(), rng.LastCell()

	bounded := m.clone()
	bounded.MinRow = first.Row()
	bounded.MinCol = first.Column()
	bounded.MaxRow = last.Row()
	bounded.MaxCol = last.Column()

	cell, _ := bounded.matchCell(wb, rng.Sheet())
	if cell == nil || cell.Sheet() != rng.Sheet() {
		return nil
	}
	if cell.Row() < bounded.MinRow || cell.Row() > bounded.MaxRow ||
		cell.Column() < bounded.MinCol || cell.Column() > bounded.MaxCol {
		return nil
	}
	return cell
}

// triangulate returns the cell at the intersection of row's row and col's
// column.
func triangulate(row, col *document.Cell) *document.Cell {
	return row.Sheet().Cell(row.Row(), col.Column())
}

// copyValue copies a single value from source to target.
func copyValue(source, target *document.Cell) error {
	return target.SetValue(source.Value())
}

// updateTable replaces the target table with the source table. With Expand
// the target is first resized to the source's dimensions, shifting any
// following sheet content; otherwise the copy truncates to the target's
// own size.
func (t *Target) updateTable(source, target *Range) error {
	if t.Expand {
		resized, err := target.Resize(source.Rows(), source.Columns())
		if err != nil {
			return err
		}
		target = resized
	}

	rows := min(source.Rows(), target.Rows())
	cols := min(source.Columns(), target.Columns())

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if err := copyValue(source.Cells()[r][c], target.Cells()[r][c]); err != nil {
				return err
			}
		}
	}
	return nil
}

// updateVector replaces a single row or column of the target with a row or
// column of the source. A row may be written into a column and vice-versa.
func (t *Target) updateVector(source, target *Range, sourceVec, targetVec vector) error {
	sourceCells := vectorCells(source, sourceVec)

	if t.Align {
		return alignVector(source, target, sourceCells, sourceVec, targetVec)
	}

	if t.Expand {
		// Resize the target table along the vector's own axis
		var err error
		if targetVec.inRow {
			target, err = target.Resize(target.Rows(), len(sourceCells))
		} else {
			target, err = target.Resize(len(sourceCells), target.Columns())
		}
		if err != nil {
			return err
		}
	}

	targetCells := vectorCells(target, targetVec)

	n := min(len(sourceCells), len(targetCells))
	for i := 0; i < n; i++ {
		if err := copyValue(sourceCells[i], targetCells[i]); err != nil {
			return err
		}
	}
	return nil
}

// alignVector copies source vector cells into the target vector wherever a
// target label (from the target table's first row/column) has a matching
// source label. Unmatched target labels are left untouched.
func alignVector(source, target *Range, sourceCells []*document.Cell, sourceVec, targetVec vector) error {
	sourceLabels := vectorCells(source, vector{inRow: sourceVec.inRow, index: 0})
	targetLabels := vectorCells(target, vector{inRow: targetVec.inRow, index: 0})
	targetCells := vectorCells(target, targetVec)

	lookup := make(map[string]*document.Cell, len(sourceLabels))
	for i, label := range sourceLabels {
		if i >= len(sourceCells) {
			break
		}
		if key, ok := labelKey(label.Value()); ok {
			if _, exists := lookup[key]; !exists {
				lookup[key] = sourceCells[i]
			}
		}
	}

	for i, label := range targetLabels {
		if i >= len(targetCells) {
			break
		}
		key, ok := labelKey(label.Value())
		if !ok {
			continue
		}
		if sourceCell, found := lookup[key]; found {
			if err := copyValue(sourceCell, targetCells[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// labelKey normalizes a label for alignment: text labels are trimmed and
// case-folded; null labels report false.
func labelKey(v document.Value) (string, bool) {
	if v.IsEmpty() {
		return "", false
	}
	if v.Kind() == document.KindText {
		return strings.ToLower(strings.TrimSpace(v.Text())), true
	}
	return v.String(), true
}

// vectorCells extracts a single row or column of a range as a flat list.
func vectorCells(rng *Range, v vector) []*document.Cell {
	if v.inRow {
		return rng.Row(v.index)
	}
	return rng.Column(v.index)
}
