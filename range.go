package xlsxextract

import (
	"fmt"

	"github.com/optilude/xlsx-extract/document"
)

// AliasKind identifies the optional name backing a Range.
type AliasKind int

const (
	AliasNone AliasKind = iota
	AliasDefinedName
	AliasNamedTable
)

// Range is a resolved rectangular block of cells, optionally backed by a
// defined name or a named table. Ranges are value objects: they are created
// by match resolution and never mutated. Resize returns a new Range; the
// old handle's cell coordinates may no longer be valid afterwards and must
// not be reused.
type Range struct {
	cells     [][]*document.Cell
	aliasKind AliasKind
	aliasName string
}

// NewRange creates a Range over a block of cells with no alias.
func NewRange(cells [][]*document.Cell) *Range {
	return &Range{cells: cells}
}

// NewAliasedRange creates a Range backed by a defined name or named table.
func NewAliasedRange(cells [][]*document.Cell, kind AliasKind, name string) *Range {
	return &Range{cells: cells, aliasKind: kind, aliasName: name}
}

// IsEmpty reports whether the Range has zero rows or zero columns.
func (r *Range) IsEmpty() bool {
	return len(r.cells) == 0 || len(r.cells[0]) == 0
}

// IsCell reports whether the Range is exactly one cell.
func (r *Range) IsCell() bool {
	return !r.IsEmpty() && len(r.cells) == 1 && len(r.cells[0]) == 1
}

// IsRange reports whether the Range spans more than one cell.
func (r *Range) IsRange() bool {
	return !r.IsEmpty() && !r.IsCell()
}

// Cell returns the single cell of a one-cell Range, nil otherwise.
func (r *Range) Cell() *document.Cell {
	if !r.IsCell() {
		return nil
	}
	return r.cells[0][0]
}

// FirstCell returns the top-left cell, nil if empty.
func (r *Range) FirstCell() *document.Cell {
	if r.IsEmpty() {
		return nil
	}
	return r.cells[0][0]
}

// LastCell returns the bottom-right cell, nil if empty.
func (r *Range) LastCell() *document.Cell {
	if r.IsEmpty() {
		return nil
	}
	lastRow := r.cells[len(r.cells)-1]
	return lastRow[len(lastRow)-1]
}

// Rows returns the number of rows.
func (r *Range) Rows() int {
	if r.IsEmpty() {
		return 0
	}
	return len(r.cells)
}

// Columns returns the number of columns.
func (r *Range) Columns() int {
	if r.IsEmpty() {
		return 0
	}
	return len(r.cells[0])
}

// Sheet returns the sheet the Range lives on, nil if empty.
func (r *Range) Sheet() *document.Sheet {
	if r.IsEmpty() {
		return nil
	}
	return r.cells[0][0].Sheet()
}

// Workbook returns the workbook the Range lives in, nil if empty.
func (r *Range) Workbook() *document.Workbook {
	if s := r.Sheet(); s != nil {
		return s.Workbook()
	}
	return nil
}

// Alias returns the Range's alias kind and name.
func (r *Range) Alias() (AliasKind, string) {
	return r.aliasKind, r.aliasName
}

// Cells returns the underlying block of cell handles, rows first.
func (r *Range) Cells() [][]*document.Cell {
	return r.cells
}

// Row returns the cells of the given 0-based row within the Range.
func (r *Range) Row(idx int) []*document.Cell {
	return r.cells[idx]
}

// Column returns the cells of the given 0-based column within the Range.
func (r *Range) Column(idx int) []*document.Cell {
	col := make([]*document.Cell, 0, len(r.cells))
	for _, row := range r.cells {
		col = append(col, row[idx])
	}
	return col
}

// Values materializes the block as rows of plain values. The result is a
// snapshot, not a live view.
func (r *Range) Values() [][]document.Value {
	if r.IsEmpty() {
		return nil
	}
	out := make([][]document.Value, 0, len(r.cells))
	for _, row := range r.cells {
		vals := make([]document.Value, 0, len(row))
		for _, c := range row {
			vals = append(vals, c.Value())
		}
		out = append(out, vals)
	}
	return out
}

// Reference renders the Range as a reference string: the alias name when
// useAlias is set and an alias is present, otherwise an A1-style coordinate
// string, optionally sheet-qualified and/or with absolute ($) markers.
// Reports false for an empty Range.
func (r *Range) Reference(absolute, useSheet, useAlias bool) (string, bool) {
	if r.IsEmpty() {
		return "", false
	}

	if useAlias && r.aliasKind != AliasNone {
		return r.aliasName, true
	}

	first, last := r.FirstCell(), r.LastCell()

	coord := func(c *document.Cell) string {
		if absolute {
			return c.Ref().AbsoluteName()
		}
		return c.Coordinate()
	}

	prefix := ""
	if useSheet {
		prefix = document.QuoteSheetName(r.Sheet().Title()) + "!"
	}

	if r.IsCell() {
		return prefix + coord(first), true
	}
	return prefix + coord(first) + ":" + coord(last), true
}

// Resize grows or shrinks the Range to exactly rows x cols, inserting or
// removing whole sheet rows/columns at the bottom/right edge so that any
// following content shifts accordingly. The stored reference of an aliased
// Range is rewritten to the new block. Returns a new Range; the receiver
// and any other Range on the same sheet must be treated as invalidated.
func (r *Range) Resize(rows, cols int) (*Range, error) {
	if r.IsEmpty() {
		return nil, fmt.Errorf("cannot resize an empty range")
	}
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("invalid target size %dx%d", rows, cols)
	}

	sheet := r.Sheet()
	first, last := r.FirstCell(), r.LastCell()
	firstRow, firstCol := first.Row(), first.Column()

	rowsDelta := rows - r.Rows()
	colsDelta := cols - r.Columns()

	if rowsDelta > 0 {
		if err := sheet.InsertRows(last.Row()+1, rowsDelta); err != nil {
			return nil, err
		}
	}
	if rowsDelta < 0 {
		if err := sheet.DeleteRows(firstRow+rows, -rowsDelta); err != nil {
			return nil, err
		}
	}
	if colsDelta > 0 {
		if err := sheet.InsertCols(last.Column()+1, colsDelta); err != nil {
			return nil, err
		}
	}
	if colsDelta < 0 {
		if err := sheet.DeleteCols(firstCol+cols, -colsDelta); err != nil {
			return nil, err
		}
	}

	resized := &Range{
		cells:     sheet.Rect(firstRow, firstCol, firstRow+rows-1, firstCol+cols-1),
		aliasKind: r.aliasKind,
		aliasName: r.aliasName,
	}

	if r.aliasKind != AliasNone && (rowsDelta != 0 || colsDelta != 0) {
		if err := resized.repairAlias(); err != nil {
			return nil, err
		}
	}

	return resized, nil
}

// repairAlias rewrites the stored reference of the Range's defined name or
// named table to point at the current block.
func (r *Range) repairAlias() error {
	wb := r.Workbook()
	sheet := r.Sheet()

	switch r.aliasKind {
	case AliasDefinedName:
		dn, ok := wb.DefinedName(r.aliasName, sheet)
		if !ok {
			return fmt.Errorf("defined name %q not found", r.aliasName)
		}
		ref, _ := r.Reference(true, true, false)
		return wb.SetDefinedName(dn.Name, dn.Scope, ref)

	case AliasNamedTable:
		ref, _ := r.Reference(false, false, false)
		return wb.SetTableRange(sheet, r.aliasName, ref)
	}
	return nil
}
