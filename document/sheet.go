package document

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is a single worksheet with a typed in-memory grid of its cells.
// Rows and columns are 1-based.
type Sheet struct {
	wb     *Workbook
	title  string
	rows   map[int]map[int]Value
	tables []TableRef
	maxRow int
	maxCol int
}

func newSheet(wb *Workbook, title string) *Sheet {
	return &Sheet{wb: wb, title: title, rows: make(map[int]map[int]Value)}
}

// load reads the sheet's cells from the underlying file into memory.
func (s *Sheet) load() error {
	rows, err := s.wb.file.GetRows(s.title, excelize.Options{RawCellValue: true})
	if err != nil {
		return err
	}
	for rowIdx, row := range rows {
		r := rowIdx + 1
		for colIdx, raw := range row {
			c := colIdx + 1
			axis := ColToName(c) + fmt.Sprintf("%d", r)
			v, err := s.wb.readValue(s.title, axis, raw)
			if err != nil {
				return fmt.Errorf("read cell %s: %w", axis, err)
			}
			if v.IsNull() {
				continue
			}
			s.setGrid(r, c, v)
		}
	}
	return nil
}

// Title returns the sheet's title.
func (s *Sheet) Title() string { return s.title }

// Workbook returns the parent workbook.
func (s *Sheet) Workbook() *Workbook { return s.wb }

// Cell returns a handle on the cell at the given 1-based coordinates.
func (s *Sheet) Cell(row, col int) *Cell {
	return &Cell{sheet: s, row: row, col: col}
}

// Rect materializes a rectangular block of cell handles, rows first.
func (s *Sheet) Rect(minRow, minCol, maxRow, maxCol int) [][]*Cell {
	if minRow < 1 || minCol < 1 || maxRow < minRow || maxCol < minCol {
		return nil
	}
	block := make([][]*Cell, 0, maxRow-minRow+1)
	for r := minRow; r <= maxRow; r++ {
		row := make([]*Cell, 0, maxCol-minCol+1)
		for c := minCol; c <= maxCol; c++ {
			row = append(row, s.Cell(r, c))
		}
		block = append(block, row)
	}
	return block
}

// Dimensions returns the used range of the sheet as (maxRow, maxCol).
// An empty sheet reports (0, 0).
func (s *Sheet) Dimensions() (int, int) {
	return s.maxRow, s.maxCol
}

// valueAt returns the value stored at the given coordinates, Null if unset.
func (s *Sheet) valueAt(row, col int) Value {
	if r, ok := s.rows[row]; ok {
		return r[col]
	}
	return Null
}

// setGrid stores a value into the in-memory grid, tracking the used range.
func (s *Sheet) setGrid(row, col int, v Value) {
	if v.IsNull() {
		if r, ok := s.rows[row]; ok {
			delete(r, col)
			if len(r) == 0 {
				delete(s.rows, row)
			}
		}
		return
	}
	r, ok := s.rows[row]
	if !ok {
		r = make(map[int]Value)
		s.rows[row] = r
	}
	r[col] = v
	if row > s.maxRow {
		s.maxRow = row
	}
	if col > s.maxCol {
		s.maxCol = col
	}
}

// setValue writes a value through to both the grid and the file.
func (s *Sheet) setValue(row, col int, v Value) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell coordinates (%d, %d)", row, col)
	}
	axis := ColToName(col) + fmt.Sprintf("%d", row)
	if err := s.wb.file.SetCellValue(s.title, axis, v.Native()); err != nil {
		return fmt.Errorf("write cell %s!%s: %w", s.title, axis, err)
	}
	s.setGrid(row, col, v)
	return nil
}

// InsertRows inserts n blank rows before the given row, shifting following
// content down.
func (s *Sheet) InsertRows(row, n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid row count %d", n)
	}
	if err := s.wb.file.InsertRows(s.title, row, n); err != nil {
		return fmt.Errorf("insert rows at %d: %w", row, err)
	}
	shifted := make(map[int]map[int]Value, len(s.rows))
	for r, cells := range s.rows {
		if r >= row {
			shifted[r+n] = cells
		} else {
			shifted[r] = cells
		}
	}
	s.rows = shifted
	s.recalcDimensions()
	return nil
}

// DeleteRows removes n rows starting at the given row, shifting following
// content up.
func (s *Sheet) DeleteRows(row, n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid row count %d", n)
	}
	for i := 0; i < n; i++ {
		if err := s.wb.file.RemoveRow(s.title, row); err != nil {
			return fmt.Errorf("remove row %d: %w", row, err)
		}
	}
	shifted := make(map[int]map[int]Value, len(s.rows))
	for r, cells := range s.rows {
		switch {
		case r < row:
			shifted[r] = cells
		case r >= row+n:
			shifted[r-n] = cells
		}
	}
	s.rows = shifted
	s.recalcDimensions()
	return nil
}

// InsertCols inserts n blank columns before the given column, shifting
// following content right.
func (s *Sheet) InsertCols(col, n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid column count %d", n)
	}
	if err := s.wb.file.InsertCols(s.title, ColToName(col), n); err != nil {
		return fmt.Errorf("insert columns at %d: %w", col, err)
	}
	for _, cells := range s.rows {
		shiftCols(cells, func(c int) (int, bool) {
			if c >= col {
				return c + n, true
			}
			return c, true
		})
	}
	s.recalcDimensions()
	return nil
}

// DeleteCols removes n columns starting at the given column, shifting
// following content left.
func (s *Sheet) DeleteCols(col, n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid column count %d", n)
	}
	for i := 0; i < n; i++ {
		if err := s.wb.file.RemoveCol(s.title, ColToName(col)); err != nil {
			return fmt.Errorf("remove column %d: %w", col, err)
		}
	}
	for _, cells := range s.rows {
		shiftCols(cells, func(c int) (int, bool) {
			switch {
			case c < col:
				return c, true
			case c >= col+n:
				return c - n, true
			default:
				return 0, false
			}
		})
	}
	s.recalcDimensions()
	return nil
}

// shiftCols remaps the column keys of a row in place.
func shiftCols(cells map[int]Value, remap func(int) (int, bool)) {
	moved := make(map[int]Value, len(cells))
	for c, v := range cells {
		if nc, keep := remap(c); keep {
			moved[nc] = v
		}
	}
	for c := range cells {
		delete(cells, c)
	}
	for c, v := range moved {
		cells[c] = v
	}
}

func (s *Sheet) recalcDimensions() {
	s.maxRow, s.maxCol = 0, 0
	for r, cells := range s.rows {
		if r > s.maxRow {
			s.maxRow = r
		}
		for c := range cells {
			if c > s.maxCol {
				s.maxCol = c
			}
		}
	}
}
