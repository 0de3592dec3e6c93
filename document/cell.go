package document

// Cell is a handle on a single cell of a sheet. It stores coordinates, not
// content; structural operations on the sheet (inserting or removing rows
// and columns) invalidate previously obtained handles.
type Cell struct {
	sheet *Sheet
	row   int
	col   int
}

// Sheet returns the parent sheet.
func (c *Cell) Sheet() *Sheet { return c.sheet }

// Row returns the cell's 1-based row index.
func (c *Cell) Row() int { return c.row }

// Column returns the cell's 1-based column index.
func (c *Cell) Column() int { return c.col }

// Ref returns the cell's sheet-qualified reference.
func (c *Cell) Ref() CellRef {
	return CellRef{Sheet: c.sheet.title, Row: c.row, Col: c.col}
}

// Coordinate returns the cell's coordinate like "B3", without sheet name.
func (c *Cell) Coordinate() string {
	return c.Ref().CellName()
}

// Value returns the cell's current value, Null for unset cells.
func (c *Cell) Value() Value {
	return c.sheet.valueAt(c.row, c.col)
}

// SetValue writes a value to the cell.
func (c *Cell) SetValue(v Value) error {
	return c.sheet.setValue(c.row, c.col, v)
}
