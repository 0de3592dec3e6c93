package document

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook wraps an excelize file with a typed in-memory view of its
// sheets, defined names and named tables. Cell values are read into memory
// once at load time; mutations are applied to both the in-memory grid and
// the underlying file.
type Workbook struct {
	file   *excelize.File
	sheets []*Sheet
	names  []DefinedName
	path   string
}

// DefinedName is a named reference, either workbook-global (empty Scope) or
// local to the sheet named by Scope.
type DefinedName struct {
	Name     string
	RefersTo string
	Scope    string
}

// TableRef is a named table on a sheet. Range is an unqualified area
// reference like "B10:E13".
type TableRef struct {
	Name  string
	Range string
}

// New creates an empty in-memory workbook with a single default sheet.
func New() *Workbook {
	wb := &Workbook{file: excelize.NewFile()}
	for _, name := range wb.file.GetSheetList() {
		wb.sheets = append(wb.sheets, newSheet(wb, name))
	}
	return wb
}

// Open loads a workbook from an xlsx file.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	wb, err := FromFile(f)
	if err != nil {
		return nil, err
	}
	wb.path = path
	return wb, nil
}

// OpenReader loads a workbook from a reader.
func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return FromFile(f)
}

// FromFile builds a Workbook around an already-open excelize file, reading
// all cell data into memory.
func FromFile(f *excelize.File) (*Workbook, error) {
	wb := &Workbook{file: f}
	for _, name := range f.GetSheetList() {
		s := newSheet(wb, name)
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.sheets = append(wb.sheets, s)
	}
	for _, dn := range f.GetDefinedName() {
		wb.names = append(wb.names, DefinedName{Name: dn.Name, RefersTo: dn.RefersTo, Scope: dn.Scope})
	}
	for _, s := range wb.sheets {
		tables, err := f.GetTables(s.title)
		if err != nil {
			continue
		}
		for _, tbl := range tables {
			s.tables = append(s.tables, TableRef{Name: tbl.Name, Range: tbl.Range})
		}
	}
	return wb, nil
}

// File returns the underlying excelize file for advanced operations.
func (wb *Workbook) File() *excelize.File { return wb.file }

// Path returns the path the workbook was opened from, if any.
func (wb *Workbook) Path() string { return wb.path }

// Sheets returns the workbook's sheets in workbook order.
func (wb *Workbook) Sheets() []*Sheet { return wb.sheets }

// Sheet returns the sheet with the given title, or nil if there is none.
func (wb *Workbook) Sheet(title string) *Sheet {
	for _, s := range wb.sheets {
		if s.title == title {
			return s
		}
	}
	return nil
}

// AddSheet creates a new empty sheet with the given title.
func (wb *Workbook) AddSheet(title string) (*Sheet, error) {
	if wb.Sheet(title) != nil {
		return nil, fmt.Errorf("sheet %q already exists", title)
	}
	if _, err := wb.file.NewSheet(title); err != nil {
		return nil, fmt.Errorf("create sheet %q: %w", title, err)
	}
	s := newSheet(wb, title)
	wb.sheets = append(wb.sheets, s)
	return s, nil
}

// DefinedName looks up a defined name, local to the given sheet first (if a
// sheet is given), then workbook-global. Returns the stored reference.
func (wb *Workbook) DefinedName(name string, sheet *Sheet) (DefinedName, bool) {
	if sheet != nil {
		for _, dn := range wb.names {
			if dn.Name == name && dn.Scope == sheet.title {
				return dn, true
			}
		}
	}
	for _, dn := range wb.names {
		if dn.Name == name && dn.Scope == "" {
			return dn, true
		}
	}
	return DefinedName{}, false
}

// SetDefinedName creates or replaces a defined name, preserving scope.
func (wb *Workbook) SetDefinedName(name, scope, refersTo string) error {
	for i, dn := range wb.names {
		if dn.Name == name && dn.Scope == scope {
			// excelize has no update; delete and re-add
			if err := wb.file.DeleteDefinedName(&excelize.DefinedName{Name: name, Scope: scope}); err != nil {
				return fmt.Errorf("replace defined name %q: %w", name, err)
			}
			wb.names = append(wb.names[:i], wb.names[i+1:]...)
			break
		}
	}
	if err := wb.file.SetDefinedName(&excelize.DefinedName{Name: name, RefersTo: refersTo, Scope: scope}); err != nil {
		return fmt.Errorf("set defined name %q: %w", name, err)
	}
	wb.names = append(wb.names, DefinedName{Name: name, RefersTo: refersTo, Scope: scope})
	return nil
}

// Table looks up a named table on the given sheet.
func (wb *Workbook) Table(sheet *Sheet, name string) (TableRef, bool) {
	if sheet == nil {
		return TableRef{}, false
	}
	for _, tbl := range sheet.tables {
		if tbl.Name == name {
			return tbl, true
		}
	}
	return TableRef{}, false
}

// SetTableRange rewrites the stored range of a named table on the given
// sheet. The range must be an unqualified area reference like "B10:E13".
func (wb *Workbook) SetTableRange(sheet *Sheet, name, rangeRef string) error {
	if sheet == nil {
		return fmt.Errorf("no sheet given for table %q", name)
	}
	for i, tbl := range sheet.tables {
		if tbl.Name == name {
			if err := wb.file.DeleteTable(name); err != nil {
				return fmt.Errorf("replace table %q: %w", name, err)
			}
			if err := wb.file.AddTable(sheet.title, &excelize.Table{Name: name, Range: rangeRef}); err != nil {
				return fmt.Errorf("re-add table %q: %w", name, err)
			}
			sheet.tables[i].Range = rangeRef
			return nil
		}
	}
	return fmt.Errorf("table %q not found on sheet %q", name, sheet.title)
}

// Save writes the workbook back to the path it was opened from.
func (wb *Workbook) Save() error {
	if wb.path == "" {
		return fmt.Errorf("workbook has no backing path")
	}
	return wb.file.Save()
}

// SaveAs writes the workbook to the given path.
func (wb *Workbook) SaveAs(path string) error {
	return wb.file.SaveAs(path)
}

// Write writes the workbook to the given writer.
func (wb *Workbook) Write(w io.Writer) error {
	return wb.file.Write(w)
}

// Close closes the underlying excelize file.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}

// readValue reads and types a single cell from the underlying file.
func (wb *Workbook) readValue(sheet, axis, raw string) (Value, error) {
	if raw == "" {
		return Null, nil
	}

	cellType, err := wb.file.GetCellType(sheet, axis)
	if err != nil {
		return Null, err
	}

	switch cellType {
	case excelize.CellTypeBool:
		return BoolValue(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeInlineString, excelize.CellTypeSharedString:
		return TextValue(raw), nil
	case excelize.CellTypeDate:
		// ISO 8601 cell (t="d")
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return classifyTemporal(t, hasTimePart(timeToSerial(t))), nil
			}
		}
		return TextValue(raw), nil
	case excelize.CellTypeError:
		return TextValue(raw), nil
	}

	// Number, formula result or untyped: try numeric, honouring date formats.
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return TextValue(raw), nil
	}

	isDate, isTime := wb.cellHasTemporalFormat(sheet, axis)
	if isDate || isTime {
		t, err := excelize.ExcelDateToTime(num, false)
		if err != nil {
			return NumberValue(num), nil
		}
		if isTime && !isDate {
			return TimeValue(t), nil
		}
		return classifyTemporal(t, hasTimePart(num)), nil
	}

	return NumberValue(num), nil
}

// classifyTemporal types a parsed instant as a Date or DateTime.
func classifyTemporal(t time.Time, withTime bool) Value {
	if withTime {
		return DateTimeValue(t)
	}
	return DateValue(t)
}

// timeToSerial converts an instant to an Excel serial number, used only to
// detect whether a time-of-day component is present.
func timeToSerial(t time.Time) float64 {
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return float64(secs) / 86400.0
}

// Builtin number format IDs that denote dates and times.
var (
	dateNumFmts = map[int]bool{
		14: true, 15: true, 16: true, 17: true, 22: true,
		27: true, 28: true, 29: true, 30: true, 31: true, 32: true,
		33: true, 34: true, 35: true, 36: true,
		50: true, 51: true, 52: true, 53: true, 54: true, 55: true,
		56: true, 57: true, 58: true,
	}
	timeNumFmts = map[int]bool{
		18: true, 19: true, 20: true, 21: true, 45: true, 46: true, 47: true,
	}
)

// cellHasTemporalFormat inspects a cell's number format to decide whether
// its numeric value encodes a date and/or a time of day.
func (wb *Workbook) cellHasTemporalFormat(sheet, axis string) (isDate, isTime bool) {
	styleID, err := wb.file.GetCellStyle(sheet, axis)
	if err != nil {
		return false, false
	}
	style, err := wb.file.GetStyle(styleID)
	if err != nil || style == nil {
		return false, false
	}

	if dateNumFmts[style.NumFmt] {
		return true, timeNumFmts[style.NumFmt] || style.NumFmt == 22
	}
	if timeNumFmts[style.NumFmt] {
		return false, true
	}

	if style.CustomNumFmt != nil {
		fmtStr := strings.ToLower(*style.CustomNumFmt)
		// Strip quoted literals and color specifiers before probing tokens
		fmtStr = stripQuoted(fmtStr)
		isDate = strings.ContainsAny(fmtStr, "yd") || strings.Contains(fmtStr, "mmm")
		isTime = strings.Contains(fmtStr, "h") || strings.Contains(fmtStr, "ss")
		return isDate, isTime
	}

	return false, false
}

// stripQuoted removes "quoted" sections and [bracketed] specifiers from a
// number format string.
func stripQuoted(s string) string {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range s {
		switch {
		case inQuote:
			if r == '"' {
				inQuote = false
			}
		case inBracket:
			if r == ']' {
				inBracket = false
			}
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
