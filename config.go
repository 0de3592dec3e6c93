package xlsxextract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/optilude/xlsx-extract/document"
)

// Keys recognised in configuration blocks. A block is a contiguous block of
// rows in the configuration sheet with a key in the first column, an
// operator in the second and a value in the third, started by one of the
// block-opening keys (directory, file or name).
const (
	keyDirectory = "directory"
	keyFile      = "file"

	keyName  = "name"
	keySheet = "sheet"

	keyCell      = "cell"
	keyValue     = "value"
	keyMinRow    = "min row"
	keyMaxRow    = "max row"
	keyMinCol    = "min column"
	keyMaxCol    = "max column"
	keyRowOffset = "row offset"
	keyColOffset = "column offset"

	keyTable   = "table"
	keyRows    = "rows"
	keyColumns = "columns"

	keyTargetCell  = "target cell"
	keyTargetTable = "target table"
	keyAlign       = "align"
	keyExpand      = "expand"
)

// Prefixes that scope cell match keys to a role within a block, e.g.
// "start cell" or "target row value".
const (
	prefixStart     = "start"
	prefixEnd       = "end"
	prefixSourceRow = "source row"
	prefixSourceCol = "source column"
	prefixTargetRow = "target row"
	prefixTargetCol = "target column"
)

func noPrefix(key string) string { return key }

func withPrefix(p string) func(string) string {
	return func(key string) string { return p + " " + key }
}

// operators maps operator spellings in the configuration sheet to
// comparison operators.
var operators = map[string]Operator{
	"is":           Equal,
	"=":            Equal,
	"==":           Equal,
	"is not":       NotEqual,
	"!=":           NotEqual,
	"matches":      Regex,
	"regex":        Regex,
	"<":            Less,
	"<=":           LessEqual,
	">":            Greater,
	">=":           GreaterEqual,
	"is empty":     Empty,
	"empty":        Empty,
	"is not empty": NotEmpty,
	"not empty":    NotEmpty,
}

// Action records the outcome of one configuration block.
type Action struct {
	Name    string
	Success bool
	Message string

	Comparator *Comparator
	Match      Match
	Target     *Target
}

func (a Action) String() string {
	status := "OK"
	if !a.Success {
		status = "FAILED"
	}
	return fmt.Sprintf("%s: %s (%s)", a.Name, status, a.Message)
}

// block is a parsed configuration block: lowercase keys to comparators.
type block map[string]*Comparator

// Runner executes the configuration found in a sheet of the target
// workbook. The zero value is not usable; use NewRunner.
type Runner struct {
	log          logrus.FieldLogger
	interpolator *Interpolator
	variables    map[string]any
}

// NewRunner creates a runner with an empty variable scope. A nil logger
// uses the standard logrus logger.
func NewRunner(log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		log:          log,
		interpolator: NewInterpolator(),
		variables:    map[string]any{},
	}
}

// Run is shorthand for NewRunner(nil).Run(...).
func Run(targetWb *document.Workbook, sourceDirectory, sourceFile, configSheet string) []Action {
	return NewRunner(nil).Run(targetWb, sourceDirectory, sourceFile, configSheet)
}

// Run loads configuration blocks from the named sheet in the target
// workbook and executes each in turn, returning a history of what
// happened. Failed blocks are recorded and skipped rather than aborting
// the run. Returns nil if the configuration sheet does not exist.
func (r *Runner) Run(targetWb *document.Workbook, sourceDirectory, sourceFile, configSheet string) []Action {
	if targetWb.Sheet(configSheet) == nil {
		return nil
	}

	var history []Action

	var sourceWb *document.Workbook
	closeSource := func() {
		if sourceWb != nil {
			sourceWb.Close()
			sourceWb = nil
		}
	}
	defer closeSource()

	if sourceFile != "" {
		wb, err := document.Open(sourceFile)
		if err != nil {
			history = append(history, Action{Name: keyFile, Message: err.Error()})
			r.log.WithError(err).Error("cannot open source file")
			return history
		}
		sourceWb = wb
	}

	sheetCmp, err := NewComparator(Equal, document.TextValue(configSheet))
	if err != nil {
		return nil
	}
	openingKey, err := NewComparator(Regex,
		document.TextValue(`^\s*(`+keyDirectory+`|`+keyFile+`|`+keyName+`)\s*$`))
	if err != nil {
		return nil
	}

	minRow := 1
	for {
		blockMatch, err := NewRangeMatch(RangeMatch{
			Name:      "block",
			Sheet:     sheetCmp,
			StartCell: &CellMatch{Name: "key", Value: openingKey, MinRow: minRow},
		})
		if err != nil {
			break
		}

		blockRange, _ := blockMatch.Match(targetWb)
		if blockRange == nil {
			break
		}

		// Resume the scan below this block regardless of outcome
		minRow = blockRange.LastCell().Row() + 1

		b, err := r.parseBlock(blockRange)
		if err != nil {
			name := blockRange.FirstCell().Value().String()
			history = append(history, Action{Name: name, Message: err.Error()})
			r.log.WithField("block", name).WithError(err).Error("block failed to parse")
			continue
		}
		if b == nil {
			continue
		}

		if _, ok := b[keyDirectory]; ok {
			dir, action := r.runDirectory(b)
			history = append(history, action)
			if !action.Success {
				continue
			}
			sourceDirectory = dir
		}

		if _, ok := b[keyFile]; ok {
			wb, action := r.runFile(b, sourceDirectory)
			history = append(history, action)
			if !action.Success {
				continue
			}
			closeSource()
			sourceWb = wb
		}

		if _, ok := b[keyName]; ok {
			history = append(history, r.runBlock(b, sourceWb, targetWb))
		}
	}

	return history
}

// runDirectory handles a block that sets the source directory.
func (r *Runner) runDirectory(b block) (string, Action) {
	cmp := b[keyDirectory]

	if cmp.Operator() != Equal || cmp.Operand().Kind() != document.KindText {
		return "", Action{
			Name:       keyDirectory,
			Message:    "directory block must use operator `is` and a string value",
			Comparator: cmp,
		}
	}

	dir := filepath.FromSlash(cmp.Operand().Text())
	r.setVariable(keyDirectory, dir)
	r.log.WithField("directory", dir).Info("source directory set")

	return dir, Action{
		Name:       keyDirectory,
		Success:    true,
		Message:    fmt.Sprintf("obtained %s", dir),
		Comparator: cmp,
	}
}

// runFile handles a block that selects and opens a source file.
func (r *Runner) runFile(b block, sourceDirectory string) (*document.Workbook, Action) {
	cmp := b[keyFile]
	fail := func(msg string) (*document.Workbook, Action) {
		return nil, Action{Name: keyFile, Message: msg, Comparator: cmp}
	}

	path, matched, err := findSourceFile(cmp, sourceDirectory)
	if err != nil {
		return fail(err.Error())
	}

	wb, err := document.Open(path)
	if err != nil {
		return fail(err.Error())
	}

	r.setVariable(keyFile, matched.Native())
	r.log.WithField("file", path).Info("source file opened")

	return wb, Action{
		Name:       keyFile,
		Success:    true,
		Message:    fmt.Sprintf("obtained %s", path),
		Comparator: cmp,
	}
}

// findSourceFile scans a directory for the newest file matching the
// comparator, by name. Equality is case-insensitive; a regex comparator
// records its capture as the match value.
func findSourceFile(cmp *Comparator, dir string) (string, document.Value, error) {
	if cmp.Operand().Kind() != document.KindText ||
		(cmp.Operator() != Equal && cmp.Operator() != Regex) {
		return "", document.Null, fmt.Errorf("file block must use operator `is` or `matches` and a string value")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", document.Null, fmt.Errorf("directory `%s` not found", dir)
	}

	type candidate struct {
		name  string
		mtime int64
	}
	var files []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{entry.Name(), info.ModTime().UnixNano()})
	}

	// Newest first, so a loose pattern picks the latest matching file
	sort.Slice(files, func(i, j int) bool { return files[i].mtime > files[j].mtime })

	for _, f := range files {
		if cmp.Operator() == Equal {
			if strings.EqualFold(cmp.Operand().Text(), f.name) {
				return filepath.Join(dir, f.name), document.TextValue(f.name), nil
			}
		} else {
			if matched, ok := cmp.Match(document.TextValue(f.name)); ok {
				return filepath.Join(dir, f.name), matched, nil
			}
		}
	}

	return "", document.Null, fmt.Errorf("no matching file found for `%s` in `%s`", cmp.Operand().Text(), dir)
}

// runBlock handles a named match or target block.
func (r *Runner) runBlock(b block, sourceWb, targetWb *document.Workbook) Action {
	name := b[keyName].Operand().String()
	fail := func(msg string, m Match, t *Target) Action {
		r.log.WithField("block", name).Error(msg)
		return Action{Name: name, Message: msg, Match: m, Target: t}
	}

	if sourceWb == nil {
		return fail(fmt.Sprintf("no filename set ahead of %s", name), nil, nil)
	}

	sourceMatch, err := extractSourceMatch(b)
	if err != nil {
		return fail(err.Error(), nil, nil)
	}
	if sourceMatch == nil {
		return fail(fmt.Sprintf("could not extract source match from block %s", name), nil, nil)
	}

	target, err := extractTarget(b, sourceMatch)
	if err != nil {
		return fail(err.Error(), sourceMatch, nil)
	}

	var (
		matchRange *Range
		matchValue document.Value
	)
	if target == nil {
		// Source match only, used to record variables
		matchRange, matchValue = sourceMatch.Match(sourceWb)
	} else {
		matchRange, matchValue = target.Extract(sourceWb, targetWb)
	}

	if !matchValue.IsNull() {
		r.setVariable(name, matchValue.Native())
	}

	if matchRange == nil {
		return fail(fmt.Sprintf("%s failed to match", name), sourceMatch, target)
	}

	r.log.WithField("block", name).Info("matched")
	return Action{Name: name, Success: true, Message: "matched", Match: sourceMatch, Target: target}
}

// setVariable records a variable under both its given spelling and its
// lowercase form, so interpolation is effectively case-insensitive.
func (r *Runner) setVariable(name string, value any) {
	r.variables[name] = value
	r.variables[strings.ToLower(name)] = value
}

// parseBlock turns a three-column range into a block of lowercase keys to
// comparators. Rows without a textual key and operator are skipped; an
// unrecognised operator fails the whole block. Values are interpolated
// against the variables recorded so far.
func (r *Runner) parseBlock(rng *Range) (block, error) {
	if rng.IsEmpty() || !rng.IsRange() || rng.Columns() < 3 {
		return nil, nil
	}

	b := block{}
	for _, row := range rng.Values() {
		key, op, value := row[0], row[1], row[2]
		if key.Kind() != document.KindText || key.Text() == "" ||
			op.Kind() != document.KindText || op.Text() == "" {
			continue
		}

		value = r.interpolator.Interpolate(value, r.variables)

		cmp, err := parseComparator(op.Text(), value)
		if err != nil {
			return nil, err
		}
		b[strings.ToLower(strings.TrimSpace(key.Text()))] = cmp
	}
	return b, nil
}

// parseComparator builds a comparator from an operator spelling and a value.
func parseComparator(operator string, value document.Value) (*Comparator, error) {
	op, ok := operators[strings.ToLower(strings.TrimSpace(operator))]
	if !ok {
		return nil, fmt.Errorf("operator `%s` not recognised", operator)
	}
	return NewComparator(op, value)
}

// containsCellMatch reports whether a block holds cell match keys under the
// given prefix.
func containsCellMatch(b block, prefix func(string) string) bool {
	_, hasCell := b[prefix(keyCell)]
	_, hasValue := b[prefix(keyValue)]
	return hasCell || hasValue
}

// buildCellMatch assembles a cell match from block keys under a prefix. The
// sheet argument is the enclosing match's sheet filter, used when the block
// has no sheet of its own under the prefix.
func buildCellMatch(b block, name string, sheet *Comparator, prefix func(string) string) (*CellMatch, error) {
	m := CellMatch{Name: name, Sheet: sheet}

	if cmp, ok := b[prefix(keySheet)]; ok {
		m.Sheet = cmp
	}
	if cmp, ok := b[prefix(keyCell)]; ok {
		if cmp.Operand().Kind() != document.KindText {
			return nil, fmt.Errorf("cell reference must be a string")
		}
		m.Reference = cmp.Operand().Text()
	}
	if cmp, ok := b[prefix(keyValue)]; ok {
		m.Value = cmp
	}

	for _, field := range []struct {
		key    string
		label  string
		target *int
		col    bool
	}{
		{prefix(keyRowOffset), "row offset", &m.RowOffset, false},
		{prefix(keyColOffset), "column offset", &m.ColOffset, false},
		{prefix(keyMinRow), "min row", &m.MinRow, false},
		{prefix(keyMaxRow), "max row", &m.MaxRow, false},
		{prefix(keyMinCol), "min column", &m.MinCol, true},
		{prefix(keyMaxCol), "max column", &m.MaxCol, true},
	} {
		cmp, ok := b[field.key]
		if !ok {
			continue
		}
		n, ok := intOperand(cmp.Operand(), field.col)
		if !ok {
			return nil, fmt.Errorf("%s must be a number", field.label)
		}
		*field.target = n
	}

	return NewCellMatch(m)
}

// buildRangeMatch assembles a range match from block keys: a table
// reference, or start/end cell matches, or start plus fixed dimensions.
func buildRangeMatch(b block, name string) (*RangeMatch, error) {
	m := RangeMatch{Name: name}

	if cmp, ok := b[keySheet]; ok {
		m.Sheet = cmp
	}
	if cmp, ok := b[keyTable]; ok {
		if cmp.Operand().Kind() != document.KindText {
			return nil, fmt.Errorf("table reference must be a string")
		}
		m.Reference = cmp.Operand().Text()
	}
	if cmp, ok := b[keyRows]; ok {
		n, ok := intOperand(cmp.Operand(), false)
		if !ok {
			return nil, fmt.Errorf("rows must be a number")
		}
		m.Rows = n
	}
	if cmp, ok := b[keyColumns]; ok {
		n, ok := intOperand(cmp.Operand(), false)
		if !ok {
			return nil, fmt.Errorf("columns must be a number")
		}
		m.Cols = n
	}

	if containsCellMatch(b, withPrefix(prefixStart)) {
		start, err := buildCellMatch(b, name+":start", m.Sheet, withPrefix(prefixStart))
		if err != nil {
			return nil, err
		}
		m.StartCell = start
	}
	if containsCellMatch(b, withPrefix(prefixEnd)) {
		end, err := buildCellMatch(b, name+":end", m.Sheet, withPrefix(prefixEnd))
		if err != nil {
			return nil, err
		}
		m.EndCell = end
	}

	return NewRangeMatch(m)
}

// extractSourceMatch creates a cell or range match from a named block, or
// nil if the block defines neither.
func extractSourceMatch(b block) (Match, error) {
	isCell := containsCellMatch(b, noPrefix)

	_, hasTable := b[keyTable]
	isRange := hasTable || containsCellMatch(b, withPrefix(prefixStart))

	if isCell && isRange {
		return nil, fmt.Errorf("block refers to both a cell and a range")
	}

	name := b[keyName].Operand().String()
	switch {
	case isCell:
		return buildCellMatch(b, name, nil, noPrefix)
	case isRange:
		return buildRangeMatch(b, name)
	default:
		return nil, nil
	}
}

// extractTarget creates a transfer from a named block, or nil if the block
// is a plain match with no target keys.
func extractTarget(b block, sourceMatch Match) (*Target, error) {
	cellCmp, hasCell := b[keyTargetCell]
	tableCmp, hasTable := b[keyTargetTable]

	if !hasCell && !hasTable {
		return nil, nil
	}
	if hasCell && hasTable {
		return nil, fmt.Errorf("only one of `target cell` and `target table` should be given")
	}

	name := sourceMatch.MatchName()

	t := Target{Source: sourceMatch}

	if hasCell {
		if cellCmp.Operand().Kind() != document.KindText {
			return nil, fmt.Errorf("target cell reference must be a string")
		}
		target, err := NewCellMatch(CellMatch{Name: name + ":target", Reference: cellCmp.Operand().Text()})
		if err != nil {
			return nil, err
		}
		t.Target = target
	} else {
		if tableCmp.Operand().Kind() != document.KindText {
			return nil, fmt.Errorf("target table reference must be a string")
		}
		target, err := NewRangeMatch(RangeMatch{Name: name + ":target", Reference: tableCmp.Operand().Text()})
		if err != nil {
			return nil, err
		}
		t.Target = target
	}

	if cmp, ok := b[keyAlign]; ok {
		v, ok := boolOperand(cmp.Operand())
		if !ok {
			return nil, fmt.Errorf("align must be a boolean (true/false)")
		}
		t.Align = v
	}
	if cmp, ok := b[keyExpand]; ok {
		v, ok := boolOperand(cmp.Operand())
		if !ok {
			return nil, fmt.Errorf("expand must be a boolean (true/false)")
		}
		t.Expand = v
	}

	for _, loc := range []struct {
		prefix string
		label  string
		sheet  *Comparator
		target **CellMatch
	}{
		{prefixSourceRow, "source_row", sourceMatch.SheetComparator(), &t.SourceRow},
		{prefixSourceCol, "source_col", sourceMatch.SheetComparator(), &t.SourceCol},
		{prefixTargetRow, "target_row", nil, &t.TargetRow},
		{prefixTargetCol, "target_col", nil, &t.TargetCol},
	} {
		if !containsCellMatch(b, withPrefix(loc.prefix)) {
			continue
		}
		cm, err := buildCellMatch(b, name+":"+loc.label, loc.sheet, withPrefix(loc.prefix))
		if err != nil {
			return nil, err
		}
		*loc.target = cm
	}

	return NewTarget(t)
}

// intOperand extracts an integer from a value. With col set, column letters
// are accepted too.
func intOperand(v document.Value, col bool) (int, bool) {
	if col && v.Kind() == document.KindText {
		if n, err := document.NameToCol(v.Text()); err == nil {
			return n, true
		}
		return 0, false
	}
	if v.Kind() != document.KindNumber {
		return 0, false
	}
	f := v.Number()
	n := int(f)
	if float64(n) != f {
		return 0, false
	}
	return n, true
}

func boolOperand(v document.Value) (bool, bool) {
	if v.Kind() != document.KindBool {
		return false, false
	}
	return v.Bool(), true
}
