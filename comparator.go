package xlsxextract

import (
	"fmt"
	"regexp"

	"github.com/optilude/xlsx-extract/document"
)

// Operator is the predicate applied by a Comparator.
type Operator int

const (
	Equal Operator = iota
	NotEqual
	Greater
	GreaterEqual
	Less
	LessEqual
	Empty
	NotEmpty
	Regex
)

// String returns the configuration-language spelling of the operator.
func (op Operator) String() string {
	switch op {
	case Equal:
		return "is"
	case NotEqual:
		return "is not"
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case Empty:
		return "is empty"
	case NotEmpty:
		return "is not empty"
	case Regex:
		return "matches"
	default:
		return "unknown"
	}
}

// Comparator evaluates a single (operator, operand) predicate against a
// candidate cell value. It is immutable once built and has no side effects.
type Comparator struct {
	op      Operator
	operand document.Value
	re      *regexp.Regexp
}

// NewComparator builds a Comparator. It fails if the operator is Regex and
// the operand is not text, or if the pattern does not compile.
func NewComparator(op Operator, operand document.Value) (*Comparator, error) {
	c := &Comparator{op: op, operand: operand}
	if op == Regex {
		if operand.Kind() != document.KindText {
			return nil, fmt.Errorf("regex operand must be text, got %s", operand.Kind())
		}
		re, err := regexp.Compile("(?i)" + operand.Text())
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", operand.Text(), err)
		}
		c.re = re
	}
	return c, nil
}

// Operator returns the comparator's operator.
func (c *Comparator) Operator() Operator { return c.op }

// Operand returns the comparator's operand.
func (c *Comparator) Operand() document.Value { return c.operand }

// Match evaluates the predicate against a candidate value. When the
// predicate holds it returns the matched value: the candidate itself, the
// empty string for Empty, or the first capture group's text for a Regex
// with groups. Comparisons between incompatible variants report no match
// rather than failing, which keeps scanning loops total.
func (c *Comparator) Match(candidate document.Value) (document.Value, bool) {
	switch c.op {
	case Empty:
		if candidate.IsEmpty() {
			return document.TextValue(""), true
		}
		return document.Null, false

	case NotEmpty:
		if !candidate.IsEmpty() {
			return candidate, true
		}
		return document.Null, false

	case Equal:
		if eq, ok := candidate.Equal(c.operand); ok && eq {
			return candidate, true
		}
		return document.Null, false

	case NotEqual:
		if eq, ok := candidate.Equal(c.operand); ok && !eq {
			return candidate, true
		}
		return document.Null, false

	case Greater, GreaterEqual, Less, LessEqual:
		if c.matchOrdering(candidate) {
			return candidate, true
		}
		return document.Null, false

	case Regex:
		if candidate.Kind() != document.KindText {
			return document.Null, false
		}
		m := c.re.FindStringSubmatch(candidate.Text())
		if m == nil {
			return document.Null, false
		}
		if len(m) > 1 {
			return document.TextValue(m[1]), true
		}
		return candidate, true
	}

	return document.Null, false
}

// matchOrdering evaluates the ordering operators. The inclusive variants
// also hold on equality, so types that are only equality-comparable (such
// as booleans) still satisfy >= and <= against an equal operand.
func (c *Comparator) matchOrdering(candidate document.Value) bool {
	if c.op == GreaterEqual || c.op == LessEqual {
		if eq, ok := candidate.Equal(c.operand); ok && eq {
			return true
		}
	}
	cmp, ok := candidate.Compare(c.operand)
	if !ok {
		return false
	}
	switch c.op {
	case Greater:
		return cmp > 0
	case GreaterEqual:
		return cmp >= 0
	case Less:
		return cmp < 0
	case LessEqual:
		return cmp <= 0
	}
	return false
}
