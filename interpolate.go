package xlsxextract

import (
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/optilude/xlsx-extract/document"
)

const (
	exprBegin = "${"
	exprEnd   = "}"
)

// Interpolator substitutes ${...} expressions in configuration values with
// values recorded by earlier matches. Expressions that fail to compile or
// evaluate, or that evaluate to nil, are left in place verbatim so the
// unresolved placeholder is visible in the output.
type Interpolator struct {
	cache sync.Map // expression string → compiled *vm.Program
}

// NewInterpolator creates an interpolator with an empty compilation cache.
func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// Interpolate substitutes ${...} expressions in a text value. A value that
// is a single expression keeps the evaluated result's type; mixed text and
// expressions render to a string. Non-text values pass through unchanged.
func (in *Interpolator) Interpolate(v document.Value, variables map[string]any) document.Value {
	if v.Kind() != document.KindText {
		return v
	}

	raw := v.Text()
	segments := splitExpressions(raw)
	if len(segments) == 0 {
		return v
	}

	if len(segments) == 1 && segments[0].expression {
		result, err := in.evaluate(segments[0].text, variables)
		if err != nil || result == nil {
			return v
		}
		return document.FromGo(result)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if !seg.expression {
			sb.WriteString(seg.text)
			continue
		}
		result, err := in.evaluate(seg.text, variables)
		if err != nil || result == nil {
			// Leave the placeholder intact
			sb.WriteString(exprBegin)
			sb.WriteString(seg.text)
			sb.WriteString(exprEnd)
			continue
		}
		sb.WriteString(document.FromGo(result).String())
	}
	return document.TextValue(sb.String())
}

// InterpolateText is Interpolate for plain strings.
func (in *Interpolator) InterpolateText(s string, variables map[string]any) string {
	return in.Interpolate(document.TextValue(s), variables).String()
}

func (in *Interpolator) evaluate(expression string, variables map[string]any) (any, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil
	}
	program, err := in.compile(expression, variables)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, variables)
}

func (in *Interpolator) compile(expression string, env map[string]any) (*vm.Program, error) {
	if cached, ok := in.cache.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	in.cache.Store(expression, program)
	return program, nil
}

// segment is a run of literal text or the inside of one ${...} expression.
type segment struct {
	expression bool
	text       string
}

// splitExpressions splits a string into literal and expression segments,
// honouring nested braces inside expressions.
func splitExpressions(value string) []segment {
	var segments []segment
	remaining := value

	for {
		start := strings.Index(remaining, exprBegin)
		if start < 0 {
			break
		}
		after := start + len(exprBegin)
		end := matchingEnd(remaining[after:])
		if end < 0 {
			break
		}
		end += after

		if start > 0 {
			segments = append(segments, segment{text: remaining[:start]})
		}
		segments = append(segments, segment{expression: true, text: remaining[after:end]})
		remaining = remaining[end+len(exprEnd):]
	}

	if remaining != "" {
		segments = append(segments, segment{text: remaining})
	}
	return segments
}

func matchingEnd(s string) int {
	depth := 0
	for i := 0; i <= len(s)-len(exprEnd); i++ {
		if strings.HasPrefix(s[i:], exprBegin) {
			depth++
		} else if strings.HasPrefix(s[i:], exprEnd) {
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}
