package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant stored in a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindDate
	KindTime
	KindDateTime
)

// String returns a human-readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindText:
		return "Text"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Boolean"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindDateTime:
		return "DateTime"
	default:
		return "Unknown"
	}
}

// Value is a closed variant over the cell value types a workbook can hold.
// The zero Value is Null.
type Value struct {
	kind Kind
	text string
	num  float64
	b    bool
	t    time.Time
}

// Null is the empty cell value.
var Null = Value{}

// TextValue returns a text Value.
func TextValue(s string) Value {
	return Value{kind: KindText, text: s}
}

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// DateValue returns a date Value. The time of day is truncated.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// TimeValue returns a time-of-day Value. The date part is normalized away.
func TimeValue(t time.Time) Value {
	return Value{kind: KindTime, t: time.Date(1, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

// DateTimeValue returns a combined date and time Value.
func DateTimeValue(t time.Time) Value {
	return Value{kind: KindDateTime, t: t.UTC()}
}

// FromGo converts a native Go value into a Value. Unrecognized types are
// rendered as text.
func FromGo(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null
	case Value:
		return x
	case string:
		return TextValue(x)
	case bool:
		return BoolValue(x)
	case int:
		return NumberValue(float64(x))
	case int32:
		return NumberValue(float64(x))
	case int64:
		return NumberValue(float64(x))
	case float32:
		return NumberValue(float64(x))
	case float64:
		return NumberValue(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return DateValue(x)
		}
		return DateTimeValue(x)
	default:
		return TextValue(fmt.Sprintf("%v", x))
	}
}

// Kind returns the variant stored in the Value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the Value is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether the Value is Null or zero-length text.
func (v Value) IsEmpty() bool {
	return v.kind == KindNull || (v.kind == KindText && v.text == "")
}

// Text returns the text payload. Zero unless Kind is KindText.
func (v Value) Text() string { return v.text }

// Number returns the numeric payload. Zero unless Kind is KindNumber.
func (v Value) Number() float64 { return v.num }

// Bool returns the boolean payload. Zero unless Kind is KindBool.
func (v Value) Bool() bool { return v.b }

// Time returns the temporal payload. Zero unless Kind is KindDate, KindTime
// or KindDateTime.
func (v Value) Time() time.Time { return v.t }

// Native returns the Value as a plain Go value (nil, string, float64, bool
// or time.Time).
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindText:
		return v.text
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.t
	}
}

// String renders the Value for display.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTime:
		return v.t.Format("15:04:05")
	case KindDateTime:
		return v.t.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// instant widens a Value to a comparable time instant. A Date becomes
// midnight of that date. Reports false for non-temporal kinds.
func (v Value) instant() (time.Time, bool) {
	switch v.kind {
	case KindDate, KindDateTime:
		return v.t, true
	default:
		return time.Time{}, false
	}
}

// Equal reports whether two Values are equal. The second result is false
// when the variants are incompatible, in which case the comparison is
// undefined and callers must treat it as "no match".
func (v Value) Equal(other Value) (equal, ok bool) {
	if v.kind == other.kind {
		switch v.kind {
		case KindNull:
			return true, true
		case KindText:
			return v.text == other.text, true
		case KindNumber:
			return v.num == other.num, true
		case KindBool:
			return v.b == other.b, true
		default:
			return v.t.Equal(other.t), true
		}
	}

	// Date and DateTime coerce to a common instant.
	a, aok := v.instant()
	b, bok := other.instant()
	if aok && bok {
		return a.Equal(b), true
	}

	return false, false
}

// Compare orders two Values, returning a negative, zero or positive result.
// The second result is false when the variants cannot be ordered (mismatched
// kinds other than Date/DateTime, or booleans and nulls, which have no
// defined order).
func (v Value) Compare(other Value) (cmp int, ok bool) {
	if v.kind == other.kind {
		switch v.kind {
		case KindText:
			return strings.Compare(v.text, other.text), true
		case KindNumber:
			switch {
			case v.num < other.num:
				return -1, true
			case v.num > other.num:
				return 1, true
			default:
				return 0, true
			}
		case KindTime:
			return v.t.Compare(other.t), true
		}
	}

	a, aok := v.instant()
	b, bok := other.instant()
	if aok && bok {
		return a.Compare(b), true
	}

	return 0, false
}

// epsilon for serial-number round-tripping through Excel's date encoding.
const serialEpsilon = 1e-9

// hasTimePart reports whether an Excel serial number carries a fractional
// (time of day) component.
func hasTimePart(serial float64) bool {
	_, frac := math.Modf(serial)
	return frac > serialEpsilon && frac < 1-serialEpsilon
}
