package vbruntime

import (
	"math"
	"strconv"
	"strings"

	"github.com/gosuda/vbjson/jsonv"
)

type ValueKind int

const (
	NullKind ValueKind = iota
	NumberKind
	StringKind
	BoolKind
	JSONKind
)

func (k ValueKind) String() string {
	switch k {
	case NumberKind:
		return "Number"
	case StringKind:
		return "String"
	case BoolKind:
		return "Boolean"
	case JSONKind:
		return "Json"
	default:
		return "Null"
	}
}

// Value is a script value. A JSONKind value always holds an array or object;
// JSON scalars are unwrapped into the matching native kind.
type Value struct {
	kind ValueKind
	n    float64
	s    string
	b    bool
	j    *jsonv.Value
}

func Null() Value {
	return Value{}
}

func Num(v float64) Value {
	return Value{kind: NumberKind, n: v}
}

func Str(v string) Value {
	return Value{kind: StringKind, s: v}
}

func Bool(v bool) Value {
	return Value{kind: BoolKind, b: v}
}

// JSON wraps j without copying.
func JSON(j *jsonv.Value) Value {
	switch j.Kind() {
	case jsonv.Null:
		return Null()
	case jsonv.Bool:
		return Bool(j.Bool())
	case jsonv.Number:
		return Num(j.Number())
	case jsonv.String:
		return Str(j.Str())
	default:
		return Value{kind: JSONKind, j: j}
	}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == NullKind
}

// JSONValue converts v into a JSON tree. Containers are returned as-is, so
// callers that keep the result must Clone it.
func (v Value) JSONValue() *jsonv.Value {
	switch v.kind {
	case NumberKind:
		return jsonv.NewNumber(v.n)
	case StringKind:
		return jsonv.NewString(v.s)
	case BoolKind:
		return jsonv.NewBool(v.b)
	case JSONKind:
		return v.j
	default:
		return jsonv.NewNull()
	}
}

// Copy deep-copies a JSON container so the result shares nothing with v.
func (v Value) Copy() Value {
	if v.kind == JSONKind {
		return Value{kind: JSONKind, j: v.j.Clone()}
	}
	return v
}

func (v Value) String() string {
	switch v.kind {
	case NumberKind:
		return formatNumber(v.n)
	case StringKind:
		return v.s
	case BoolKind:
		if v.b {
			return "True"
		}
		return "False"
	case JSONKind:
		return v.j.String()
	default:
		return ""
	}
}

// Number is a lenient numeric view used by hosts; scripts go through
// toNumber, which reports coercion failures.
func (v Value) Number() float64 {
	n, err := toNumber(v)
	if err != nil {
		return 0
	}
	return n
}

func (v Value) Truthy() bool {
	switch v.kind {
	case NumberKind:
		return v.n != 0
	case StringKind:
		return v.s != ""
	case BoolKind:
		return v.b
	case JSONKind:
		return true
	default:
		return false
	}
}

func formatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return jsonv.FormatNumber(n)
}

func toNumber(v Value) (float64, error) {
	switch v.kind {
	case NullKind:
		return 0, nil
	case NumberKind:
		return v.n, nil
	case BoolKind:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case StringKind:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, newError(TypeMismatch, "cannot use string %q as a number", v.s)
		}
		return n, nil
	default:
		return 0, newError(TypeMismatch, "cannot use %s as a number", v.kind)
	}
}
