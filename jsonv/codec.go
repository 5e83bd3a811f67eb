package jsonv

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Parse decodes exactly one JSON document. Object key order is preserved
// and a repeated key keeps its first position with the last value.
func Parse(text string) (*Value, error) {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		var se *json.SyntaxError
		if errors.As(err, &se) {
			return nil, &SyntaxError{Offset: se.Offset, Msg: se.Error()}
		}
		return nil, &SyntaxError{Msg: err.Error()}
	}
	return fromResult(gjson.ParseBytes(raw)), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(text string) *Value {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

func fromResult(r gjson.Result) *Value {
	switch r.Type {
	case gjson.False:
		return NewBool(false)
	case gjson.True:
		return NewBool(true)
	case gjson.Number:
		return NewNumber(r.Num)
	case gjson.String:
		return NewString(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			arr := NewArray()
			r.ForEach(func(_, item gjson.Result) bool {
				arr.Append(fromResult(item))
				return true
			})
			return arr
		}
		obj := NewObject()
		r.ForEach(func(key, val gjson.Result) bool {
			obj.Put(key.Str, fromResult(val))
			return true
		})
		return obj
	default:
		return NewNull()
	}
}

// String renders v as compact JSON.
func (v *Value) String() string {
	var b strings.Builder
	v.write(&b)
	return b.String()
}

// Indent renders v as JSON indented by two spaces.
func (v *Value) Indent() string {
	out := pretty.PrettyOptions([]byte(v.String()), &pretty.Options{Width: 80, Indent: "  "})
	return strings.TrimRight(string(out), "\n")
}

func (v *Value) MarshalJSON() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

func (v *Value) write(b *strings.Builder) {
	switch v.Kind() {
	case Null:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(v.b))
	case Number:
		b.WriteString(FormatNumber(v.n))
	case String:
		writeQuoted(b, v.s)
	case Array:
		b.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			it.write(b)
		}
		b.WriteByte(']')
	case Object:
		b.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeQuoted(b, k)
			b.WriteByte(':')
			v.obj.vals[i].write(b)
		}
		b.WriteByte('}')
	}
}

// FormatNumber prints integral values without a fractional part. NaN and
// infinities have no JSON form and print as null.
func FormatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "null"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

const hexDigits = "0123456789abcdef"

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				b.WriteByte('\\')
				b.WriteByte(c)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
				b.WriteString(`\r`)
			case c == '\t':
				b.WriteString(`\t`)
			case c < 0x20:
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
			default:
				b.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(`�`)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
}
