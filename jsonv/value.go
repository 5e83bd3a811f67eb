// Package jsonv holds the JSON value model used by scripts: a mutable tree of
// nulls, booleans, numbers, strings, arrays and insertion-ordered objects,
// plus the dotted path language used to read and write inside it.
package jsonv

type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "null"
	}
}

// Value is a node in a JSON tree. A nil *Value reads as null.
type Value struct {
	kind  Kind
	b     bool
	n     float64
	s     string
	items []*Value
	obj   *object
}

type object struct {
	keys  []string
	vals  []*Value
	index map[string]int
}

func NewNull() *Value { return &Value{kind: Null} }
func NewBool(b bool) *Value { return &Value{kind: Bool, b: b} }
func NewNumber(n float64) *Value { return &Value{kind: Number, n: n} }
func NewString(s string) *Value { return &Value{kind: String, s: s} }
func NewArray(items ...*Value) *Value {
	return &Value{kind: Array, items: append([]*Value{}, items...)}
}

func NewObject() *Value {
	return &Value{kind: Object, obj: &object{index: map[string]int{}}}
}

func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

func (v *Value) IsNull() bool { return v.Kind() == Null }

func (v *Value) IsContainer() bool {
	k := v.Kind()
	return k == Array || k == Object
}

func (v *Value) Bool() bool {
	if v == nil {
		return false
	}
	return v.b
}

func (v *Value) Number() float64 {
	if v == nil {
		return 0
	}
	return v.n
}

func (v *Value) Str() string {
	if v == nil {
		return ""
	}
	return v.s
}

// Len is the element count of an array or the key count of an object.
func (v *Value) Len() int {
	switch v.Kind() {
	case Array:
		return len(v.items)
	case Object:
		return len(v.obj.keys)
	default:
		return 0
	}
}

func (v *Value) Items() []*Value {
	if v.Kind() != Array {
		return nil
	}
	return v.items
}

func (v *Value) At(i int) (*Value, bool) {
	if v.Kind() != Array || i < 0 || i >= len(v.items) {
		return nil, false
	}
	return v.items[i], true
}

func (v *Value) SetAt(i int, item *Value) {
	v.items[i] = orNull(item)
}

func (v *Value) Append(items ...*Value) {
	for _, it := range items {
		v.items = append(v.items, orNull(it))
	}
}

// Keys returns object keys in insertion order.
func (v *Value) Keys() []string {
	if v.Kind() != Object {
		return nil
	}
	return append([]string(nil), v.obj.keys...)
}

func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != Object {
		return nil, false
	}
	i, ok := v.obj.index[key]
	if !ok {
		return nil, false
	}
	return v.obj.vals[i], true
}

// Put sets key, keeping the original position when it already exists.
func (v *Value) Put(key string, val *Value) {
	o := v.obj
	val = orNull(val)
	if i, ok := o.index[key]; ok {
		o.vals[i] = val
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, val)
}

func (v *Value) Delete(key string) bool {
	if v.Kind() != Object {
		return false
	}
	o := v.obj
	i, ok := o.index[key]
	if !ok {
		return false
	}
	o.keys = append(o.keys[:i], o.keys[i+1:]...)
	o.vals = append(o.vals[:i], o.vals[i+1:]...)
	delete(o.index, key)
	for j := i; j < len(o.keys); j++ {
		o.index[o.keys[j]] = j
	}
	return true
}

// Clone returns a deep copy.
func (v *Value) Clone() *Value {
	if v == nil {
		return NewNull()
	}
	switch v.kind {
	case Array:
		cp := &Value{kind: Array, items: make([]*Value, len(v.items))}
		for i, it := range v.items {
			cp.items[i] = it.Clone()
		}
		return cp
	case Object:
		cp := NewObject()
		for i, k := range v.obj.keys {
			cp.Put(k, v.obj.vals[i].Clone())
		}
		return cp
	default:
		c := *v
		return &c
	}
}

// Equal compares structurally. Object key order is ignored.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Number:
		return v.n == o.n
	case String:
		return v.s == o.s
	case Array:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		if v.Len() != o.Len() {
			return false
		}
		for i, k := range v.obj.keys {
			ov, ok := o.Get(k)
			if !ok || !v.obj.vals[i].Equal(ov) {
				return false
			}
		}
		return true
	}
}

func orNull(v *Value) *Value {
	if v == nil {
		return NewNull()
	}
	return v
}
