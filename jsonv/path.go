package jsonv

import (
	"strconv"
	"strings"
)

// Segment is one step of a path: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// ParsePath splits a path such as `a.b[0].c[2][1]` into segments. The empty
// path has no segments and addresses the root.
func ParsePath(path string) ([]Segment, error) {
	var segs []Segment
	i := 0
	expectKey := path != "" && path[0] != '['
	for i < len(path) {
		if expectKey {
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' && path[j] != ']' {
				j++
			}
			if j == i {
				return nil, &PathError{Path: path, Segment: "offset " + strconv.Itoa(i), Err: ErrPathSyntax}
			}
			segs = append(segs, Segment{Key: path[i:j]})
			i = j
			expectKey = false
			continue
		}
		switch path[i] {
		case '.':
			i++
			expectKey = true
			if i == len(path) {
				return nil, &PathError{Path: path, Segment: "trailing '.'", Err: ErrPathSyntax}
			}
		case '[':
			j := i + 1
			for j < len(path) && path[j] >= '0' && path[j] <= '9' {
				j++
			}
			if j == i+1 || j >= len(path) || path[j] != ']' {
				return nil, &PathError{Path: path, Segment: "offset " + strconv.Itoa(i), Err: ErrPathSyntax}
			}
			n, err := strconv.Atoi(path[i+1 : j])
			if err != nil {
				return nil, &PathError{Path: path, Segment: path[i : j+1], Err: ErrPathSyntax}
			}
			segs = append(segs, Segment{Index: n, IsIndex: true})
			i = j + 1
		default:
			return nil, &PathError{Path: path, Segment: "offset " + strconv.Itoa(i), Err: ErrPathSyntax}
		}
	}
	return segs, nil
}

// JoinPath renders segments back into path syntax.
func JoinPath(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if !s.IsIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Get returns the value at path. It never modifies root.
func Get(root *Value, path string) (*Value, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return GetSegments(root, segs)
}

func GetSegments(root *Value, segs []Segment) (*Value, error) {
	cur := orNull(root)
	for i := range segs {
		next, err := step(cur, segs, i)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func step(cur *Value, segs []Segment, i int) (*Value, error) {
	s := segs[i]
	if s.IsIndex {
		if cur.Kind() != Array {
			return nil, pathErr(segs, i, ErrPathTypeMismatch)
		}
		item, ok := cur.At(s.Index)
		if !ok {
			return nil, pathErr(segs, i, ErrPathNotFound)
		}
		return item, nil
	}
	if cur.Kind() != Object {
		return nil, pathErr(segs, i, ErrPathTypeMismatch)
	}
	item, ok := cur.Get(s.Key)
	if !ok {
		return nil, pathErr(segs, i, ErrPathNotFound)
	}
	return item, nil
}

// Has reports whether Get would succeed.
func Has(root *Value, path string) bool {
	_, err := Get(root, path)
	return err == nil
}

// Set writes value at path, creating missing containers on the way, and
// returns the root. The returned root differs from the argument only when
// the argument was null (or nil) and had to become a container, or when
// the path is empty.
func Set(root *Value, path string, value *Value) (*Value, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return SetSegments(root, segs, value)
}

func SetSegments(root *Value, segs []Segment, value *Value) (*Value, error) {
	value = orNull(value)
	if len(segs) == 0 {
		return value, nil
	}
	if err := checkSet(root, segs); err != nil {
		return nil, err
	}
	root = orNull(root)
	if root.IsNull() {
		root = containerFor(segs[0])
	}
	if err := checkContainer(root, segs, 0); err != nil {
		return nil, err
	}

	cur := root
	for i := 0; i < len(segs)-1; i++ {
		child, err := childFor(cur, segs, i)
		if err != nil {
			return nil, err
		}
		cur = child
	}
	if err := assign(cur, segs, len(segs)-1, value); err != nil {
		return nil, err
	}
	return root, nil
}

// checkSet walks segs without modifying anything so that a failing Set
// leaves root untouched. A nil cur stands for a container not created yet.
func checkSet(root *Value, segs []Segment) error {
	cur := root
	for i, s := range segs {
		if cur.IsNull() {
			if s.IsIndex && s.Index >= MaxIndexGap {
				return pathErr(segs, i, ErrPathIndexOutOfRange)
			}
			cur = nil
			continue
		}
		if err := checkContainer(cur, segs, i); err != nil {
			return err
		}
		var next *Value
		if s.IsIndex {
			if n := len(cur.items); s.Index >= n && s.Index-n >= MaxIndexGap {
				return pathErr(segs, i, ErrPathIndexOutOfRange)
			}
			next, _ = cur.At(s.Index)
		} else {
			next, _ = cur.Get(s.Key)
		}
		cur = next
	}
	return nil
}

// childFor returns the container under cur at segs[i], creating it when it
// is missing or null. cur is already known to match segs[i].
func childFor(cur *Value, segs []Segment, i int) (*Value, error) {
	s := segs[i]
	var child *Value
	var ok bool
	if s.IsIndex {
		child, ok = cur.At(s.Index)
	} else {
		child, ok = cur.Get(s.Key)
	}
	if !ok || child.IsNull() {
		child = containerFor(segs[i+1])
		if err := assign(cur, segs, i, child); err != nil {
			return nil, err
		}
		return child, nil
	}
	if err := checkContainer(child, segs, i+1); err != nil {
		return nil, err
	}
	return child, nil
}

func assign(cur *Value, segs []Segment, i int, value *Value) error {
	s := segs[i]
	if !s.IsIndex {
		cur.Put(s.Key, value)
		return nil
	}
	n := len(cur.items)
	if s.Index < n {
		cur.SetAt(s.Index, value)
		return nil
	}
	if s.Index-n >= MaxIndexGap {
		return pathErr(segs, i, ErrPathIndexOutOfRange)
	}
	for len(cur.items) < s.Index {
		cur.Append(NewNull())
	}
	cur.Append(value)
	return nil
}

func checkContainer(v *Value, segs []Segment, i int) error {
	if segs[i].IsIndex && v.Kind() != Array {
		return pathErr(segs, i, ErrPathTypeMismatch)
	}
	if !segs[i].IsIndex && v.Kind() != Object {
		return pathErr(segs, i, ErrPathTypeMismatch)
	}
	return nil
}

func containerFor(s Segment) *Value {
	if s.IsIndex {
		return NewArray()
	}
	return NewObject()
}

func pathErr(segs []Segment, i int, err error) error {
	return &PathError{Path: JoinPath(segs), Segment: JoinPath(segs[:i+1]), Err: err}
}
