package jsonv

import (
	"errors"
	"testing"
)

func TestParsePath(t *testing.T) {
	segs, err := ParsePath("a.b[0].c[2][1]")
	if err != nil {
		t.Fatalf("parse path failed: %v", err)
	}
	want := []Segment{{Key: "a"}, {Key: "b"}, {Index: 0, IsIndex: true}, {Key: "c"}, {Index: 2, IsIndex: true}, {Index: 1, IsIndex: true}}
	if len(segs) != len(want) {
		t.Fatalf("unexpected segment count: %d", len(segs))
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Fatalf("segment %d: got %+v want %+v", i, segs[i], want[i])
		}
	}
	if got := JoinPath(segs); got != "a.b[0].c[2][1]" {
		t.Fatalf("unexpected join: %s", got)
	}

	if segs, err := ParsePath("[3].x"); err != nil || len(segs) != 2 || !segs[0].IsIndex {
		t.Fatalf("leading index not accepted: %+v %v", segs, err)
	}

	for _, bad := range []string{"a..b", "a.", ".a", "a[", "a[-1]", "a[x]", "a]", "a[0]b"} {
		if _, err := ParsePath(bad); !errors.Is(err, ErrPathSyntax) {
			t.Fatalf("expected syntax error for %q, got %v", bad, err)
		}
	}
}

func TestGetErrors(t *testing.T) {
	root := MustParse(`{"a":{"list":[1,2]},"s":"text"}`)
	cases := []struct {
		path string
		want error
	}{
		{"a.missing", ErrPathNotFound},
		{"a.list[5]", ErrPathNotFound},
		{"a[0]", ErrPathTypeMismatch},
		{"s.x", ErrPathTypeMismatch},
		{"a.list.x", ErrPathTypeMismatch},
	}
	for _, tc := range cases {
		_, err := Get(root, tc.path)
		if !errors.Is(err, tc.want) {
			t.Fatalf("get %q: expected %v, got %v", tc.path, tc.want, err)
		}
	}
	if got := root.String(); got != `{"a":{"list":[1,2]},"s":"text"}` {
		t.Fatalf("get mutated root: %s", got)
	}
	if v, err := Get(root, ""); err != nil || v != root {
		t.Fatalf("empty path should return root")
	}
}

func TestSetThenGet(t *testing.T) {
	paths := []string{"name", "a.b.c", "list[0]", "list[3].id", "deep[1][2]", "x.y[0].z"}
	root := NewObject()
	for i, p := range paths {
		val := NewNumber(float64(i + 1))
		next, err := Set(root, p, val)
		if err != nil {
			t.Fatalf("set %q failed: %v", p, err)
		}
		root = next
		got, err := Get(root, p)
		if err != nil {
			t.Fatalf("get %q failed: %v", p, err)
		}
		if !got.Equal(val) {
			t.Fatalf("get %q returned %s", p, got)
		}
	}
	if got, _ := Get(root, "list"); got.String() != `[3,null,null,{"id":4}]` {
		t.Fatalf("unexpected padded list: %s", got)
	}
	if got, _ := Get(root, "deep"); got.String() != `[null,[null,null,5]]` {
		t.Fatalf("unexpected nested arrays: %s", got)
	}
}

func TestSetOnNullRoot(t *testing.T) {
	root, err := Set(nil, "a[1]", NewString("v"))
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got := root.String(); got != `{"a":[null,"v"]}` {
		t.Fatalf("unexpected root: %s", got)
	}

	arr, err := Set(NewNull(), "[0]", NewBool(true))
	if err != nil || arr.String() != `[true]` {
		t.Fatalf("unexpected array root: %v %v", arr, err)
	}

	replaced, err := Set(root, "", NewNumber(7))
	if err != nil || replaced.String() != "7" {
		t.Fatalf("empty path should replace root: %v %v", replaced, err)
	}
}

func TestSetReplacesNullField(t *testing.T) {
	root := MustParse(`{"meta":null}`)
	if _, err := Set(root, "meta.count", NewNumber(1)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got := root.String(); got != `{"meta":{"count":1}}` {
		t.Fatalf("unexpected root: %s", got)
	}
}

func TestSetIndexBound(t *testing.T) {
	root := MustParse(`{"list":[]}`)
	if _, err := Set(root, "list[63]", NewNumber(1)); err != nil {
		t.Fatalf("set within bound failed: %v", err)
	}
	if n := mustGet(t, root, "list").Len(); n != MaxIndexGap {
		t.Fatalf("unexpected length: %d", n)
	}
	_, err := Set(root, "list[128]", NewNumber(1))
	if !errors.Is(err, ErrPathIndexOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	var pe *PathError
	if !errors.As(err, &pe) || pe.Segment != "list[128]" {
		t.Fatalf("unexpected path error: %#v", err)
	}

	for _, p := range []string{"list[9223372036854775807]", "fresh[9223372036854775807]", "fresh[0][9223372036854775807]"} {
		if _, err := Set(root, p, NewNumber(1)); !errors.Is(err, ErrPathIndexOutOfRange) {
			t.Fatalf("set %q: expected out of range, got %v", p, err)
		}
	}
	if _, err := Set(nil, "a[9223372036854775807]", NewNumber(1)); !errors.Is(err, ErrPathIndexOutOfRange) {
		t.Fatalf("expected out of range on nil root, got %v", err)
	}
	if mustGet(t, root, "list").Len() != MaxIndexGap || Has(root, "fresh") {
		t.Fatalf("failed set modified root: %s", root)
	}
}

func TestSetTypeMismatch(t *testing.T) {
	root := MustParse(`{"s":"text","list":[1]}`)
	for _, p := range []string{"s.x", "list.x", "[0]", "s[0]"} {
		if _, err := Set(root, p, NewNull()); !errors.Is(err, ErrPathTypeMismatch) {
			t.Fatalf("set %q: expected type mismatch, got %v", p, err)
		}
	}
	if _, err := Set(NewNumber(1), "a", NewNull()); !errors.Is(err, ErrPathTypeMismatch) {
		t.Fatalf("expected type mismatch on scalar root, got %v", err)
	}
}

func TestHas(t *testing.T) {
	root := MustParse(`{"a":[{"b":null}]}`)
	if !Has(root, "a[0].b") {
		t.Fatalf("expected a[0].b to exist")
	}
	if Has(root, "a[1]") || Has(root, "a[0].c") || Has(root, "a..") {
		t.Fatalf("unexpected Has result")
	}
}

func mustGet(t *testing.T, root *Value, path string) *Value {
	t.Helper()
	v, err := Get(root, path)
	if err != nil {
		t.Fatalf("get %q failed: %v", path, err)
	}
	return v
}

func TestFailedSetLeavesRootUntouched(t *testing.T) {
	root := MustParse(`{"a":{}}`)
	for _, p := range []string{"a.b.c[100]", "x[70].y", "a.b[1].c.d[64]"} {
		if _, err := Set(root, p, NewNumber(1)); !errors.Is(err, ErrPathIndexOutOfRange) {
			t.Fatalf("set %q: expected out of range, got %v", p, err)
		}
	}
	if got := root.String(); got != `{"a":{}}` {
		t.Fatalf("failed set mutated root: %s", got)
	}
}
