package jsonv

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePreservesKeyOrder(t *testing.T) {
	v, err := Parse(`{"z":1,"a":[true,null,"x"],"m":{"b":2,"a":1}}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := strings.Join(v.Keys(), ","); got != "z,a,m" {
		t.Fatalf("unexpected key order: %s", got)
	}
	if got := v.String(); got != `{"z":1,"a":[true,null,"x"],"m":{"b":2,"a":1}}` {
		t.Fatalf("unexpected stringify: %s", got)
	}
}

func TestParseSyntaxError(t *testing.T) {
	for _, src := range []string{``, `{`, `{"a":}`, `[1,2] 3`, `nul`} {
		_, err := Parse(src)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("expected SyntaxError for %q, got %v", src, err)
		}
	}
}

func TestStringifyNumbersAndEscapes(t *testing.T) {
	v := NewObject()
	v.Put("int", NewNumber(3))
	v.Put("frac", NewNumber(2.5))
	v.Put("neg", NewNumber(-10))
	v.Put("text", NewString("a\"b\\c\nd<e>"))
	want := `{"int":3,"frac":2.5,"neg":-10,"text":"a\"b\\c\nd<e>"}`
	if got := v.String(); got != want {
		t.Fatalf("unexpected stringify:\n got %s\nwant %s", got, want)
	}
	back, err := Parse(v.String())
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if !back.Equal(v) {
		t.Fatalf("reparsed value differs: %s", back)
	}
}

func TestIndent(t *testing.T) {
	v := MustParse(`{"a":{"b":1}}`)
	want := "{\n  \"a\": {\n    \"b\": 1\n  }\n}"
	if got := v.Indent(); got != want {
		t.Fatalf("unexpected indent output:\n%s", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := MustParse(`{"list":[1,2],"o":{"k":"v"}}`)
	b := a.Clone()
	if _, err := Set(b, "list[0]", NewNumber(99)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := Set(b, "o.k", NewString("changed")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got := a.String(); got != `{"list":[1,2],"o":{"k":"v"}}` {
		t.Fatalf("original mutated through clone: %s", got)
	}
}

func TestDeleteKeepsOrder(t *testing.T) {
	v := MustParse(`{"a":1,"b":2,"c":3}`)
	if !v.Delete("b") {
		t.Fatalf("expected delete to succeed")
	}
	v.Put("d", NewNumber(4))
	if got := v.String(); got != `{"a":1,"c":3,"d":4}` {
		t.Fatalf("unexpected object after delete: %s", got)
	}
	if c, _ := v.Get("c"); c.Number() != 3 {
		t.Fatalf("index not rebuilt after delete")
	}
}

func TestEqualIgnoresKeyOrder(t *testing.T) {
	if !MustParse(`{"a":1,"b":[1,{"c":null}]}`).Equal(MustParse(`{"b":[1,{"c":null}],"a":1}`)) {
		t.Fatalf("expected objects to be equal")
	}
	if MustParse(`[1,2]`).Equal(MustParse(`[2,1]`)) {
		t.Fatalf("array order must matter")
	}
}

func TestDiffPatchMerge(t *testing.T) {
	from := MustParse(`{"name":"a","tags":["x"]}`)
	to := MustParse(`{"name":"b","tags":["x","y"]}`)

	ops, err := Diff(from, to)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if ops.Kind() != Array || ops.Len() == 0 {
		t.Fatalf("expected operations, got %s", ops)
	}
	patched, err := ApplyPatch(from, ops)
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if !patched.Equal(to) {
		t.Fatalf("patched document differs: %s", patched)
	}
	if got := from.String(); got != `{"name":"a","tags":["x"]}` {
		t.Fatalf("patch mutated its input: %s", got)
	}

	same, err := Diff(from, from.Clone())
	if err != nil || same.Len() != 0 {
		t.Fatalf("expected empty diff, got %v %v", same, err)
	}

	merged, err := Merge(from, MustParse(`{"name":null,"extra":1}`))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if Has(merged, "name") || !Has(merged, "extra") {
		t.Fatalf("unexpected merge result: %s", merged)
	}
}
