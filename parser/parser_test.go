package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/gosuda/vbjson/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := ParseSource(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return prog
}

func TestProgramShape(t *testing.T) {
	prog := mustParse(t, `
count = 0
Function Twice() As Object
    Twice = count * 2
End Function

' trailing comment
Sub Bump()
    count = count + 1
End Sub
MsgBox Twice()
`)
	if len(prog.Main.Statements) != 2 {
		t.Fatalf("unexpected main statements: %d", len(prog.Main.Statements))
	}
	if len(prog.Order) != 2 || prog.Order[0] != "twice" || prog.Order[1] != "bump" {
		t.Fatalf("unexpected order %v", prog.Order)
	}
	fn := prog.Lookup("TWICE")
	if fn == nil || fn.Kind != ast.FunctionProc || fn.Name != "Twice" || fn.Line != 3 {
		t.Fatalf("unexpected function %+v", fn)
	}
	if sub := prog.Lookup("bump"); sub == nil || sub.Kind != ast.SubProc || len(sub.Body.Statements) != 1 {
		t.Fatalf("unexpected sub %+v", sub)
	}
}

func TestExpressionsFoldLeftToRight(t *testing.T) {
	prog := mustParse(t, "x = 1 + 2 * 3\ny = 1 + (2 * 3)\n")
	x := prog.Main.Statements[0].(ast.AssignStmt).Expr.(ast.BinaryOp)
	if x.Op != "*" {
		t.Fatalf("outer operator should be *, got %s", x.Op)
	}
	if inner, ok := x.Left.(ast.BinaryOp); !ok || inner.Op != "+" {
		t.Fatalf("left operand should be the sum, got %#v", x.Left)
	}
	y := prog.Main.Statements[1].(ast.AssignStmt).Expr.(ast.BinaryOp)
	if _, ok := y.Right.(ast.Paren); y.Op != "+" || !ok {
		t.Fatalf("parentheses should group, got %#v", y)
	}
}

func TestCallForms(t *testing.T) {
	prog := mustParse(t, "Foo\nFoo(1, 2)\nFoo 1, 2\nCall Foo(1)\nFoo (1) & 2, 3\nFoo -1\n")
	want := []struct {
		args   int
		parens bool
	}{{0, false}, {2, true}, {2, false}, {1, true}, {2, false}, {1, false}}
	for i, w := range want {
		call := prog.Main.Statements[i].(ast.ExprStmt).Call
		if call.Name != "Foo" || len(call.Args) != w.args || call.Parens != w.parens {
			t.Fatalf("statement %d: unexpected call %+v", i, call)
		}
	}
	first := prog.Main.Statements[4].(ast.ExprStmt).Call.Args[0]
	if b, ok := first.(ast.BinaryOp); !ok || b.Op != "&" {
		t.Fatalf("grouped first argument should be a concatenation, got %#v", first)
	}
	if u, ok := prog.Main.Statements[5].(ast.ExprStmt).Call.Args[0].(ast.UnaryOp); !ok || u.Op != "-" {
		t.Fatalf("expected unary minus argument")
	}
}

func TestMethodCallStatements(t *testing.T) {
	prog := mustParse(t, "lst.Add \"a\", 2\nlst.Add(1)\nlst.Clear\nlst.Clear : x = 1\n")
	want := []struct {
		args   int
		parens bool
	}{{2, false}, {1, true}, {0, false}, {0, false}}
	for i, w := range want {
		call := prog.Main.Statements[i].(ast.ExprStmt).Call
		if call.Name != "lst.Add" && call.Name != "lst.Clear" || len(call.Args) != w.args || call.Parens != w.parens {
			t.Fatalf("statement %d: unexpected call %+v", i, call)
		}
	}
	if len(prog.Main.Statements) != 5 {
		t.Fatalf("unexpected statement count %d", len(prog.Main.Statements))
	}
	if _, err := ParseSource("a[0].Add 1\n"); err == nil {
		t.Fatalf("method calls need a plain object name")
	}
}

func TestAccessChainsAndAssignTargets(t *testing.T) {
	prog := mustParse(t, "a.items[i + 1].name = JsonGet(d, \"x\").y\n")
	st := prog.Main.Statements[0].(ast.AssignStmt)
	if got := ast.FormatExpr(st.Target); got != "a.items[i + 1].name" {
		t.Fatalf("unexpected target %s", got)
	}
	if root, ok := ast.RootVariable(st.Target); !ok || root.Name != "a" {
		t.Fatalf("unexpected root %+v", root)
	}
	if _, ok := st.Expr.(ast.PropertyAccess); !ok {
		t.Fatalf("call result access should be a property access, got %#v", st.Expr)
	}
}

func TestDoLoopConditions(t *testing.T) {
	prog := mustParse(t, `Sub Loops
    Do While a
    Loop
    Do Until a
    Loop
    Do
    Loop While a
    Do
    Loop Until a
    Do
        Exit Do
    Loop
End Sub
`)
	want := []struct {
		kind ast.LoopCondKind
		post bool
	}{{ast.LoopWhile, false}, {ast.LoopUntil, false}, {ast.LoopWhile, true}, {ast.LoopUntil, true}, {ast.LoopForever, false}}
	body := prog.Lookup("Loops").Body.Statements
	for i, w := range want {
		d := body[i].(ast.DoLoopStmt)
		if d.CondKind != w.kind || d.PostTest != w.post {
			t.Fatalf("loop %d: got %v/%v", i, d.CondKind, d.PostTest)
		}
	}
	if ex := body[4].(ast.DoLoopStmt).Body.Statements[0].(ast.ExitStmt); ex.Kind != ast.ExitDo {
		t.Fatalf("expected Exit Do")
	}
}

func TestIfForms(t *testing.T) {
	prog := mustParse(t, `If a = 1 Then
    b = 1
ElseIf a = 2 Then
    b = 2
Else
    b = 3
End If
If a Then b = 4 Else b = 5
If a Then MsgBox "x": b = 6
If a Then b = 7 : c = 8 Else b = 9 : c = 10 :
d = 11
`)
	block := prog.Main.Statements[0].(ast.IfStmt)
	if len(block.Branches) != 2 || block.Else == nil || block.Inline {
		t.Fatalf("unexpected if %+v", block)
	}
	inline := prog.Main.Statements[1].(ast.IfStmt)
	if !inline.Inline || inline.Else == nil || len(inline.Branches[0].Body.Statements) != 1 {
		t.Fatalf("unexpected inline if %+v", inline)
	}
	if len(prog.Main.Statements) != 5 {
		t.Fatalf("colon-joined statements should stay in the inline if, got %d statements", len(prog.Main.Statements))
	}
	if joined := prog.Main.Statements[2].(ast.IfStmt); len(joined.Branches[0].Body.Statements) != 2 || joined.Else != nil {
		t.Fatalf("unexpected colon-joined if %+v", joined)
	}
	both := prog.Main.Statements[3].(ast.IfStmt)
	if len(both.Branches[0].Body.Statements) != 2 || both.Else == nil || len(both.Else.Statements) != 2 {
		t.Fatalf("unexpected colon-joined if/else %+v", both)
	}
	if _, ok := prog.Main.Statements[4].(ast.AssignStmt); !ok {
		t.Fatalf("next line should be outside the inline if")
	}
}

func TestSyntaxErrors(t *testing.T) {
	cases := []struct {
		src  string
		line int
		want string
	}{
		{"Sub A\n", 2, "End Sub to close Sub A at line 1"},
		{"If x Then\n  y = 1\nEnd Sub\n", 3, "found End Sub"},
		{"x = (1\n", 1, "')'"},
		{"Exit Do\n", 1, "outside of a Do block"},
		{"Sub A\nEnd Sub\nSub a\nEnd Sub\n", 3, "duplicate procedure"},
		{"Sub A(x)\nEnd Sub\n", 1, "parameters are not supported"},
		{"Wend\n", 1, "without a matching block"},
		{"Do While a\nLoop Until b\n", 2, "both a Do and a Loop condition"},
		{"1 = 2\n", 1, "statement"},
		{"Sub A\n  Sub B\n  End Sub\nEnd Sub\n", 2, "only allowed at top level"},
		{"If a Then\nElse\nElseIf b Then\nEnd If\n", 3, "ElseIf after Else"},
		{"x = 1 y\n", 1, "end of statement"},
		{"While a\nLoop\n", 2, "Wend"},
		{"JsonNew(\"A\") = 1\n", 1, "cannot assign"},
	}
	for _, c := range cases {
		_, err := ParseSource(c.src)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("%q: expected SyntaxError, got %v", c.src, err)
		}
		if se.Line != c.line || !strings.Contains(se.Error(), c.want) {
			t.Fatalf("%q: got %q (line %d), want line %d containing %q", c.src, se.Error(), se.Line, c.line, c.want)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	src := `total = 0
Sub Add()
  Dim a As Object, b
  If total > 10 Then Exit Sub
  Do
    total = total + 1
  Loop Until total >= 3
  MsgBox "n=" & total
End Sub
`
	want := `total = 0

Sub Add()
    Dim a, b
    If total > 10 Then
        Exit Sub
    End If
    Do
        total = total + 1
    Loop Until total >= 3
    MsgBox("n=" & total)
End Sub
`
	first := ast.Format(mustParse(t, src))
	if first != want {
		t.Fatalf("unexpected format:\n%s", first)
	}
	if second := ast.Format(mustParse(t, first)); second != first {
		t.Fatalf("format is not stable:\n%s", second)
	}
}
