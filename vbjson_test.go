package vbjson_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gosuda/vbjson"
	"github.com/gosuda/vbjson/jsonv"
	"github.com/gosuda/vbjson/parser"
	vbruntime "github.com/gosuda/vbjson/runtime"
)

const customerForm = `Function GetGreeting()
    GetGreeting = "Hello, " & JsonGet(AppData, "customer.name")
End Function

Sub FormCustomer_Load()
    Dim c
    c = JsonNew("Customer")
    JsonSet c, "name", "New Customer"
    JsonSet c, "age", 18

    AppData = JsonNew("Root")
    JsonSet AppData, "customer", c

    ' ListBox items: ["Alice","Bob","Charlie"]
    Dim names
    names = JsonParse("[""Alice"",""Bob"",""Charlie""]")
    JsonSet AppData, "customerNames", names
End Sub

Sub btnSave_Click()
    Dim age
    age = JsonGet(AppData, "customer.age")

    Dim k
    k = 0
    Do
        k = k + 1
    Loop While k < 2

    custName = JsonGet(AppData, "customerNames[1]")
    If age >= 18 Then
        MsgBox GetGreeting() & " (adult, " & age & ")" & _
               " | Selected customer: " & custName
    Else
        MsgBox GetGreeting() & " (minor, " & age & ")"
    End If
End Sub
`

func TestCompileAndRunFormScript(t *testing.T) {
	ht := vbruntime.NewHostTable()
	console := vbruntime.NewConsole(nil)
	console.Register(ht)

	vm, err := vbjson.Compile(customerForm, vbruntime.WithHost(ht))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if err := vm.Run("FormCustomer_Load"); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	d := vbruntime.NewDispatcher(vm, vbruntime.IgnoreMissing)
	d.PostEvent("btnSave", "Click")
	d.PostEvent("btnCancel", "Click")
	if errs := d.Drain(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if err := vm.DataSet("AppData", "customer.age", jsonv.NewNumber(12)); err != nil {
		t.Fatalf("data set failed: %v", err)
	}
	if err := vm.DataSet("AppData", "customer.name", jsonv.NewString("Zoe")); err != nil {
		t.Fatalf("data set failed: %v", err)
	}
	d.PostEvent("btnSave", "Click")
	if errs := d.Drain(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	out := console.Take()
	if len(out) != 2 {
		t.Fatalf("unexpected output count: %d", len(out))
	}
	if out[0].Text != "Hello, New Customer (adult, 18) | Selected customer: Bob" {
		t.Fatalf("unexpected first output: %+v", out[0])
	}
	if out[1].Text != "Hello, Zoe (minor, 12)" {
		t.Fatalf("unexpected second output: %+v", out[1])
	}

	names, err := vm.DataGet("AppData", "customerNames")
	if err != nil || names.String() != `["Alice","Bob","Charlie"]` {
		t.Fatalf("unexpected names %v %v", names, err)
	}
	ledger, err := vm.DataGet("AppData", "ledger.postings")
	if err != nil || ledger.Len() != 0 {
		t.Fatalf("Root template should be intact: %v %v", ledger, err)
	}
}

func TestCompileRejectsBadSource(t *testing.T) {
	_, err := vbjson.Compile("Sub A\n    x = 1\n")
	var se *parser.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if se.Line == 0 {
		t.Fatalf("syntax error should carry a line")
	}
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.vb")
	if err := os.WriteFile(path, []byte("total = 1 + 2\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	vm, err := vbjson.CompileFile(path)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if err := vm.Run(""); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if vm.Var("total").Number() != 3 {
		t.Fatalf("unexpected total %v", vm.Var("total"))
	}
	if _, err := vbjson.CompileFile(filepath.Join(t.TempDir(), "missing.vb")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParseListsProcedures(t *testing.T) {
	prog, err := vbjson.Parse(customerForm)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []string{"GetGreeting", "FormCustomer_Load", "btnSave_Click"}
	if len(prog.Order) != len(want) {
		t.Fatalf("unexpected procedures: %v", prog.Order)
	}
	for i, key := range prog.Order {
		if prog.Procedures[key].Name != want[i] {
			t.Fatalf("procedure %d: got %s want %s", i, prog.Procedures[key].Name, want[i])
		}
	}
}
