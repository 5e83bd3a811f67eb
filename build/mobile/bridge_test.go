package mobile

import (
	"encoding/json"
	"testing"
)

type decoded struct {
	Outputs []output        `json:"outputs"`
	Data    json.RawMessage `json:"data"`
	Error   *failure        `json:"error"`
}

func decode(t *testing.T, s string) decoded {
	t.Helper()
	var d decoded
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		t.Fatalf("invalid result json %q: %v", s, err)
	}
	return d
}

func TestRunCallsSubsInOrder(t *testing.T) {
	src := `
AppData = JsonNew("Root")
Sub Book
    id = NewJournal("2024-01-31", "Opening")
    PostEntry "CASH", "", "", id, 100
    MsgBox "booked " & id
End Sub
Sub Report
    Print "cash", Balance("CASH")
End Sub
`
	d := decode(t, Run(src, "", `["Book","Report"]`))
	if d.Error != nil {
		t.Fatalf("unexpected error: %+v", d.Error)
	}
	if len(d.Outputs) != 2 || d.Outputs[0].Text != "booked 1" || d.Outputs[1].Text != "cash 100" {
		t.Fatalf("unexpected outputs: %+v", d.Outputs)
	}
	var data map[string]any
	if err := json.Unmarshal(d.Data, &data); err != nil {
		t.Fatalf("bad data: %v", err)
	}
	if data["id"] != float64(1) {
		t.Fatalf("unexpected globals: %v", data)
	}
}

func TestRunReportsFailures(t *testing.T) {
	d := decode(t, Run("Sub A\n", "", ""))
	if d.Error == nil || d.Error.Kind != "SyntaxError" {
		t.Fatalf("expected syntax error, got %+v", d.Error)
	}

	d = decode(t, Run("x = 1\nSub Boom\n  y = x / 0\nEnd Sub\n", "", `["Boom","Missing"]`))
	if d.Error == nil || d.Error.Kind != "DivisionByZero" || d.Error.Line != 3 || d.Error.Proc != "Boom" {
		t.Fatalf("unexpected failure: %+v", d.Error)
	}

	d = decode(t, Run("x = 1\n", "", `not json`))
	if d.Error == nil || d.Error.Kind != "InvalidCall" {
		t.Fatalf("expected invalid calls error, got %+v", d.Error)
	}
}
