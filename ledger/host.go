package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gosuda/vbjson/jsonv"
	vbruntime "github.com/gosuda/vbjson/runtime"
)

// Data is the part of the VM host contract the bindings need.
type Data interface {
	DataGet(variable, path string) (*jsonv.Value, error)
	DataSet(variable, path string, value *jsonv.Value) error
}

// Register exposes NewJournal, PostEntry and Balance to scripts. They work
// on the document held in variable.
//
//	id = NewJournal("2024-03-01", "Rent")
//	PostEntry "CASH", "EUR", "", id, -500, "rent"
func Register(t *vbruntime.HostTable, data Data, variable string) {
	if strings.TrimSpace(variable) == "" {
		variable = "AppData"
	}
	b := binding{data: data, variable: variable}
	t.Register("NewJournal", b.newJournal)
	t.Register("PostEntry", b.postEntry)
	t.Register("Balance", b.balance)
}

type binding struct {
	data     Data
	variable string
}

// update loads the document, lets fn change it and writes it back only
// when fn succeeds.
func (b binding) update(fn func(root *jsonv.Value) error) error {
	root, err := b.data.DataGet(b.variable, "")
	if err != nil {
		return err
	}
	root = EnsureDefaults(root)
	if err := fn(root); err != nil {
		return err
	}
	return b.data.DataSet(b.variable, "", root)
}

func (b binding) newJournal(args []vbruntime.Value) (vbruntime.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return vbruntime.Null(), fmt.Errorf("expects 2 or 3 arguments, got %d", len(args))
	}
	period := ""
	if len(args) == 3 {
		period = args[2].String()
	}
	var id int
	err := b.update(func(root *jsonv.Value) error {
		var err error
		id, err = CreateJournal(root, args[0].String(), args[1].String(), period, 0)
		return err
	})
	if err != nil {
		return vbruntime.Null(), err
	}
	return vbruntime.Num(float64(id)), nil
}

func (b binding) postEntry(args []vbruntime.Value) (vbruntime.Value, error) {
	if len(args) < 5 || len(args) > 6 {
		return vbruntime.Null(), fmt.Errorf("expects 5 or 6 arguments, got %d", len(args))
	}
	memo := ""
	if len(args) == 6 {
		memo = args[5].String()
	}
	journal, err := number(args[3], "journal id")
	if err != nil {
		return vbruntime.Null(), err
	}
	amount, err := number(args[4], "amount")
	if err != nil {
		return vbruntime.Null(), err
	}
	var seq int
	err = b.update(func(root *jsonv.Value) error {
		var err error
		seq, err = PostEntry(root, args[0].String(), args[1].String(), args[2].String(), int(journal), amount, memo)
		return err
	})
	if err != nil {
		return vbruntime.Null(), err
	}
	return vbruntime.Num(float64(seq)), nil
}

func (b binding) balance(args []vbruntime.Value) (vbruntime.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return vbruntime.Null(), fmt.Errorf("expects 1 or 2 arguments, got %d", len(args))
	}
	root, err := b.data.DataGet(b.variable, "")
	if err != nil {
		return vbruntime.Null(), err
	}
	period := ""
	if len(args) == 2 {
		period = args[1].String()
	}
	total, err := Balance(EnsureDefaults(root), args[0].String(), period)
	if err != nil {
		return vbruntime.Null(), err
	}
	return vbruntime.Num(total), nil
}

func number(v vbruntime.Value, what string) (float64, error) {
	switch v.Kind() {
	case vbruntime.NumberKind, vbruntime.BoolKind, vbruntime.NullKind:
		return v.Number(), nil
	case vbruntime.StringKind:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		if err != nil {
			return 0, fmt.Errorf("%s %q is not a number", what, v.String())
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %s", what, v.Kind())
	}
}
