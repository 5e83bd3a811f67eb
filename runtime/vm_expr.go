package vbruntime

import (
	"math"
	"strings"

	"github.com/gosuda/vbjson/ast"
	"github.com/gosuda/vbjson/jsonv"
)

func (vm *VM) evalExpr(e ast.Expr) (Value, error) {
	switch ex := e.(type) {
	case ast.Literal:
		switch ex.Kind {
		case ast.NumberLit:
			return Num(ex.Num), nil
		case ast.BoolLit:
			return Bool(ex.Bool), nil
		default:
			return Str(ex.Str), nil
		}
	case ast.Variable:
		return vm.readVariable(ex.Name)
	case ast.Paren:
		return vm.evalExpr(ex.Expr)
	case ast.UnaryOp:
		v, err := vm.evalExpr(ex.Expr)
		if err != nil {
			return Value{}, err
		}
		if ex.Op != "-" {
			return Value{}, newError(TypeMismatch, "unsupported unary operator %q", ex.Op)
		}
		n, err := toNumber(v)
		if err != nil {
			return Value{}, err
		}
		return Num(-n), nil
	case ast.BinaryOp:
		left, err := vm.evalExpr(ex.Left)
		if err != nil {
			return Value{}, err
		}
		right, err := vm.evalExpr(ex.Right)
		if err != nil {
			return Value{}, err
		}
		return evalBinary(ex.Op, left, right)
	case ast.PropertyAccess:
		base, err := vm.evalExpr(ex.Base)
		if err != nil {
			return Value{}, err
		}
		return stepInto(base, jsonv.Segment{Key: ex.Name})
	case ast.IndexAccess:
		base, err := vm.evalExpr(ex.Base)
		if err != nil {
			return Value{}, err
		}
		seg, err := vm.evalSegment(ex.Index)
		if err != nil {
			return Value{}, err
		}
		return stepInto(base, seg)
	case ast.CallExpr:
		return vm.evalCall(ex, false)
	default:
		return Value{}, newError(InvalidCall, "unsupported expression %T", e)
	}
}

// readVariable resolves a bare identifier: the running Function's result
// slot, then a global, then a call to a parameterless user Function.
// A Sub name is an invalid call; anything else reads as Null.
func (vm *VM) readVariable(name string) (Value, error) {
	if fr := vm.resultFrame(name); fr != nil {
		return fr.result, nil
	}
	if v, ok := vm.env.Lookup(name); ok {
		return v, nil
	}
	if proc := vm.program.Lookup(name); proc != nil {
		if proc.Kind == ast.SubProc {
			return Value{}, newError(InvalidCall, "Sub %s does not return a value", proc.Name)
		}
		return vm.callProcedure(proc)
	}
	return Null(), nil
}

func stepInto(base Value, seg jsonv.Segment) (Value, error) {
	child, err := jsonv.GetSegments(base.JSONValue(), []jsonv.Segment{seg})
	if err != nil {
		return Value{}, classify(err)
	}
	return JSON(child), nil
}

// evalSegment turns an index expression into a path segment: numbers
// index arrays, strings name object keys.
func (vm *VM) evalSegment(e ast.Expr) (jsonv.Segment, error) {
	v, err := vm.evalExpr(e)
	if err != nil {
		return jsonv.Segment{}, err
	}
	switch v.Kind() {
	case StringKind:
		return jsonv.Segment{Key: v.String()}, nil
	case NumberKind:
		n, _ := toNumber(v)
		if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
			return jsonv.Segment{}, newError(PathIndexOutOfRange, "invalid index %s", v)
		}
		return jsonv.Segment{Index: int(n), IsIndex: true}, nil
	default:
		return jsonv.Segment{}, newError(TypeMismatch, "cannot index with %s", v.Kind())
	}
}

// assign stores a copy of v into target. Property and index targets write
// through the path engine, creating containers on the way.
func (vm *VM) assign(target ast.Expr, v Value) error {
	v = v.Copy()
	if variable, ok := target.(ast.Variable); ok {
		if fr := vm.resultFrame(variable.Name); fr != nil {
			fr.result = v
			return nil
		}
		vm.env.Set(variable.Name, v)
		return nil
	}

	root, ok := ast.RootVariable(target)
	if !ok {
		return newError(InvalidCall, "cannot assign to this expression")
	}
	segs, err := vm.targetSegments(target)
	if err != nil {
		return err
	}

	fr := vm.resultFrame(root.Name)
	var base Value
	if fr != nil {
		base = fr.result
	} else {
		base = vm.env.Get(root.Name)
	}
	next, err := jsonv.SetSegments(base.JSONValue(), segs, v.JSONValue())
	if err != nil {
		return classify(err)
	}
	if fr != nil {
		fr.result = JSON(next)
	} else {
		vm.env.Set(root.Name, JSON(next))
	}
	return nil
}

func (vm *VM) targetSegments(target ast.Expr) ([]jsonv.Segment, error) {
	var rev []jsonv.Segment
	for {
		switch t := target.(type) {
		case ast.Variable:
			segs := make([]jsonv.Segment, len(rev))
			for i := range rev {
				segs[i] = rev[len(rev)-1-i]
			}
			return segs, nil
		case ast.PropertyAccess:
			rev = append(rev, jsonv.Segment{Key: t.Name})
			target = t.Base
		case ast.IndexAccess:
			seg, err := vm.evalSegment(t.Index)
			if err != nil {
				return nil, err
			}
			rev = append(rev, seg)
			target = t.Base
		default:
			return nil, newError(InvalidCall, "cannot assign to this expression")
		}
	}
}

// evalCall resolves a call name against built-ins, then the host, then
// user procedures.
func (vm *VM) evalCall(call ast.CallExpr, statement bool) (Value, error) {
	if fn, ok := builtins[strings.ToLower(call.Name)]; ok {
		args, err := vm.evalArgs(call.Args)
		if err != nil {
			return Value{}, err
		}
		return fn(vm, call.Name, args)
	}

	if vm.host != nil {
		if fn, ok := vm.host.LookupHost(call.Name); ok {
			args, err := vm.evalArgs(call.Args)
			if err != nil {
				return Value{}, err
			}
			for i := range args {
				args[i] = args[i].Copy()
			}
			vm.logger.Debug("host call", "name", call.Name, "args", len(args), "line", call.Line)
			v, err := fn(args)
			if err != nil {
				re := classify(err)
				if re.Msg == err.Error() {
					re.Msg = call.Name + ": " + re.Msg
				}
				return Value{}, re
			}
			return v.Copy(), nil
		}
	}

	proc := vm.program.Lookup(call.Name)
	if proc == nil {
		return Value{}, newError(UndefinedProcedure, "procedure %s is not defined", call.Name)
	}
	if len(call.Args) > 0 {
		return Value{}, newError(InvalidCall, "%s %s takes no arguments", proc.Kind, proc.Name)
	}
	if proc.Kind == ast.SubProc && !statement {
		return Value{}, newError(InvalidCall, "Sub %s does not return a value", proc.Name)
	}
	return vm.callProcedure(proc)
}

func (vm *VM) evalArgs(exprs []ast.Expr) ([]Value, error) {
	args := make([]Value, 0, len(exprs))
	for _, e := range exprs {
		v, err := vm.evalExpr(e)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func evalBinary(op string, left, right Value) (Value, error) {
	switch op {
	case "&":
		return Str(left.String() + right.String()), nil
	case "+", "-", "*", "/":
		a, err := toNumber(left)
		if err != nil {
			return Value{}, err
		}
		b, err := toNumber(right)
		if err != nil {
			return Value{}, err
		}
		switch op {
		case "+":
			return Num(a + b), nil
		case "-":
			return Num(a - b), nil
		case "*":
			return Num(a * b), nil
		default:
			if b == 0 {
				return Value{}, newError(DivisionByZero, "%s / %s", left, right)
			}
			return Num(a / b), nil
		}
	case "=", "<>", "<", ">", "<=", ">=":
		c := compareValues(left, right)
		switch op {
		case "=":
			return Bool(c == 0), nil
		case "<>":
			return Bool(c != 0), nil
		case "<":
			return Bool(c < 0), nil
		case ">":
			return Bool(c > 0), nil
		case "<=":
			return Bool(c <= 0), nil
		default:
			return Bool(c >= 0), nil
		}
	default:
		return Value{}, newError(TypeMismatch, "unsupported operator %q", op)
	}
}

func isScalarNumeric(v Value) bool {
	switch v.Kind() {
	case NullKind, NumberKind, BoolKind:
		return true
	default:
		return false
	}
}

// compareValues orders numbers, booleans and null numerically; any pair
// involving a string or JSON container compares as text.
func compareValues(left, right Value) int {
	if isScalarNumeric(left) && isScalarNumeric(right) {
		a, _ := toNumber(left)
		b, _ := toNumber(right)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(left.String(), right.String())
}
