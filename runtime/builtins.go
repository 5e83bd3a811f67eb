package vbruntime

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gosuda/vbjson/jsonv"
)

type builtinFunc func(vm *VM, name string, args []Value) (Value, error)

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"jsonnew":       builtinNew,
		"jsonparse":     builtinParse,
		"jsonstringify": builtinStringify,
		"jsonget":       builtinGet,
		"jsonset":       builtinSet,
		"jsonhas":       builtinHas,
		"jsonlen":       builtinLen,
		"jsonkeys":      builtinKeys,
		"jsonpush":      builtinPush,
		"jsonvalidate":  builtinValidate,
		"jsondiff":      builtinDiff,
		"jsonpatch":     builtinPatch,
		"jsonmerge":     builtinMerge,
	}
}

func (vm *VM) isBuiltin(name string) bool {
	_, ok := builtins[strings.ToLower(name)]
	return ok
}

// BuiltinNames lists the JSON built-ins in lower case.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for k := range builtins {
		names = append(names, k)
	}
	return names
}

func arity(name string, args []Value, lo, hi int) error {
	if len(args) >= lo && len(args) <= hi {
		return nil
	}
	if lo == hi {
		return newError(InvalidCall, "%s expects %d arguments, got %d", name, lo, len(args))
	}
	return newError(InvalidCall, "%s expects %d to %d arguments, got %d", name, lo, hi, len(args))
}

// failed classifies err and names the built-in in its message. Errors the
// JSON layer does not classify are reported as invalid calls.
func failed(name string, err error) error {
	re := classify(err)
	if re.Kind == HostError {
		re.Kind = InvalidCall
	}
	re.Msg = name + ": " + re.Msg
	return re
}

// document accepts either a JSON value or JSON text.
func document(v Value) (*jsonv.Value, error) {
	if v.Kind() == StringKind {
		return jsonv.Parse(v.String())
	}
	return v.JSONValue(), nil
}

func builtinNew(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 1, 1); err != nil {
		return Value{}, err
	}
	v, err := vm.schemas.Instantiate(args[0].String())
	if err != nil {
		return Value{}, failed(name, err)
	}
	return JSON(v), nil
}

func builtinParse(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 1, 1); err != nil {
		return Value{}, err
	}
	v, err := jsonv.Parse(args[0].String())
	if err != nil {
		return Value{}, failed(name, err)
	}
	return JSON(v), nil
}

func builtinStringify(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return Value{}, err
	}
	j := args[0].JSONValue()
	if len(args) == 2 && args[1].Truthy() {
		return Str(j.Indent()), nil
	}
	return Str(j.String()), nil
}

func builtinGet(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 2, 2); err != nil {
		return Value{}, err
	}
	v, err := jsonv.Get(args[0].JSONValue(), args[1].String())
	if err != nil {
		return Value{}, failed(name, err)
	}
	return JSON(v.Clone()), nil
}

func builtinSet(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 3, 3); err != nil {
		return Value{}, err
	}
	root := args[0].Copy().JSONValue()
	next, err := jsonv.Set(root, args[1].String(), args[2].Copy().JSONValue())
	if err != nil {
		return Value{}, failed(name, err)
	}
	return JSON(next), nil
}

func builtinHas(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 2, 2); err != nil {
		return Value{}, err
	}
	_, err := jsonv.Get(args[0].JSONValue(), args[1].String())
	if errors.Is(err, jsonv.ErrPathSyntax) {
		return Value{}, failed(name, err)
	}
	return Bool(err == nil), nil
}

func builtinLen(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return Value{}, err
	}
	target := args[0]
	if len(args) == 2 {
		v, err := jsonv.Get(args[0].JSONValue(), args[1].String())
		if err != nil {
			return Value{}, failed(name, err)
		}
		target = JSON(v)
	}
	switch target.Kind() {
	case JSONKind:
		return Num(float64(target.JSONValue().Len())), nil
	case StringKind:
		return Num(float64(utf8.RuneCountInString(target.String()))), nil
	case NullKind:
		return Num(0), nil
	default:
		return Value{}, newError(TypeMismatch, "%s: %s has no length", name, target.Kind())
	}
}

func builtinKeys(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 1, 2); err != nil {
		return Value{}, err
	}
	target := args[0].JSONValue()
	if len(args) == 2 {
		v, err := jsonv.Get(target, args[1].String())
		if err != nil {
			return Value{}, failed(name, err)
		}
		target = v
	}
	if target.Kind() != jsonv.Object {
		return Value{}, newError(PathTypeMismatch, "%s: expected object, got %s", name, target.Kind())
	}
	out := jsonv.NewArray()
	for _, k := range target.Keys() {
		out.Append(jsonv.NewString(k))
	}
	return JSON(out), nil
}

// builtinPush appends item to the array at path, creating the array when
// the path is missing or null.
func builtinPush(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 3, 3); err != nil {
		return Value{}, err
	}
	root := args[0].Copy().JSONValue()
	path := args[1].String()
	item := args[2].Copy().JSONValue()

	target, err := jsonv.Get(root, path)
	if err != nil && !errors.Is(err, jsonv.ErrPathNotFound) {
		return Value{}, failed(name, err)
	}
	if target.IsNull() {
		root, err = jsonv.Set(root, path, jsonv.NewArray(item))
		if err != nil {
			return Value{}, failed(name, err)
		}
		return JSON(root), nil
	}
	if target.Kind() != jsonv.Array {
		return Value{}, newError(PathTypeMismatch, "%s: %q holds %s, not an array", name, path, target.Kind())
	}
	target.Append(item)
	return JSON(root), nil
}

// builtinValidate reports whether a value matches a registered schema.
// With a truthy third argument a mismatch is a SchemaInvalid error.
func builtinValidate(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 2, 3); err != nil {
		return Value{}, err
	}
	err := vm.schemas.Validate(args[1].String(), args[0].JSONValue())
	if err == nil {
		return Bool(true), nil
	}
	re := classify(err)
	if re.Kind == SchemaInvalid && !(len(args) == 3 && args[2].Truthy()) {
		return Bool(false), nil
	}
	return Value{}, failed(name, err)
}

func builtinDiff(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 2, 2); err != nil {
		return Value{}, err
	}
	ops, err := jsonv.Diff(args[0].JSONValue(), args[1].JSONValue())
	if err != nil {
		return Value{}, failed(name, err)
	}
	return JSON(ops), nil
}

func builtinPatch(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 2, 2); err != nil {
		return Value{}, err
	}
	ops, err := document(args[1])
	if err != nil {
		return Value{}, failed(name, err)
	}
	out, err := jsonv.ApplyPatch(args[0].JSONValue(), ops)
	if err != nil {
		return Value{}, failed(name, err)
	}
	return JSON(out), nil
}

func builtinMerge(vm *VM, name string, args []Value) (Value, error) {
	if err := arity(name, args, 2, 2); err != nil {
		return Value{}, err
	}
	patch, err := document(args[1])
	if err != nil {
		return Value{}, failed(name, err)
	}
	out, err := jsonv.Merge(args[0].JSONValue(), patch)
	if err != nil {
		return Value{}, failed(name, err)
	}
	return JSON(out), nil
}
