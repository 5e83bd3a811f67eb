package vbruntime

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tevino/abool/v2"

	"github.com/gosuda/vbjson/ast"
	"github.com/gosuda/vbjson/jsonv"
	"github.com/gosuda/vbjson/schema"
)

const DefaultMaxCallDepth = 256

// VM evaluates one program against one global environment. It is not safe
// for concurrent use; hosts that call in from several goroutines go
// through a Dispatcher.
type VM struct {
	program  *ast.Program
	env      *Env
	host     Host
	schemas  *schema.Registry
	logger   *slog.Logger
	maxDepth int
	stack    []*frame
	mainDone bool
	loopExit *abool.AtomicBool
}

type frame struct {
	proc   *ast.Procedure
	key    string
	result Value
}

type Option func(*VM)

func WithHost(h Host) Option {
	return func(vm *VM) { vm.host = h }
}

func WithSchemas(r *schema.Registry) Option {
	return func(vm *VM) { vm.schemas = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(vm *VM) {
		if l != nil {
			vm.logger = l
		}
	}
}

func WithMaxCallDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxDepth = n
		}
	}
}

// WithEnv shares an existing environment, for example one restored from a
// saved session.
func WithEnv(env *Env) Option {
	return func(vm *VM) {
		if env != nil {
			vm.env = env
		}
	}
}

// New prepares a VM. Without WithSchemas the built-in registry is used.
func New(program *ast.Program, opts ...Option) (*VM, error) {
	if program == nil {
		return nil, fmt.Errorf("nil program")
	}
	vm := &VM{
		program:  program,
		env:      NewEnv(),
		logger:   slog.New(slog.DiscardHandler),
		maxDepth: DefaultMaxCallDepth,
		loopExit: abool.NewBool(false),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.schemas == nil {
		vm.schemas = schema.Builtin()
	}
	return vm, nil
}

func (vm *VM) Program() *ast.Program {
	return vm.program
}

func (vm *VM) Env() *Env {
	return vm.env
}

// RunMain executes the top-level statements. Later calls are no-ops.
func (vm *VM) RunMain() error {
	if vm.mainDone {
		return nil
	}
	vm.mainDone = true
	if vm.program.Main == nil || len(vm.program.Main.Statements) == 0 {
		return nil
	}
	vm.loopExit.UnSet()
	_, err := vm.runBlock(vm.program.Main)
	if err != nil {
		vm.logFailure("Main", err)
	}
	return err
}

// Run executes the top-level statements (once per VM) and then entry, if
// entry is not empty.
func (vm *VM) Run(entry string) error {
	if err := vm.RunMain(); err != nil {
		return err
	}
	if strings.TrimSpace(entry) == "" {
		return nil
	}
	return vm.CallSub(entry)
}

// CallSub invokes a declared procedure by name with no arguments. A
// Function may be called this way too; its result is discarded.
func (vm *VM) CallSub(name string) error {
	_, err := vm.CallFunction(name)
	return err
}

// CallFunction invokes a declared procedure and returns its result slot,
// which is Null for a Sub.
func (vm *VM) CallFunction(name string) (Value, error) {
	proc := vm.program.Lookup(name)
	if proc == nil {
		err := newError(UndefinedProcedure, "procedure %s is not defined", name)
		vm.logFailure(name, err)
		return Null(), err
	}
	if len(vm.stack) == 0 {
		vm.loopExit.UnSet()
	}
	v, err := vm.callProcedure(proc)
	if err != nil {
		vm.logFailure(proc.Name, err)
		return Null(), err
	}
	return v.Copy(), nil
}

func (vm *VM) HasProcedure(name string) bool {
	return vm.program.Lookup(name) != nil
}

// Procedures lists declared procedures in source order.
func (vm *VM) Procedures() []*ast.Procedure {
	out := make([]*ast.Procedure, 0, len(vm.program.Order))
	for _, key := range vm.program.Order {
		out = append(out, vm.program.Procedures[key])
	}
	return out
}

// RequestLoopExit asks the innermost running Do...Loop to stop after its
// current iteration. It may be called from any goroutine.
func (vm *VM) RequestLoopExit() {
	vm.loopExit.Set()
}

// Var returns a copy of a global variable.
func (vm *VM) Var(name string) Value {
	return vm.env.Get(name).Copy()
}

// SetVar stores a copy of v.
func (vm *VM) SetVar(name string, v Value) {
	vm.env.Set(name, v.Copy())
}

func (vm *VM) Globals() map[string]Value {
	return vm.env.Snapshot()
}

// DataGet reads path inside a variable, the same way JsonGet does.
func (vm *VM) DataGet(variable, path string) (*jsonv.Value, error) {
	root := vm.env.Get(variable).JSONValue()
	v, err := jsonv.Get(root, path)
	if err != nil {
		return nil, classify(err)
	}
	return v.Clone(), nil
}

// DataSet writes a copy of value at path inside a variable, creating
// containers as needed.
func (vm *VM) DataSet(variable, path string, value *jsonv.Value) error {
	root := vm.env.Get(variable).JSONValue()
	next, err := jsonv.Set(root, path, value.Clone())
	if err != nil {
		return classify(err)
	}
	vm.env.Set(variable, JSON(next))
	return nil
}

func (vm *VM) callProcedure(proc *ast.Procedure) (Value, error) {
	if len(vm.stack) >= vm.maxDepth {
		return Null(), newError(CallDepthExceeded, "call depth limit %d reached calling %s", vm.maxDepth, proc.Name)
	}
	fr := &frame{proc: proc, key: strings.ToLower(proc.Name)}
	vm.stack = append(vm.stack, fr)
	defer func() {
		vm.stack = vm.stack[:len(vm.stack)-1]
	}()

	vm.logger.Debug("call", "proc", proc.Name, "kind", proc.Kind.String(), "depth", len(vm.stack))
	if _, err := vm.runBlock(proc.Body); err != nil {
		return Null(), err
	}
	return fr.result, nil
}

func (vm *VM) current() *frame {
	if len(vm.stack) == 0 {
		return nil
	}
	return vm.stack[len(vm.stack)-1]
}

// resultFrame returns the current frame when name refers to its Function
// result slot.
func (vm *VM) resultFrame(name string) *frame {
	fr := vm.current()
	if fr == nil || fr.proc.Kind != ast.FunctionProc {
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(name), fr.proc.Name) {
		return fr
	}
	return nil
}

func (vm *VM) procName() string {
	if fr := vm.current(); fr != nil {
		return fr.proc.Name
	}
	return "Main"
}

func (vm *VM) logFailure(proc string, err error) {
	re := classify(err)
	vm.logger.Debug("runtime error", "proc", proc, "line", re.Line, "kind", re.Kind.String(), "err", re.Msg)
}
