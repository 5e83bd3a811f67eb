package vbruntime

import (
	"strings"

	"github.com/gosuda/vbjson/ast"
)

type resultKind int

const (
	resultNone resultKind = iota
	resultExitDo
	resultExitWhile
	resultExitProc
)

type execResult struct {
	kind resultKind
}

func (vm *VM) runBlock(block *ast.Block) (execResult, error) {
	if block == nil {
		return execResult{}, nil
	}
	for _, stmt := range block.Statements {
		res, err := vm.runStatement(stmt)
		if err != nil {
			return execResult{}, locate(err, stmt.StmtLine(), vm.procName())
		}
		if res.kind != resultNone {
			return res, nil
		}
	}
	return execResult{}, nil
}

func (vm *VM) runStatement(stmt ast.Statement) (execResult, error) {
	switch s := stmt.(type) {
	case ast.DimStmt:
		for _, name := range s.Names {
			if vm.resultFrame(name) != nil {
				continue
			}
			vm.env.Declare(name)
		}
		return execResult{}, nil
	case ast.AssignStmt:
		v, err := vm.evalExpr(s.Expr)
		if err != nil {
			return execResult{}, err
		}
		return execResult{}, vm.assign(s.Target, v)
	case ast.IfStmt:
		for _, br := range s.Branches {
			cond, err := vm.evalExpr(br.Cond)
			if err != nil {
				return execResult{}, err
			}
			if cond.Truthy() {
				return vm.runBlock(br.Body)
			}
		}
		return vm.runBlock(s.Else)
	case ast.WhileStmt:
		for {
			cond, err := vm.evalExpr(s.Cond)
			if err != nil {
				return execResult{}, err
			}
			if !cond.Truthy() {
				return execResult{}, nil
			}
			res, err := vm.runBlock(s.Body)
			if err != nil {
				return execResult{}, err
			}
			switch res.kind {
			case resultNone:
			case resultExitWhile:
				return execResult{}, nil
			default:
				return res, nil
			}
		}
	case ast.DoLoopStmt:
		return vm.runDoLoop(s)
	case ast.ExitStmt:
		switch s.Kind {
		case ast.ExitDo:
			return execResult{kind: resultExitDo}, nil
		case ast.ExitWhile:
			return execResult{kind: resultExitWhile}, nil
		default:
			return execResult{kind: resultExitProc}, nil
		}
	case ast.ExprStmt:
		return execResult{}, vm.runCallStmt(s.Call)
	default:
		return execResult{}, newError(InvalidCall, "unsupported statement %T", stmt)
	}
}

// runDoLoop runs a Do...Loop. Besides its own While/Until condition and
// Exit Do, the loop stops after any iteration during which the host called
// RequestLoopExit.
func (vm *VM) runDoLoop(s ast.DoLoopStmt) (execResult, error) {
	for {
		if !s.PostTest {
			ok, err := vm.loopContinues(s)
			if err != nil {
				return execResult{}, err
			}
			if !ok {
				return execResult{}, nil
			}
		}
		res, err := vm.runBlock(s.Body)
		if err != nil {
			return execResult{}, err
		}
		switch res.kind {
		case resultNone:
		case resultExitDo:
			return execResult{}, nil
		default:
			return res, nil
		}
		if vm.loopExit.IsSet() {
			vm.loopExit.UnSet()
			vm.logger.Debug("loop exit requested", "proc", vm.procName(), "line", s.Line)
			return execResult{}, nil
		}
		if s.PostTest {
			ok, err := vm.loopContinues(s)
			if err != nil {
				return execResult{}, err
			}
			if !ok {
				return execResult{}, nil
			}
		}
	}
}

func (vm *VM) loopContinues(s ast.DoLoopStmt) (bool, error) {
	switch s.CondKind {
	case ast.LoopWhile:
		v, err := vm.evalExpr(s.Cond)
		if err != nil {
			return false, err
		}
		return v.Truthy(), nil
	case ast.LoopUntil:
		v, err := vm.evalExpr(s.Cond)
		if err != nil {
			return false, err
		}
		return !v.Truthy(), nil
	default:
		return true, nil
	}
}

// runCallStmt runs a bare call. JsonSet and JsonPush used as statements
// store their result back into an assignable first argument.
func (vm *VM) runCallStmt(call ast.CallExpr) error {
	v, err := vm.evalCall(call, true)
	if err != nil {
		return err
	}
	switch strings.ToLower(call.Name) {
	case "jsonset", "jsonpush":
		if len(call.Args) == 0 || !vm.isBuiltin(call.Name) {
			return nil
		}
		if _, ok := ast.RootVariable(call.Args[0]); ok {
			return vm.assign(call.Args[0], v)
		}
	}
	return nil
}
