// Package vbjson compiles VB-style scripts whose data lives in ordered JSON
// documents.
package vbjson

import (
	"fmt"
	"os"

	"github.com/gosuda/vbjson/ast"
	"github.com/gosuda/vbjson/parser"
	vbruntime "github.com/gosuda/vbjson/runtime"
)

// Compile parses src and builds a VM for it. Top-level statements do not
// run until the VM's Run or RunMain is called.
func Compile(src string, opts ...vbruntime.Option) (*vbruntime.VM, error) {
	program, err := parser.ParseSource(src)
	if err != nil {
		return nil, err
	}
	return vbruntime.New(program, opts...)
}

// CompileFile is Compile for a script on disk.
func CompileFile(path string, opts ...vbruntime.Option) (*vbruntime.VM, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Compile(string(b), opts...)
}

// Parse only returns the program, for tooling.
func Parse(src string) (*ast.Program, error) {
	return parser.ParseSource(src)
}
