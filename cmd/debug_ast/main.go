package main

import (
	"fmt"
	"os"

	"github.com/gosuda/vbjson/ast"
	"github.com/gosuda/vbjson/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: debug_ast script.vb [-tokens]")
		os.Exit(2)
	}
	b, err := os.ReadFile(os.Args[1])
	if err != nil {
		panic(err)
	}
	src := string(b)

	if len(os.Args) > 2 && os.Args[2] == "-tokens" {
		for i, tok := range parser.Tokenize(src) {
			fmt.Printf("%4d line %-4d %-12s %q\n", i, tok.Line, tok.Kind, tok.Lit)
		}
		return
	}

	prog, err := parser.ParseSource(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if prog.Main != nil {
		fmt.Printf("main stmts=%d\n", len(prog.Main.Statements))
	}
	for _, key := range prog.Order {
		proc := prog.Procedures[key]
		fmt.Printf("%s %s stmts=%d\n", proc.Kind, proc.Name, len(proc.Body.Statements))
		for i, st := range proc.Body.Statements {
			switch s := st.(type) {
			case ast.IfStmt:
				fmt.Printf("  pc %d If branches=%d else=%v\n", i, len(s.Branches), s.Else != nil)
			case ast.AssignStmt:
				fmt.Printf("  pc %d Assign %s\n", i, ast.FormatExpr(s.Target))
			case ast.DoLoopStmt:
				fmt.Printf("  pc %d Do body=%d\n", i, len(s.Body.Statements))
			case ast.ExprStmt:
				fmt.Printf("  pc %d Call %s\n", i, ast.FormatExpr(s.Call))
			default:
				fmt.Printf("  pc %d %T\n", i, st)
			}
		}
	}
	fmt.Println("----")
	fmt.Print(ast.Format(prog))
}
