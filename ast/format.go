package ast

import (
	"strconv"
	"strings"
)

// Format renders a program back into canonical source. Parsing the result
// yields a tree with the same block nesting.
func Format(p *Program) string {
	pr := &printer{}
	if p.Main != nil && len(p.Main.Statements) > 0 {
		pr.block(p.Main)
		pr.b.WriteString("\n")
	}
	for i, name := range p.Order {
		proc := p.Procedures[name]
		if proc == nil {
			continue
		}
		if i > 0 {
			pr.b.WriteString("\n")
		}
		pr.line(proc.Kind.String() + " " + proc.Name + "()")
		pr.depth++
		pr.block(proc.Body)
		pr.depth--
		pr.line("End " + proc.Kind.String())
	}
	return pr.b.String()
}

// FormatExpr renders a single expression.
func FormatExpr(e Expr) string {
	switch ex := e.(type) {
	case Literal:
		switch ex.Kind {
		case NumberLit:
			if ex.Raw != "" {
				return ex.Raw
			}
			return strconv.FormatFloat(ex.Num, 'f', -1, 64)
		case BoolLit:
			if ex.Bool {
				return "True"
			}
			return "False"
		default:
			return `"` + strings.ReplaceAll(ex.Str, `"`, `""`) + `"`
		}
	case Variable:
		return ex.Name
	case PropertyAccess:
		return FormatExpr(ex.Base) + "." + ex.Name
	case IndexAccess:
		return FormatExpr(ex.Base) + "[" + FormatExpr(ex.Index) + "]"
	case CallExpr:
		return ex.Name + "(" + formatArgs(ex.Args) + ")"
	case BinaryOp:
		right := FormatExpr(ex.Right)
		if _, ok := ex.Right.(BinaryOp); ok {
			right = "(" + right + ")"
		}
		return FormatExpr(ex.Left) + " " + ex.Op + " " + right
	case UnaryOp:
		return ex.Op + FormatExpr(ex.Expr)
	case Paren:
		return "(" + FormatExpr(ex.Expr) + ")"
	default:
		return ""
	}
}

func formatArgs(args []Expr) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, FormatExpr(a))
	}
	return strings.Join(parts, ", ")
}

type printer struct {
	b     strings.Builder
	depth int
}

func (p *printer) line(s string) {
	p.b.WriteString(strings.Repeat("    ", p.depth))
	p.b.WriteString(s)
	p.b.WriteString("\n")
}

func (p *printer) block(b *Block) {
	if b == nil {
		return
	}
	for _, st := range b.Statements {
		p.stmt(st)
	}
}

func (p *printer) nested(b *Block) {
	p.depth++
	p.block(b)
	p.depth--
}

func (p *printer) stmt(st Statement) {
	switch s := st.(type) {
	case DimStmt:
		p.line("Dim " + strings.Join(s.Names, ", "))
	case AssignStmt:
		p.line(FormatExpr(s.Target) + " = " + FormatExpr(s.Expr))
	case ExprStmt:
		p.line(FormatExpr(s.Call))
	case ExitStmt:
		p.line("Exit " + s.Kind.String())
	case IfStmt:
		for i, br := range s.Branches {
			kw := "If "
			if i > 0 {
				kw = "ElseIf "
			}
			p.line(kw + FormatExpr(br.Cond) + " Then")
			p.nested(br.Body)
		}
		if s.Else != nil && len(s.Else.Statements) > 0 {
			p.line("Else")
			p.nested(s.Else)
		}
		p.line("End If")
	case WhileStmt:
		p.line("While " + FormatExpr(s.Cond))
		p.nested(s.Body)
		p.line("Wend")
	case DoLoopStmt:
		head, tail := "Do", "Loop"
		if s.CondKind != LoopForever {
			cond := loopKeyword(s.CondKind) + " " + FormatExpr(s.Cond)
			if s.PostTest {
				tail += " " + cond
			} else {
				head += " " + cond
			}
		}
		p.line(head)
		p.nested(s.Body)
		p.line(tail)
	}
}

func loopKeyword(k LoopCondKind) string {
	if k == LoopUntil {
		return "Until"
	}
	return "While"
}
