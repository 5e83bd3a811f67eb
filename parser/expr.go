package parser

import (
	"strconv"

	"github.com/gosuda/vbjson/ast"
)

const maxExprDepth = 256

// parseExpr folds a flat run of operands and binary operators strictly left
// to right: `a + b * c` is `(a + b) * c`. Parentheses are the only way to
// group differently.
func (p *parser) parseExpr() (ast.Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxExprDepth {
		return nil, syntaxErrorf(p.peek().Line, "expression nesting too deep")
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == Operator {
		op := p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryOp{Op: op.Lit, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseOperand() (ast.Expr, error) {
	tok := p.next()
	switch {
	case tok.Kind == Number:
		v, err := strconv.ParseFloat(tok.Lit, 64)
		if err != nil {
			return nil, syntaxErrorf(tok.Line, "invalid number %q", tok.Lit)
		}
		return ast.Literal{Kind: ast.NumberLit, Num: v, Raw: tok.Lit}, nil
	case tok.Kind == String:
		return ast.Literal{Kind: ast.StringLit, Str: tok.Lit}, nil
	case tok.Is("true"):
		return ast.Literal{Kind: ast.BoolLit, Bool: true}, nil
	case tok.Is("false"):
		return ast.Literal{Kind: ast.BoolLit, Bool: false}, nil
	case tok.IsPunct("-"):
		inner, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{Op: "-", Expr: inner}, nil
	case tok.IsPunct("("):
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); !t.IsPunct(")") {
			return nil, expected(t, "')'")
		}
		return p.parsePostfix(ast.Paren{Expr: inner})
	case tok.Kind == Ident:
		if p.peek().IsPunct("(") {
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return p.parsePostfix(ast.CallExpr{Name: tok.Lit, Args: args, Parens: true, Line: tok.Line})
		}
		return p.parsePostfix(ast.Variable{Name: tok.Lit})
	default:
		return nil, expected(tok, "expression")
	}
}

// parsePostfix wraps base in PropertyAccess/IndexAccess nodes for each
// `.name` and `[index]` that follows.
func (p *parser) parsePostfix(base ast.Expr) (ast.Expr, error) {
	for {
		switch {
		case p.peek().IsPunct("."):
			p.next()
			name := p.next()
			if name.Kind != Ident && name.Kind != Keyword {
				return nil, expected(name, "property name")
			}
			base = ast.PropertyAccess{Base: base, Name: name.Lit}
		case p.peek().IsPunct("["):
			p.next()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if t := p.next(); !t.IsPunct("]") {
				return nil, expected(t, "']'")
			}
			base = ast.IndexAccess{Base: base, Index: idx}
		default:
			return base, nil
		}
	}
}

func (p *parser) parseCallArgs() ([]ast.Expr, error) {
	p.next()
	if p.peek().IsPunct(")") {
		p.next()
		return nil, nil
	}
	var args []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		t := p.next()
		if t.IsPunct(")") {
			return args, nil
		}
		if !t.IsPunct(",") {
			return nil, expected(t, "',' or ')'")
		}
	}
}

func (p *parser) parseArgList() ([]ast.Expr, error) {
	var args []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if !p.peek().IsPunct(",") {
			return args, nil
		}
		p.next()
	}
}
