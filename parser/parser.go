package parser

import (
	"fmt"
	"strings"

	"github.com/gosuda/vbjson/ast"
)

// ParseSource tokenizes and parses a complete script.
func ParseSource(src string) (*ast.Program, error) {
	return Parse(Tokenize(src))
}

// Parse builds a Program from a token stream. Sub and Function declarations
// are collected into the procedure table; anything else at top level becomes
// part of Program.Main.
func Parse(tokens []Token) (*ast.Program, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(append([]Token(nil), tokens...), Token{Kind: EOF, Line: line})
	}
	p := &parser{
		toks: tokens,
		prog: &ast.Program{
			Procedures: map[string]*ast.Procedure{},
			Main:       &ast.Block{},
		},
	}
	if err := p.parseProgram(); err != nil {
		return nil, err
	}
	return p.prog, nil
}

type blockKind int

const (
	blockSub blockKind = iota
	blockFunction
	blockIf
	blockWhile
	blockDo
)

func (k blockKind) terminator() string {
	switch k {
	case blockSub:
		return "End Sub"
	case blockFunction:
		return "End Function"
	case blockIf:
		return "End If"
	case blockWhile:
		return "Wend"
	default:
		return "Loop"
	}
}

type openBlock struct {
	kind  blockKind
	line  int
	label string
}

type parser struct {
	toks   []Token
	pos    int
	depth  int
	blocks []openBlock
	prog   *ast.Program
}

func (p *parser) peek() Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) push(kind blockKind, line int, label string) {
	p.blocks = append(p.blocks, openBlock{kind: kind, line: line, label: label})
}

func (p *parser) pop() {
	p.blocks = p.blocks[:len(p.blocks)-1]
}

func (p *parser) inside(kind blockKind) bool {
	for i := len(p.blocks) - 1; i >= 0; i-- {
		if p.blocks[i].kind == kind {
			return true
		}
	}
	return false
}

func (p *parser) isEnd(kw string) bool {
	return p.peek().Is("end") && p.peekAt(1).Is(kw)
}

func (p *parser) isCloser(tok Token) bool {
	return tok.Is("end") || tok.Is("wend") || tok.Is("loop") || tok.Is("else") || tok.Is("elseif")
}

func (p *parser) closerText(tok Token) string {
	if tok.Is("end") && p.peekAt(1).Kind == Keyword {
		return "End " + p.peekAt(1).Lit
	}
	return tok.describe()
}

func (p *parser) mismatch(tok Token) error {
	if len(p.blocks) == 0 {
		return syntaxErrorf(tok.Line, "%s without a matching block", p.closerText(tok))
	}
	top := p.blocks[len(p.blocks)-1]
	return &SyntaxError{
		Line:     tok.Line,
		Expected: fmt.Sprintf("%s to close %s at line %d", top.kind.terminator(), top.label, top.line),
		Found:    p.closerText(tok),
	}
}

func (p *parser) atLineEnd() bool {
	t := p.peek()
	return t.Kind == Newline || t.Kind == EOF || t.IsPunct(":")
}

func (p *parser) expectLineEnd() error {
	if !p.atLineEnd() {
		return expected(p.peek(), "end of line")
	}
	return nil
}

func (p *parser) skipTerminators() {
	for {
		t := p.peek()
		if t.Kind != Newline && !t.IsPunct(":") {
			return
		}
		p.next()
	}
}

func (p *parser) endStatement() error {
	t := p.peek()
	switch {
	case t.Kind == EOF:
		return nil
	case t.Kind == Newline || t.IsPunct(":"):
		p.next()
		return nil
	default:
		return expected(t, "end of statement")
	}
}

func (p *parser) parseProgram() error {
	for {
		p.skipTerminators()
		tok := p.peek()
		switch {
		case tok.Kind == EOF:
			return nil
		case tok.Is("sub") || tok.Is("function"):
			if err := p.parseProcedure(); err != nil {
				return err
			}
		case p.isCloser(tok):
			return p.mismatch(tok)
		default:
			st, err := p.parseStatement()
			if err != nil {
				return err
			}
			p.prog.Main.Statements = append(p.prog.Main.Statements, st)
		}
		if err := p.endStatement(); err != nil {
			return err
		}
	}
}

func (p *parser) parseProcedure() error {
	head := p.next()
	kind, bk := ast.SubProc, blockSub
	if head.Is("function") {
		kind, bk = ast.FunctionProc, blockFunction
	}
	nameTok := p.next()
	if nameTok.Kind != Ident {
		return expected(nameTok, kind.String()+" name")
	}
	if p.peek().IsPunct("(") {
		p.next()
		if !p.peek().IsPunct(")") {
			return syntaxErrorf(p.peek().Line, "%s %s: parameters are not supported", kind, nameTok.Lit)
		}
		p.next()
	}
	if kind == ast.FunctionProc && p.peek().Is("as") {
		p.next()
		if t := p.next(); t.Kind != Ident {
			return expected(t, "type name")
		}
	}
	if err := p.expectLineEnd(); err != nil {
		return err
	}
	key := strings.ToLower(nameTok.Lit)
	if prev, ok := p.prog.Procedures[key]; ok {
		return syntaxErrorf(nameTok.Line, "duplicate procedure %s (first declared at line %d)", nameTok.Lit, prev.Line)
	}

	p.push(bk, head.Line, kind.String()+" "+nameTok.Lit)
	body, err := p.parseBlock()
	if err != nil {
		return err
	}
	want := strings.ToLower(kind.String())
	if !p.isEnd(want) {
		return p.mismatch(p.peek())
	}
	p.next()
	p.next()
	p.pop()

	p.prog.Procedures[key] = &ast.Procedure{Name: nameTok.Lit, Kind: kind, Body: body, Line: head.Line}
	p.prog.Order = append(p.prog.Order, key)
	return nil
}

// parseBlock collects statements until a closing keyword or end of input.
// The caller decides whether that closer is the one it was waiting for.
func (p *parser) parseBlock() (*ast.Block, error) {
	blk := &ast.Block{}
	for {
		p.skipTerminators()
		tok := p.peek()
		if tok.Kind == EOF || p.isCloser(tok) {
			return blk, nil
		}
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		blk.Statements = append(blk.Statements, st)
		if err := p.endStatement(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseStatement() (ast.Statement, error) {
	tok := p.peek()
	switch {
	case tok.Is("dim"):
		return p.parseDim()
	case tok.Is("if"):
		return p.parseIf()
	case tok.Is("while"):
		return p.parseWhile()
	case tok.Is("do"):
		return p.parseDo()
	case tok.Is("exit"):
		return p.parseExit()
	case tok.Is("call"):
		p.next()
		name := p.next()
		if name.Kind != Ident {
			return nil, expected(name, "procedure name after Call")
		}
		call := ast.CallExpr{Name: name.Lit, Line: name.Line}
		if p.peek().IsPunct("(") {
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			call.Args = args
			call.Parens = true
		}
		return ast.ExprStmt{Pos: ast.Pos{Line: tok.Line}, Call: call}, nil
	case tok.Is("sub") || tok.Is("function"):
		return nil, syntaxErrorf(tok.Line, "%s declarations are only allowed at top level", tok.Lit)
	case tok.Kind == Ident:
		return p.parseSimple()
	default:
		return nil, expected(tok, "statement")
	}
}

func (p *parser) parseDim() (ast.Statement, error) {
	head := p.next()
	st := ast.DimStmt{Pos: ast.Pos{Line: head.Line}}
	for {
		name := p.next()
		if name.Kind != Ident {
			return nil, expected(name, "variable name")
		}
		st.Names = append(st.Names, name.Lit)
		if p.peek().Is("as") {
			p.next()
			if t := p.next(); t.Kind != Ident {
				return nil, expected(t, "type name")
			}
			for p.peek().IsPunct(".") {
				p.next()
				if t := p.next(); t.Kind != Ident {
					return nil, expected(t, "type name")
				}
			}
		}
		if !p.peek().IsPunct(",") {
			return st, nil
		}
		p.next()
	}
}

func (p *parser) parseIf() (ast.Statement, error) {
	head := p.next()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.peek().Is("then") {
		return nil, expected(p.peek(), "Then")
	}
	p.next()
	if !p.atLineEnd() {
		return p.parseInlineIf(head, cond)
	}

	p.push(blockIf, head.Line, "If")
	st := ast.IfStmt{Pos: ast.Pos{Line: head.Line}}
	inElse := false
	for {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if inElse {
			st.Else = body
		} else {
			st.Branches = append(st.Branches, ast.IfBranch{Cond: cond, Body: body})
		}
		tok := p.peek()
		switch {
		case tok.Is("elseif"):
			if inElse {
				return nil, syntaxErrorf(tok.Line, "ElseIf after Else in If opened at line %d", head.Line)
			}
			p.next()
			if cond, err = p.parseExpr(); err != nil {
				return nil, err
			}
			if !p.peek().Is("then") {
				return nil, expected(p.peek(), "Then")
			}
			p.next()
			if err := p.expectLineEnd(); err != nil {
				return nil, err
			}
		case tok.Is("else"):
			if inElse {
				return nil, syntaxErrorf(tok.Line, "duplicate Else in If opened at line %d", head.Line)
			}
			p.next()
			inElse = true
			if err := p.expectLineEnd(); err != nil {
				return nil, err
			}
		case p.isEnd("if"):
			p.next()
			p.next()
			p.pop()
			return st, nil
		default:
			return nil, p.mismatch(tok)
		}
	}
}

func (p *parser) parseInlineIf(head Token, cond ast.Expr) (ast.Statement, error) {
	then, err := p.parseInlineBody()
	if err != nil {
		return nil, err
	}
	st := ast.IfStmt{
		Pos:      ast.Pos{Line: head.Line},
		Branches: []ast.IfBranch{{Cond: cond, Body: then}},
		Inline:   true,
	}
	if p.peek().Is("else") {
		p.next()
		if st.Else, err = p.parseInlineBody(); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// parseInlineBody reads the `:`-joined statements of one single-line If
// branch. The branch ends at Else or at the end of the physical line.
func (p *parser) parseInlineBody() (*ast.Block, error) {
	blk := &ast.Block{}
	for {
		st, err := p.parseInlineStatement()
		if err != nil {
			return nil, err
		}
		blk.Statements = append(blk.Statements, st)
		if !p.peek().IsPunct(":") {
			return blk, nil
		}
		for p.peek().IsPunct(":") {
			p.next()
		}
		if t := p.peek(); t.Kind == Newline || t.Kind == EOF || t.Is("else") {
			return blk, nil
		}
	}
}

func (p *parser) parseInlineStatement() (ast.Statement, error) {
	tok := p.peek()
	if tok.Is("if") || tok.Is("while") || tok.Is("do") {
		return nil, syntaxErrorf(tok.Line, "%s block is not allowed in a single-line If", tok.Lit)
	}
	return p.parseStatement()
}

func (p *parser) parseWhile() (ast.Statement, error) {
	head := p.next()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectLineEnd(); err != nil {
		return nil, err
	}
	p.push(blockWhile, head.Line, "While")
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if !p.peek().Is("wend") {
		return nil, p.mismatch(p.peek())
	}
	p.next()
	p.pop()
	return ast.WhileStmt{Pos: ast.Pos{Line: head.Line}, Cond: cond, Body: body}, nil
}

func (p *parser) loopCondition() (ast.LoopCondKind, ast.Expr, error) {
	kind := ast.LoopForever
	switch {
	case p.peek().Is("while"):
		kind = ast.LoopWhile
	case p.peek().Is("until"):
		kind = ast.LoopUntil
	default:
		return kind, nil, nil
	}
	p.next()
	cond, err := p.parseExpr()
	if err != nil {
		return 0, nil, err
	}
	return kind, cond, nil
}

func (p *parser) parseDo() (ast.Statement, error) {
	head := p.next()
	st := ast.DoLoopStmt{Pos: ast.Pos{Line: head.Line}}
	kind, cond, err := p.loopCondition()
	if err != nil {
		return nil, err
	}
	st.CondKind, st.Cond = kind, cond
	if err := p.expectLineEnd(); err != nil {
		return nil, err
	}
	p.push(blockDo, head.Line, "Do")
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st.Body = body
	loopTok := p.peek()
	if !loopTok.Is("loop") {
		return nil, p.mismatch(loopTok)
	}
	p.next()
	kind, cond, err = p.loopCondition()
	if err != nil {
		return nil, err
	}
	if kind != ast.LoopForever {
		if st.CondKind != ast.LoopForever {
			return nil, syntaxErrorf(loopTok.Line, "Do loop opened at line %d has both a Do and a Loop condition", head.Line)
		}
		st.CondKind, st.Cond, st.PostTest = kind, cond, true
	}
	p.pop()
	return st, nil
}

func (p *parser) parseExit() (ast.Statement, error) {
	head := p.next()
	tok := p.next()
	var kind ast.ExitKind
	var need blockKind
	switch {
	case tok.Is("do"):
		kind, need = ast.ExitDo, blockDo
	case tok.Is("while"):
		kind, need = ast.ExitWhile, blockWhile
	case tok.Is("sub"):
		kind, need = ast.ExitSub, blockSub
	case tok.Is("function"):
		kind, need = ast.ExitFunction, blockFunction
	default:
		return nil, expected(tok, "Do, While, Sub or Function after Exit")
	}
	if !p.inside(need) {
		return nil, syntaxErrorf(head.Line, "Exit %s outside of a %s block", kind, kind)
	}
	return ast.ExitStmt{Pos: ast.Pos{Line: head.Line}, Kind: kind}, nil
}

// parseSimple handles statements that start with an identifier: assignments,
// the three call forms `Name`, `Name(args)` and `Name arg, arg`, and method
// calls `Obj.Method arg, arg`.
func (p *parser) parseSimple() (ast.Statement, error) {
	start := p.pos
	head := p.peek()
	target, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	pos := ast.Pos{Line: head.Line}

	if p.peek().IsPunct("=") {
		if _, ok := ast.RootVariable(target); !ok {
			return nil, syntaxErrorf(head.Line, "cannot assign to %s", ast.FormatExpr(target))
		}
		p.next()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.AssignStmt{Pos: pos, Target: target, Expr: value}, nil
	}

	switch t := target.(type) {
	case ast.Variable:
		call := ast.CallExpr{Name: t.Name, Line: head.Line}
		if !p.atStatementEnd() {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			call.Args = args
		}
		return ast.ExprStmt{Pos: pos, Call: call}, nil
	case ast.CallExpr:
		if p.atStatementEnd() {
			return ast.ExprStmt{Pos: pos, Call: t}, nil
		}
		// `Name (a) & b, c`: the parenthesised group was the first argument
		// of a bare call, not a call argument list.
		p.pos = start + 1
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return ast.ExprStmt{Pos: pos, Call: ast.CallExpr{Name: t.Name, Args: args, Line: head.Line}}, nil
	case ast.PropertyAccess:
		// `Obj.Method args` is a host call named "Obj.Method".
		obj, ok := t.Base.(ast.Variable)
		if !ok {
			return nil, expected(p.peek(), "'=' after "+ast.FormatExpr(target))
		}
		call := ast.CallExpr{Name: obj.Name + "." + t.Name, Line: head.Line}
		switch {
		case p.peek().IsPunct("("):
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			call.Args, call.Parens = args, true
		case !p.atStatementEnd():
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			call.Args = args
		}
		return ast.ExprStmt{Pos: pos, Call: call}, nil
	default:
		return nil, expected(p.peek(), "'=' after "+ast.FormatExpr(target))
	}
}

func (p *parser) atStatementEnd() bool {
	return p.atLineEnd() || p.peek().Is("else")
}
