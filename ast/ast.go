package ast

import "strings"

type Program struct {
	Procedures map[string]*Procedure
	Order      []string
	Main       *Block
}

// Lookup finds a procedure by name, ignoring case.
func (p *Program) Lookup(name string) *Procedure {
	if p == nil {
		return nil
	}
	return p.Procedures[strings.ToLower(strings.TrimSpace(name))]
}

type ProcKind int

const (
	SubProc ProcKind = iota
	FunctionProc
)

func (k ProcKind) String() string {
	if k == FunctionProc {
		return "Function"
	}
	return "Sub"
}

type Procedure struct {
	Name string
	Kind ProcKind
	Body *Block
	Line int
}

type Block struct {
	Statements []Statement
}

type Statement interface {
	isStatement()
	StmtLine() int
}

type Pos struct {
	Line int
}

func (p Pos) StmtLine() int { return p.Line }

type DimStmt struct {
	Pos
	Names []string
}

func (DimStmt) isStatement() {}

type AssignStmt struct {
	Pos
	Target Expr
	Expr   Expr
}

func (AssignStmt) isStatement() {}

type IfStmt struct {
	Pos
	Branches []IfBranch
	Else     *Block
	Inline   bool
}

func (IfStmt) isStatement() {}

type IfBranch struct {
	Cond Expr
	Body *Block
}

type WhileStmt struct {
	Pos
	Cond Expr
	Body *Block
}

func (WhileStmt) isStatement() {}

type LoopCondKind int

const (
	LoopForever LoopCondKind = iota
	LoopWhile
	LoopUntil
)

type DoLoopStmt struct {
	Pos
	Body     *Block
	Cond     Expr
	CondKind LoopCondKind
	PostTest bool
}

func (DoLoopStmt) isStatement() {}

type ExitKind int

const (
	ExitDo ExitKind = iota
	ExitWhile
	ExitSub
	ExitFunction
)

func (k ExitKind) String() string {
	switch k {
	case ExitWhile:
		return "While"
	case ExitSub:
		return "Sub"
	case ExitFunction:
		return "Function"
	default:
		return "Do"
	}
}

type ExitStmt struct {
	Pos
	Kind ExitKind
}

func (ExitStmt) isStatement() {}

// ExprStmt is a bare call used as a statement.
type ExprStmt struct {
	Pos
	Call CallExpr
}

func (ExprStmt) isStatement() {}

type Expr interface {
	isExpr()
}

type LitKind int

const (
	StringLit LitKind = iota
	NumberLit
	BoolLit
)

type Literal struct {
	Kind LitKind
	Str  string
	Num  float64
	Bool bool
	Raw  string
}

func (Literal) isExpr() {}

type Variable struct {
	Name string
}

func (Variable) isExpr() {}

type PropertyAccess struct {
	Base Expr
	Name string
}

func (PropertyAccess) isExpr() {}

type IndexAccess struct {
	Base  Expr
	Index Expr
}

func (IndexAccess) isExpr() {}

type CallExpr struct {
	Name   string
	Args   []Expr
	Parens bool
	Line   int
}

func (CallExpr) isExpr() {}

type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
}

func (BinaryOp) isExpr() {}

type UnaryOp struct {
	Op   string
	Expr Expr
}

func (UnaryOp) isExpr() {}

// Paren records explicit grouping so the printer can reproduce it.
type Paren struct {
	Expr Expr
}

func (Paren) isExpr() {}

// RootVariable walks a property/index chain down to its base variable.
func RootVariable(e Expr) (Variable, bool) {
	for {
		switch ex := e.(type) {
		case Variable:
			return ex, true
		case PropertyAccess:
			e = ex.Base
		case IndexAccess:
			e = ex.Base
		default:
			return Variable{}, false
		}
	}
}

// ChildBlocks returns the nested blocks of a statement in source order.
func ChildBlocks(stmt Statement) []*Block {
	switch s := stmt.(type) {
	case IfStmt:
		ret := make([]*Block, 0, len(s.Branches)+1)
		for _, br := range s.Branches {
			ret = append(ret, br.Body)
		}
		if s.Else != nil {
			ret = append(ret, s.Else)
		}
		return ret
	case WhileStmt:
		return []*Block{s.Body}
	case DoLoopStmt:
		return []*Block{s.Body}
	default:
		return nil
	}
}
