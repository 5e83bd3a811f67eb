package parser

import (
	"fmt"
	"strings"
)

type Kind int

const (
	EOF Kind = iota
	Newline
	Keyword
	Ident
	Number
	String
	Operator
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case Newline:
		return "newline"
	case Keyword:
		return "keyword"
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case Operator:
		return "operator"
	default:
		return "punctuation"
	}
}

// Token is one lexeme. Lit keeps the source spelling; for String tokens it
// holds the decoded contents.
type Token struct {
	Kind Kind
	Lit  string
	Line int
}

// Is reports whether the token is the given keyword, ignoring case.
func (t Token) Is(kw string) bool {
	return t.Kind == Keyword && strings.EqualFold(t.Lit, kw)
}

// IsPunct reports whether the token is the given punctuation or operator.
func (t Token) IsPunct(p string) bool {
	return (t.Kind == Punct || t.Kind == Operator) && t.Lit == p
}

func (t Token) describe() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case Newline:
		return "end of line"
	case String:
		return fmt.Sprintf("string %q", t.Lit)
	default:
		return fmt.Sprintf("%q", t.Lit)
	}
}

var keywords = map[string]struct{}{
	"sub":      {},
	"end":      {},
	"function": {},
	"if":       {},
	"then":     {},
	"elseif":   {},
	"else":     {},
	"while":    {},
	"wend":     {},
	"do":       {},
	"loop":     {},
	"dim":      {},
	"exit":     {},
	"until":    {},
	"as":       {},
	"call":     {},
	"true":     {},
	"false":    {},
}

func isKeyword(word string) bool {
	_, ok := keywords[strings.ToLower(word)]
	return ok
}
