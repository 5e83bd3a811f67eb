package parser

import (
	"strings"
	"unicode"
)

// Tokenize converts source text into tokens. It never fails: characters it
// does not recognise come back as single-character Punct tokens, and an
// unterminated string literal degrades to a lone `"` token.
func Tokenize(src string) []Token {
	lx := &lexer{src: []rune(src), line: 1}
	lx.run()
	return lx.toks
}

type lexer struct {
	src  []rune
	pos  int
	line int
	toks []Token
}

func (lx *lexer) emit(kind Kind, lit string) {
	lx.toks = append(lx.toks, Token{Kind: kind, Lit: lit, Line: lx.line})
}

func (lx *lexer) run() {
	r := lx.src
	for lx.pos < len(r) {
		ch := r[lx.pos]
		switch {
		case ch == '\n':
			lx.emit(Newline, "\n")
			lx.line++
			lx.pos++
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f':
			lx.pos++
		case ch == '\'':
			for lx.pos < len(r) && r[lx.pos] != '\n' {
				lx.pos++
			}
		case ch == '"':
			lx.lexString()
		case isDigit(ch):
			lx.lexNumber()
		case isIdentStart(ch):
			lx.lexWord()
		default:
			lx.lexOperator()
		}
	}
	lx.emit(EOF, "")
}

func (lx *lexer) lexString() {
	r := lx.src
	var b strings.Builder
	for j := lx.pos + 1; j < len(r); j++ {
		c := r[j]
		if c == '\n' {
			break
		}
		if c != '"' {
			b.WriteRune(c)
			continue
		}
		if j+1 < len(r) && r[j+1] == '"' {
			b.WriteRune('"')
			j++
			continue
		}
		lx.emit(String, b.String())
		lx.pos = j + 1
		return
	}
	lx.emit(Punct, `"`)
	lx.pos++
}

func (lx *lexer) lexNumber() {
	r := lx.src
	j := lx.pos
	for j < len(r) && isDigit(r[j]) {
		j++
	}
	if j+1 < len(r) && r[j] == '.' && isDigit(r[j+1]) {
		j++
		for j < len(r) && isDigit(r[j]) {
			j++
		}
	}
	lx.emit(Number, string(r[lx.pos:j]))
	lx.pos = j
}

func (lx *lexer) lexWord() {
	r := lx.src
	j := lx.pos + 1
	for j < len(r) && isIdentPart(r[j]) {
		j++
	}
	word := string(r[lx.pos:j])
	if word == "_" && lx.continuesLine(j) {
		return
	}
	if isKeyword(word) {
		lx.emit(Keyword, word)
	} else {
		lx.emit(Ident, word)
	}
	lx.pos = j
}

// continuesLine handles a trailing ` _`: when only blanks follow up to the
// newline, the newline is swallowed and lexing resumes on the next line.
func (lx *lexer) continuesLine(from int) bool {
	r := lx.src
	k := from
	for k < len(r) && (r[k] == ' ' || r[k] == '\t' || r[k] == '\r') {
		k++
	}
	if k < len(r) && r[k] != '\n' {
		return false
	}
	if k < len(r) {
		k++
		lx.line++
	}
	lx.pos = k
	return true
}

func (lx *lexer) lexOperator() {
	r := lx.src
	if lx.pos+1 < len(r) {
		two := string(r[lx.pos : lx.pos+2])
		switch two {
		case "<>", "<=", ">=":
			lx.emit(Operator, two)
			lx.pos += 2
			return
		}
	}
	ch := r[lx.pos]
	switch ch {
	case '&', '+', '-', '*', '/', '=', '<', '>':
		lx.emit(Operator, string(ch))
	default:
		lx.emit(Punct, string(ch))
	}
	lx.pos++
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
