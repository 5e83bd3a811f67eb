package parser

import "fmt"

// SyntaxError is returned for any lexing or parsing failure. The whole load
// is rejected; there is no partial program.
type SyntaxError struct {
	Line     int
	Expected string
	Found    string
	Msg      string
}

func (e *SyntaxError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: expected %s, found %s", e.Line, e.Expected, e.Found)
}

func expected(tok Token, what string) error {
	return &SyntaxError{Line: tok.Line, Expected: what, Found: tok.describe()}
}

func syntaxErrorf(line int, format string, args ...any) error {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
