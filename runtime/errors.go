package vbruntime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosuda/vbjson/jsonv"
	"github.com/gosuda/vbjson/schema"
)

type ErrorKind int

const (
	UndefinedProcedure ErrorKind = iota + 1
	DivisionByZero
	TypeMismatch
	InvalidCall
	JsonSyntax
	PathNotFound
	PathTypeMismatch
	PathIndexOutOfRange
	PathSyntax
	UnknownSchema
	SchemaInvalid
	HostError
	CallDepthExceeded
)

var errorKindNames = map[ErrorKind]string{
	UndefinedProcedure:  "UndefinedProcedure",
	DivisionByZero:      "DivisionByZero",
	TypeMismatch:        "TypeMismatch",
	InvalidCall:         "InvalidCall",
	JsonSyntax:          "JsonSyntax",
	PathNotFound:        "PathNotFound",
	PathTypeMismatch:    "PathTypeMismatch",
	PathIndexOutOfRange: "PathIndexOutOfRange",
	PathSyntax:          "PathSyntax",
	UnknownSchema:       "UnknownSchema",
	SchemaInvalid:       "SchemaInvalid",
	HostError:           "HostError",
	CallDepthExceeded:   "CallDepthExceeded",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	ErrUndefinedProcedure = errors.New("undefined procedure")
	ErrDivisionByZero     = errors.New("division by zero")
)

// RuntimeError is the one failure type a run reports. Line and Proc are
// best effort: they name the innermost statement that was executing.
type RuntimeError struct {
	Kind ErrorKind
	Msg  string
	Line int
	Proc string
	Err  error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Proc != "" {
		fmt.Fprintf(&b, "%s: ", e.Proc)
	}
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Msg)
	return b.String()
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...any) *RuntimeError {
	e := &RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	switch kind {
	case UndefinedProcedure:
		e.Err = ErrUndefinedProcedure
	case DivisionByZero:
		e.Err = ErrDivisionByZero
	}
	return e
}

// classify turns errors from the JSON, schema and host layers into a
// RuntimeError, keeping the original as the wrapped cause.
func classify(err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	kind := HostError
	var se *jsonv.SyntaxError
	switch {
	case errors.As(err, &se):
		kind = JsonSyntax
	case errors.Is(err, jsonv.ErrPathNotFound):
		kind = PathNotFound
	case errors.Is(err, jsonv.ErrPathTypeMismatch):
		kind = PathTypeMismatch
	case errors.Is(err, jsonv.ErrPathIndexOutOfRange):
		kind = PathIndexOutOfRange
	case errors.Is(err, jsonv.ErrPathSyntax):
		kind = PathSyntax
	case errors.Is(err, schema.ErrUnknownSchema):
		kind = UnknownSchema
	case errors.Is(err, schema.ErrInvalid):
		kind = SchemaInvalid
	}
	return &RuntimeError{Kind: kind, Msg: err.Error(), Err: err}
}

// locate fills in position details the first time an error crosses a
// statement boundary.
func locate(err error, line int, proc string) error {
	re := classify(err)
	if re.Line == 0 {
		re.Line = line
	}
	if re.Proc == "" {
		re.Proc = proc
	}
	return re
}
