package jsonv

import (
	"errors"
	"fmt"
)

var (
	ErrPathNotFound        = errors.New("path not found")
	ErrPathTypeMismatch    = errors.New("path type mismatch")
	ErrPathIndexOutOfRange = errors.New("path index out of range")
	ErrPathSyntax          = errors.New("invalid path")
)

// MaxIndexGap bounds how far past the end of an array Set may write. The
// skipped slots are filled with null.
const MaxIndexGap = 64

// SyntaxError reports text that is not a single JSON document.
type SyntaxError struct {
	Offset int64
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("json syntax error at offset %d: %s", e.Offset, e.Msg)
}

// PathError describes a failed path traversal. Err is one of the ErrPath
// sentinels.
type PathError struct {
	Path    string
	Segment string
	Err     error
}

func (e *PathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Path)
	}
	return fmt.Sprintf("%v: %q at %s", e.Err, e.Path, e.Segment)
}

func (e *PathError) Unwrap() error { return e.Err }
