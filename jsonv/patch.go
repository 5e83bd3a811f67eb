package jsonv

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// Diff returns the RFC 6902 operations that turn from into to, as an array.
func Diff(from, to *Value) (*Value, error) {
	ops, err := jsondiff.CompareJSON([]byte(from.String()), []byte(to.String()))
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	if len(ops) == 0 {
		return NewArray(), nil
	}
	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return Parse(string(raw))
}

// ApplyPatch applies an RFC 6902 operation array to doc and returns the
// result. doc is not modified.
func ApplyPatch(doc, ops *Value) (*Value, error) {
	p, err := jsonpatch.DecodePatch([]byte(ops.String()))
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	out, err := p.Apply([]byte(doc.String()))
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	return Parse(string(out))
}

// Merge applies an RFC 7386 merge patch to doc and returns the result.
func Merge(doc, patch *Value) (*Value, error) {
	out, err := jsonpatch.MergePatch([]byte(doc.String()), []byte(patch.String()))
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return Parse(string(out))
}
