// Package schema is the registry of named templates that JsonNew copies
// from. A schema may also carry a JSON Schema document used by
// JsonValidate.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/gosuda/vbjson/jsonv"
)

var (
	ErrUnknownSchema   = errors.New("unknown schema")
	ErrDuplicateSchema = errors.New("duplicate schema")
	ErrInvalid         = errors.New("value does not match schema")
)

// ValidationError lists every problem gojsonschema reported.
type ValidationError struct {
	Schema   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Schema, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

type entry struct {
	name      string
	template  *jsonv.Value
	validator *gojsonschema.Schema
}

// Registry maps case-insensitive names to templates. It is safe for
// concurrent use; templates are never handed out directly.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Register stores a deep copy of template under name.
func (r *Registry) Register(name string, template *jsonv.Value) error {
	key := strings.ToLower(name)
	if key == "" {
		return fmt.Errorf("register schema: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, name)
	}
	r.entries[key] = &entry{name: name, template: template.Clone()}
	r.order = append(r.order, name)
	return nil
}

// RegisterJSON registers a template given as JSON text.
func (r *Registry) RegisterJSON(name, templateJSON string) error {
	tpl, err := jsonv.Parse(templateJSON)
	if err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}
	return r.Register(name, tpl)
}

// AttachJSONSchema compiles a JSON Schema document and binds it to an
// already registered name. The template itself must satisfy it.
func (r *Registry) AttachJSONSchema(name, schemaJSON string) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("schema %s: compile json schema: %w", name, err)
	}
	r.mu.Lock()
	e, ok := r.entries[strings.ToLower(name)]
	if ok {
		e.validator = compiled
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	if err := r.Validate(name, e.template); err != nil {
		r.mu.Lock()
		e.validator = nil
		r.mu.Unlock()
		return fmt.Errorf("schema %s: template rejected: %w", name, err)
	}
	return nil
}

// Instantiate returns a fresh deep copy of the named template.
func (r *Registry) Instantiate(name string) (*jsonv.Value, error) {
	r.mu.RLock()
	e, ok := r.entries[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return e.template.Clone(), nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[strings.ToLower(name)]
	return ok
}

// Validate checks v against the named schema. Without an attached JSON
// Schema only the top-level kind of the template is enforced.
func (r *Registry) Validate(name string, v *jsonv.Value) error {
	r.mu.RLock()
	e, ok := r.entries[strings.ToLower(name)]
	var validator *gojsonschema.Schema
	if ok {
		validator = e.validator
	}
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}

	if validator == nil {
		if v.Kind() != e.template.Kind() {
			return &ValidationError{Schema: e.name, Problems: []string{
				fmt.Sprintf("expected %s, got %s", e.template.Kind(), v.Kind()),
			}}
		}
		return nil
	}

	res, err := validator.Validate(gojsonschema.NewStringLoader(v.String()))
	if err != nil {
		return fmt.Errorf("schema %s: %w", e.name, err)
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, re := range res.Errors() {
		problems = append(problems, re.String())
	}
	return &ValidationError{Schema: e.name, Problems: problems}
}

// Names lists registered schemas in registration order, original spelling.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
