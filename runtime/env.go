package vbruntime

import "strings"

// Env is the single global variable table shared by every procedure. Names
// are case-insensitive; the spelling of the first declaration or assignment
// is kept for display.
type Env struct {
	vars  map[string]*binding
	order []string
}

type binding struct {
	name string
	val  Value
}

func NewEnv() *Env {
	return &Env{vars: map[string]*binding{}}
}

func envKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Get returns the variable's value, or Null if it was never set.
func (e *Env) Get(name string) Value {
	if b, ok := e.vars[envKey(name)]; ok {
		return b.val
	}
	return Null()
}

func (e *Env) Lookup(name string) (Value, bool) {
	b, ok := e.vars[envKey(name)]
	if !ok {
		return Null(), false
	}
	return b.val, true
}

func (e *Env) Set(name string, v Value) {
	key := envKey(name)
	if b, ok := e.vars[key]; ok {
		b.val = v
		return
	}
	e.vars[key] = &binding{name: strings.TrimSpace(name), val: v}
	e.order = append(e.order, key)
}

// Declare creates name with a Null value unless it already exists.
func (e *Env) Declare(name string) {
	if _, ok := e.vars[envKey(name)]; ok {
		return
	}
	e.Set(name, Null())
}

// Names lists variables in creation order with their display spelling.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.order))
	for _, key := range e.order {
		names = append(names, e.vars[key].name)
	}
	return names
}

// Snapshot copies every variable, deep-copying JSON containers.
func (e *Env) Snapshot() map[string]Value {
	cp := make(map[string]Value, len(e.vars))
	for _, b := range e.vars {
		cp[b.name] = b.val.Copy()
	}
	return cp
}
