package vbruntime

import (
	"strings"
	"sync"
)

// HostFunc is a function supplied by the embedding application, such as a
// widget operation. Arguments arrive evaluated and in order.
type HostFunc func(args []Value) (Value, error)

// Host resolves names the script calls that are neither built-ins nor user
// procedures.
type Host interface {
	LookupHost(name string) (HostFunc, bool)
}

// HostTable is a case-insensitive Host backed by a map. Registration may
// happen after the VM is built.
type HostTable struct {
	mu    sync.RWMutex
	funcs map[string]HostFunc
}

func NewHostTable() *HostTable {
	return &HostTable{funcs: map[string]HostFunc{}}
}

func (t *HostTable) Register(name string, fn HostFunc) {
	t.mu.Lock()
	t.funcs[strings.ToLower(name)] = fn
	t.mu.Unlock()
}

func (t *HostTable) LookupHost(name string) (HostFunc, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.funcs[strings.ToLower(name)]
	return fn, ok
}

// Hosts chains several hosts; the first match wins.
type Hosts []Host

func (hs Hosts) LookupHost(name string) (HostFunc, bool) {
	for _, h := range hs {
		if h == nil {
			continue
		}
		if fn, ok := h.LookupHost(name); ok {
			return fn, true
		}
	}
	return nil, false
}
