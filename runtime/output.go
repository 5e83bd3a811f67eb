package vbruntime

import (
	"strings"
	"sync"
)

type Output struct {
	Source string
	Text   string
}

// Console records MsgBox and Print output for hosts that have no real
// message box. An optional sink sees each line as it is produced.
type Console struct {
	mu      sync.Mutex
	outputs []Output
	sink    func(Output)
}

func NewConsole(sink func(Output)) *Console {
	return &Console{sink: sink}
}

// Register installs MsgBox and Print into t.
func (c *Console) Register(t *HostTable) {
	t.Register("MsgBox", func(args []Value) (Value, error) {
		text := ""
		if len(args) > 0 {
			text = args[0].String()
		}
		c.emit(Output{Source: "MsgBox", Text: text})
		return Num(1), nil
	})
	t.Register("Print", func(args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		c.emit(Output{Source: "Print", Text: strings.Join(parts, " ")})
		return Null(), nil
	})
}

func (c *Console) emit(o Output) {
	c.mu.Lock()
	c.outputs = append(c.outputs, o)
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink(o)
	}
}

func (c *Console) Outputs() []Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Output(nil), c.outputs...)
}

// Take returns the recorded output and clears it.
func (c *Console) Take() []Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.outputs
	c.outputs = nil
	return out
}
