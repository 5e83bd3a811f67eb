//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/gosuda/vbjson"
	"github.com/gosuda/vbjson/jsonv"
	"github.com/gosuda/vbjson/ledger"
	vbruntime "github.com/gosuda/vbjson/runtime"
)

type output struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

type callResult struct {
	Outputs []output     `json:"outputs"`
	Value   *jsonv.Value `json:"value,omitempty"`
	Error   string       `json:"error,omitempty"`
	Kind    string       `json:"kind,omitempty"`
	Line    int          `json:"line,omitempty"`
}

var (
	session *vbruntime.VM
	console *vbruntime.Console
	events  *vbruntime.Dispatcher
)

// msgBox shows text through window.vbjsonMsgBox when the page defines it.
func msgBox(o vbruntime.Output) {
	fn := js.Global().Get("vbjsonMsgBox")
	if fn.Type() != js.TypeFunction {
		return
	}
	fn.Invoke(o.Source, o.Text)
}

func finish(err error) string {
	result := callResult{Outputs: []output{}}
	if console != nil {
		for _, o := range console.Take() {
			result.Outputs = append(result.Outputs, output{Source: o.Source, Text: o.Text})
		}
	}
	if err != nil {
		result.Error = err.Error()
		var re *vbruntime.RuntimeError
		if errors.As(err, &re) {
			result.Kind = re.Kind.String()
			result.Line = re.Line
		}
	}
	b, _ := json.Marshal(result)
	return string(b)
}

func load(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return finish(fmt.Errorf("vbjsonLoad requires script source"))
	}
	ht := vbruntime.NewHostTable()
	console = vbruntime.NewConsole(msgBox)
	console.Register(ht)

	vm, err := vbjson.Compile(args[0].String(), vbruntime.WithHost(ht))
	if err != nil {
		session = nil
		return finish(fmt.Errorf("compile: %w", err))
	}
	ledger.Register(ht, vm, "AppData")
	session = vm
	events = vbruntime.NewDispatcher(vm, vbruntime.IgnoreMissing)

	entry := ""
	if len(args) > 1 {
		entry = strings.TrimSpace(args[1].String())
	}
	return finish(vm.Run(entry))
}

func call(this js.Value, args []js.Value) any {
	if session == nil {
		return finish(fmt.Errorf("no script loaded"))
	}
	if len(args) < 1 {
		return finish(fmt.Errorf("vbjsonCall requires a sub name"))
	}
	return finish(session.CallSub(args[0].String()))
}

func event(this js.Value, args []js.Value) any {
	if session == nil {
		return finish(fmt.Errorf("no script loaded"))
	}
	if len(args) < 2 {
		return finish(fmt.Errorf("vbjsonEvent requires control and event"))
	}
	events.PostEvent(args[0].String(), args[1].String())
	return finish(errors.Join(events.Drain()...))
}

func get(this js.Value, args []js.Value) any {
	if session == nil {
		return finish(fmt.Errorf("no script loaded"))
	}
	if len(args) < 1 {
		return finish(fmt.Errorf("vbjsonGet requires a variable"))
	}
	path := ""
	if len(args) > 1 {
		path = args[1].String()
	}
	v, err := session.DataGet(args[0].String(), path)
	if err != nil {
		return finish(err)
	}
	result := callResult{Outputs: []output{}, Value: v}
	b, _ := json.Marshal(result)
	return string(b)
}

func set(this js.Value, args []js.Value) any {
	if session == nil {
		return finish(fmt.Errorf("no script loaded"))
	}
	if len(args) < 3 {
		return finish(fmt.Errorf("vbjsonSet requires variable, path and JSON value"))
	}
	v, err := jsonv.Parse(args[2].String())
	if err != nil {
		return finish(err)
	}
	return finish(session.DataSet(args[0].String(), args[1].String(), v))
}

func main() {
	js.Global().Set("vbjsonLoad", js.FuncOf(load))
	js.Global().Set("vbjsonCall", js.FuncOf(call))
	js.Global().Set("vbjsonEvent", js.FuncOf(event))
	js.Global().Set("vbjsonGet", js.FuncOf(get))
	js.Global().Set("vbjsonSet", js.FuncOf(set))
	select {}
}
