package mobile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gosuda/vbjson"
	"github.com/gosuda/vbjson/jsonv"
	"github.com/gosuda/vbjson/ledger"
	vbruntime "github.com/gosuda/vbjson/runtime"
)

type output struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

type failure struct {
	Kind string `json:"kind"`
	Msg  string `json:"message"`
	Line int    `json:"line,omitempty"`
	Proc string `json:"proc,omitempty"`
}

type runResult struct {
	Outputs []output     `json:"outputs"`
	Data    *jsonv.Value `json:"data,omitempty"`
	Error   *failure     `json:"error,omitempty"`
}

// Run compiles source, runs its top-level statements and entry, then each
// Sub named in callsJSON in order. It returns recorded output, the global
// variables and the first failure as JSON.
// callsJSON format: ["btnSave_Click", "btnLoad_Click"]
func Run(source, entry, callsJSON string) string {
	result := runResult{Outputs: []output{}}

	var calls []string
	if strings.TrimSpace(callsJSON) != "" {
		if err := json.Unmarshal([]byte(callsJSON), &calls); err != nil {
			result.Error = &failure{Kind: "InvalidCall", Msg: fmt.Sprintf("invalid calls json: %v", err)}
			return encode(result)
		}
	}

	ht := vbruntime.NewHostTable()
	console := vbruntime.NewConsole(nil)
	console.Register(ht)

	vm, err := vbjson.Compile(source, vbruntime.WithHost(ht))
	if err != nil {
		result.Error = &failure{Kind: "SyntaxError", Msg: err.Error()}
		return encode(result)
	}
	ledger.Register(ht, vm, "AppData")

	err = vm.Run(strings.TrimSpace(entry))
	if err == nil {
		d := vbruntime.NewDispatcher(vm, vbruntime.FailMissing)
		for _, name := range calls {
			d.Post(name)
		}
		if errs := d.Drain(); len(errs) > 0 {
			err = errs[0]
		}
	}
	if err != nil {
		result.Error = describe(err)
	}

	for _, o := range console.Take() {
		result.Outputs = append(result.Outputs, output{Source: o.Source, Text: o.Text})
	}
	data := jsonv.NewObject()
	for _, name := range vm.Env().Names() {
		data.Put(name, vm.Var(name).JSONValue())
	}
	result.Data = data
	return encode(result)
}

func describe(err error) *failure {
	var re *vbruntime.RuntimeError
	if errors.As(err, &re) {
		return &failure{Kind: re.Kind.String(), Msg: re.Msg, Line: re.Line, Proc: re.Proc}
	}
	return &failure{Kind: "HostError", Msg: err.Error()}
}

func encode(r runResult) string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"outputs":[],"error":{"kind":"HostError","message":%q}}`, err.Error())
	}
	return string(b)
}
