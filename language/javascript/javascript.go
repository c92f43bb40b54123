// Package javascript runs generated programs on QuickJS compiled to WASI.
package javascript

import (
	_ "embed"
	"encoding/json"
	"strconv"

	quickjswasi "github.com/paralin/go-quickjs-wasi"

	"github.com/shundroid/three-blockly/executor"
)

//go:embed stdlib.js
var stdlib string

// LoopTrap is the statement the generator inserts at the head of every loop
// and procedure body. The prelude defines checkTimeout.
const LoopTrap = "checkTimeout();\n"

// JavaScript implements the executor.Language interface for JavaScript execution.
type JavaScript struct{}

// New returns a JavaScript language adapter.
func New() *JavaScript {
	return &JavaScript{}
}

// Name returns "javascript".
func (j *JavaScript) Name() string {
	return "javascript"
}

// Module returns the QuickJS WASM binary.
func (j *JavaScript) Module() []byte {
	return quickjswasi.QuickJSWASM
}

// WrapCode appends a call running code under the prelude. The source is
// passed as a string literal so syntax errors surface as program errors.
func (j *JavaScript) WrapCode(code string, cfg executor.WrapConfig) string {
	src, _ := json.Marshal(code)
	return stdlib + "\n_block_main(" + string(src) + ", " + strconv.Itoa(cfg.LoopLimit) + ");\n"
}

// Args returns the command-line arguments for the QuickJS interpreter.
func (j *JavaScript) Args(wrappedCode string) []string {
	return []string{"qjs", "--std", "-e", wrappedCode}
}
