// Package executor runs programs in a WebAssembly sandbox.
//
// # Overview
//
// The executor manages WASM module compilation, caching, and execution.
// Every Run instantiates a fresh interpreter, so runs share no state: each
// has its own globals and its own loop guard counter.
//
// # Basic Usage
//
//	exec, err := executor.New(hostfunc.NewRegistry())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	result := exec.Run(ctx, javascript.New(), `console.log("hello")`)
//	fmt.Println(result.Output)
//
// # Loop guard
//
// Language preludes define a checkpoint the program calls at the head of
// every loop and procedure body. Passing it more than the limit set with
// [WithLoopLimit] (default [DefaultLoopLimit]) stops the program and Run
// reports [ErrLoopLimit].
//
// # Host functions
//
// Programs reach the host only through registered functions. Functions in
// the executor's registry are visible to every run; [WithHostFunc] adds
// functions for one run:
//
//	exec.Run(ctx, lang, code,
//	    executor.WithHostFunc(hostfunc.FuncAlert, hostfunc.NewAlert(dialog)),
//	)
//
// Calls travel as markers on stderr; the response is written to stdin.
//
// # Language Interface
//
// To add support for a new language, implement the [Language] interface.
// See [github.com/shundroid/three-blockly/language/javascript].
package executor
