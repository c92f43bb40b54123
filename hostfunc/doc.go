// Package hostfunc provides the functions sandboxed programs call on the host.
//
// Sandboxed code has no implicit access to anything outside the sandbox.
// Each capability is a [Func] registered by name in a [Registry]; the
// language prelude exposes it to the program.
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("my_func", func(ctx context.Context, args map[string]any) (any, error) {
//	    return "result", nil
//	})
//
// # Dialogs
//
// Block programs talk to the user through alert and prompt. [RegisterDialog]
// wires both to a [Dialog]:
//
//	hostfunc.RegisterDialog(registry, dialog)
//
// A cancelled prompt returns null to the program. Per-run dialogs are
// installed with executor.WithHostFunc and [NewAlert] / [NewPrompt] instead,
// so concurrent runs report to their own page.
package hostfunc
