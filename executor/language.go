package executor

// Language defines the interface for a WASM-based language runtime.
type Language interface {
	// Name returns a unique identifier for this language. Used as the cache
	// key for compiled modules.
	Name() string

	// Module returns the WASM binary for the language interpreter.
	Module() []byte

	// WrapCode embeds program source in the language prelude: host call
	// bindings, the loop guard and the halt signalling.
	WrapCode(code string, cfg WrapConfig) string

	// Args returns the command-line arguments to pass to the WASM module.
	Args(wrappedCode string) []string
}

// WrapConfig carries per-run settings into the prelude.
type WrapConfig struct {
	// LoopLimit is the number of loop guard checkpoints allowed before the
	// program is stopped. Zero disables the guard.
	LoopLimit int
}
