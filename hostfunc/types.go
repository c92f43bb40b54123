package hostfunc

// Names under which the dialog functions are registered.
const (
	FuncAlert  = "alert"
	FuncPrompt = "prompt"
)
