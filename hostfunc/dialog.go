package hostfunc

import (
	"context"
	"fmt"
)

// Dialog shows modal messages to the user on behalf of a running program.
type Dialog interface {
	Alert(ctx context.Context, message string) error
	// Prompt asks for a line of text. ok is false when the user cancelled.
	Prompt(ctx context.Context, message string) (answer string, ok bool, err error)
}

// NewAlert returns a host function for window.alert.
// Args: message (string).
func NewAlert(d Dialog) Func {
	return func(ctx context.Context, args map[string]any) (any, error) {
		msg, err := messageArg(args)
		if err != nil {
			return nil, err
		}
		return nil, d.Alert(ctx, msg)
	}
}

// NewPrompt returns a host function for window.prompt. The result is the
// answer, or null when cancelled.
// Args: message (string).
func NewPrompt(d Dialog) Func {
	return func(ctx context.Context, args map[string]any) (any, error) {
		msg, err := messageArg(args)
		if err != nil {
			return nil, err
		}
		answer, ok, err := d.Prompt(ctx, msg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return answer, nil
	}
}

// RegisterDialog registers alert and prompt backed by d.
func RegisterDialog(r *Registry, d Dialog) {
	r.Register(FuncAlert, NewAlert(d))
	r.Register(FuncPrompt, NewPrompt(d))
}

func messageArg(args map[string]any) (string, error) {
	v, ok := args["message"]
	if !ok || v == nil {
		return "", nil
	}
	msg, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("message must be a string, got %T", v)
	}
	return msg, nil
}
