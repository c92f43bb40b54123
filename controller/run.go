package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shundroid/three-blockly/executor"
	"github.com/shundroid/three-blockly/hostfunc"
	"github.com/shundroid/three-blockly/locale"
	"github.com/shundroid/three-blockly/render"
)

// Run is a program started by Controller.Run.
type Run struct {
	ID     string
	Code   string
	done   chan struct{}
	result executor.Result
}

// Done is closed when the program has ended.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the program ends and returns its result.
func (r *Run) Wait() executor.Result {
	<-r.done
	return r.result
}

// Run generates the program with the loop trap installed and starts it in
// a fresh sandbox. It returns once the program is started; failures are
// reported to the user through Host.Alert and in the run's result.
// The returned error is only set when no program could be generated.
func (c *Controller) Run(ctx context.Context) (*Run, error) {
	c.mu.Lock()
	code, err := c.gen.GenerateWithLoopTrap(c.editor.Serialize(), c.cfg.loopTrap)
	if err != nil {
		c.mu.Unlock()
		c.host.Alert(c.cfg.messages.Get(locale.MsgBadCode, err.Error()))
		return nil, fmt.Errorf("generate code: %w", err)
	}
	code = render.TransformForExecution(code)
	cfg := c.cfg
	c.runs.Add(1)
	c.mu.Unlock()

	r := &Run{
		ID:   uuid.NewString(),
		Code: code,
		done: make(chan struct{}),
	}
	logger := cfg.logger.With("run", r.ID)
	logger.Info("run started")

	dialog := hostDialog{c.host}
	go func() {
		defer c.runs.Done()
		defer close(r.done)

		r.result = c.runner.Run(ctx, cfg.lang, code,
			executor.WithLoopLimit(cfg.loopLimit),
			executor.WithTimeout(cfg.timeout),
			executor.WithHostFunc(hostfunc.FuncAlert, hostfunc.NewAlert(dialog)),
			executor.WithHostFunc(hostfunc.FuncPrompt, hostfunc.NewPrompt(dialog)),
		)
		if r.result.Error != nil {
			logger.Info("run failed", "error", r.result.Error, "duration", r.result.Duration)
			c.host.Alert(cfg.messages.Get(locale.MsgBadCode, describe(cfg.messages, r.result.Error)))
			return
		}
		logger.Info("run finished", "duration", r.result.Duration)
	}()
	return r, nil
}

// describe turns a run error into the text shown to the user.
func describe(msgs locale.Messages, err error) string {
	var perr *executor.ProgramError
	switch {
	case errors.Is(err, executor.ErrLoopLimit):
		return msgs.Get(locale.MsgTimeout)
	case errors.As(err, &perr):
		return perr.Message
	default:
		return err.Error()
	}
}

// hostDialog adapts Host to the sandbox dialog functions.
type hostDialog struct {
	host Host
}

func (d hostDialog) Alert(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.host.Alert(message)
	return nil
}

func (d hostDialog) Prompt(ctx context.Context, message string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	answer, ok := d.host.Prompt(message)
	return answer, ok, nil
}
