// Package controller drives the three-pane editor page: which pane is shown,
// keeping the serialized tree and the workspace in sync, and running the
// generated program in the sandbox.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shundroid/three-blockly/blockxml"
	"github.com/shundroid/three-blockly/executor"
	"github.com/shundroid/three-blockly/language/javascript"
	"github.com/shundroid/three-blockly/locale"
	"github.com/shundroid/three-blockly/render"
)

var (
	// ErrSwitchCancelled is returned by SwitchTo when the user chose to keep
	// editing an unparsable tree.
	ErrSwitchCancelled = errors.New("view switch cancelled")
	// ErrUnknownView is returned for a view or view name outside blocks,
	// javascript and xml.
	ErrUnknownView = errors.New("unknown view")
)

// Editor is the block editing surface.
type Editor interface {
	SetVisible(visible bool)
	Resize()
	Serialize() *blockxml.Node
	Clear()
	Load(tree *blockxml.Node) error
	BlockCount() int
}

// CodeGenerator turns a workspace tree into JavaScript.
type CodeGenerator interface {
	Generate(tree *blockxml.Node) (string, error)
	// GenerateWithLoopTrap inserts trap at the head of every loop and
	// procedure body for this call only.
	GenerateWithLoopTrap(tree *blockxml.Node, trap string) (string, error)
}

// Host is the page around the controller: panes, tabs and modal dialogs.
// Alert and Prompt are also called from run goroutines.
type Host interface {
	SetPaneVisible(v View, visible bool)
	SetTabActive(v View, active bool)
	SetPaneText(v View, text string)
	PaneText(v View) string
	Confirm(message string) bool
	Alert(message string)
	Prompt(message string) (answer string, ok bool)
}

// Runner executes programs in a sandbox. *executor.Executor implements it.
type Runner interface {
	Run(ctx context.Context, lang executor.Language, code string, opts ...executor.Option) executor.Result
}

// Controller owns the view state of one page. Its methods are safe for
// concurrent use; they are serialized like events on a UI thread.
type Controller struct {
	mu     sync.Mutex
	editor Editor
	gen    CodeGenerator
	host   Host
	runner Runner
	cfg    config

	view    View
	started bool
	runs    sync.WaitGroup
}

// New creates a controller. Call Start before anything else.
func New(editor Editor, gen CodeGenerator, host Host, runner Runner, opts ...Option) *Controller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Controller{
		editor: editor,
		gen:    gen,
		host:   host,
		runner: runner,
		cfg:    cfg,
		view:   ViewBlocks,
	}
}

// Start restores the initial tree, if any, shows the Blocks view and sends
// the first layout notification.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	if c.cfg.initialTree != "" {
		c.restoreInitialTree()
	}
	c.mu.Unlock()

	if err := c.SwitchTo(ViewBlocks); err != nil {
		return err
	}
	c.Resize()
	return nil
}

func (c *Controller) restoreInitialTree() {
	tree, err := blockxml.Parse(c.cfg.initialTree)
	if err == nil {
		err = c.editor.Load(tree)
	}
	if err != nil {
		c.cfg.logger.Warn("discarding stashed workspace", "error", err)
	}
}

// View returns the active view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Messages returns the strings used for dialogs.
func (c *Controller) Messages() locale.Messages {
	return c.cfg.messages
}

// SwitchTo makes target the visible view.
//
// Leaving the serialized tree view loads the pane text back into the
// workspace. If it does not parse the user is asked whether to abandon the
// edit; declining returns ErrSwitchCancelled and changes nothing. Entering
// a code view renders it; a render error is returned after the switch has
// completed and is also shown to the user.
func (c *Controller) SwitchTo(target View) error {
	if !target.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownView, int(target))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.view == ViewSerializedTree {
		if err := c.loadTreePane(); err != nil {
			return err
		}
	}
	if c.view == ViewBlocks {
		c.editor.SetVisible(false)
	}

	for _, v := range Views {
		c.host.SetTabActive(v, false)
		c.host.SetPaneVisible(v, false)
	}

	prev := c.view
	c.view = target
	c.host.SetTabActive(target, true)
	c.host.SetPaneVisible(target, true)

	err := c.renderLocked()

	if target == ViewBlocks {
		c.editor.SetVisible(true)
		c.editor.Resize()
	}

	c.cfg.logger.Debug("view switched", "from", prev, "to", target)
	return err
}

// loadTreePane parses the tree pane into the workspace. Invalid text is
// kept out of the workspace; the user decides whether to leave anyway.
func (c *Controller) loadTreePane() error {
	tree, err := blockxml.Parse(c.host.PaneText(ViewSerializedTree))
	if err == nil {
		err = c.replaceWorkspace(tree)
	}
	if err == nil {
		return nil
	}

	c.cfg.logger.Info("serialized tree rejected", "error", err)
	if !c.host.Confirm(c.cfg.messages.Get(locale.MsgBadXML, err.Error())) {
		return ErrSwitchCancelled
	}
	return nil
}

// replaceWorkspace clears the workspace and loads tree. If loading fails
// the previous contents are put back.
func (c *Controller) replaceWorkspace(tree *blockxml.Node) error {
	before := c.editor.Serialize()
	c.editor.Clear()
	if err := c.editor.Load(tree); err != nil {
		c.editor.Clear()
		if restoreErr := c.editor.Load(before); restoreErr != nil {
			c.cfg.logger.Error("restore workspace", "error", restoreErr)
		}
		return err
	}
	return nil
}

// renderLocked fills the active pane. The Blocks view needs no rendering.
func (c *Controller) renderLocked() error {
	switch c.view {
	case ViewSerializedTree:
		c.host.SetPaneText(ViewSerializedTree, render.SerializedTree(c.editor))
	case ViewGeneratedCode:
		code, err := render.GeneratedCode(c.gen, c.editor)
		if err != nil {
			c.host.SetPaneText(ViewGeneratedCode, "")
			c.host.Alert(c.cfg.messages.Get(locale.MsgBadCode, err.Error()))
			return fmt.Errorf("generate code: %w", err)
		}
		c.host.SetPaneText(ViewGeneratedCode, code)
	}
	return nil
}

// Render refreshes the active pane from the workspace.
func (c *Controller) Render() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderLocked()
}

// Resize forwards a layout change to the editor while the Blocks view is
// shown.
func (c *Controller) Resize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == ViewBlocks {
		c.editor.Resize()
	}
}

// Discard clears the workspace. With two or more blocks the user is asked
// first. The active pane is re-rendered either way. Reports whether the
// workspace was cleared.
func (c *Controller) Discard() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.editor.BlockCount()
	cleared := false
	if count < 2 || c.host.Confirm(c.cfg.messages.Get(locale.MsgDiscard, strconv.Itoa(count))) {
		c.editor.Clear()
		cleared = true
	}
	if err := c.renderLocked(); err != nil {
		c.cfg.logger.Debug("render after discard", "error", err)
	}
	return cleared
}

// ChangeLanguage returns the query string selecting lang and the workspace
// text to hand to the next page through WithInitialTree.
func (c *Controller) ChangeLanguage(search, lang string) (query, stash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return locale.SwitchQuery(search, lang), blockxml.Text(c.editor.Serialize())
}

// Wait blocks until every started run has finished or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type config struct {
	messages    locale.Messages
	lang        executor.Language
	loopTrap    string
	loopLimit   int
	timeout     time.Duration
	initialTree string
	logger      *slog.Logger
}

func defaultConfig() config {
	return config{
		messages:  locale.MessagesFor(locale.Default),
		lang:      javascript.New(),
		loopTrap:  javascript.LoopTrap,
		loopLimit: executor.DefaultLoopLimit,
		timeout:   30 * time.Second,
		logger:    slog.Default(),
	}
}

// Option configures a Controller.
type Option func(*config)

// WithMessages sets the dialog strings.
func WithMessages(m locale.Messages) Option {
	return func(c *config) {
		c.messages = m
	}
}

// WithLanguage sets the sandbox language programs run in.
func WithLanguage(lang executor.Language) Option {
	return func(c *config) {
		c.lang = lang
	}
}

// WithLoopTrap sets the statement inserted into loop bodies for runs.
func WithLoopTrap(trap string) Option {
	return func(c *config) {
		c.loopTrap = trap
	}
}

// WithLoopLimit sets the loop guard limit for runs.
func WithLoopLimit(n int) Option {
	return func(c *config) {
		c.loopLimit = n
	}
}

// WithRunTimeout bounds the wall-clock time of a run. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithInitialTree loads tree text into the editor on Start. Text that does
// not load is logged and dropped.
func WithInitialTree(text string) Option {
	return func(c *config) {
		c.initialTree = text
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
