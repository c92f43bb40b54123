// Package host provides an in-memory page for the controller: pane state,
// tab state and a scripted dialog queue. The HTTP server and the tests use
// it in place of a browser.
package host

import (
	"sync"

	"github.com/shundroid/three-blockly/controller"
)

// Dialog kinds.
const (
	KindAlert   = "alert"
	KindConfirm = "confirm"
	KindPrompt  = "prompt"
)

// Dialog is one modal message shown to the user.
type Dialog struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Answer  string `json:"answer,omitempty"`
}

// Pane is the state of one view's pane and tab.
type Pane struct {
	Visible   bool   `json:"visible"`
	TabActive bool   `json:"tab_active"`
	Text      string `json:"text"`
}

type promptAnswer struct {
	text string
	ok   bool
}

// Page is an in-memory controller.Host. It is safe for concurrent use.
type Page struct {
	mu       sync.Mutex
	panes    map[controller.View]*Pane
	dialogs  []Dialog
	confirms []bool
	prompts  []promptAnswer
	confirm  func(message string) bool
	prompt   func(message string) (string, bool)
	onDialog func(Dialog)
}

// Option configures a Page.
type Option func(*Page)

// WithConfirm answers confirmations when no queued answer is left.
// The default declines.
func WithConfirm(fn func(message string) bool) Option {
	return func(p *Page) {
		p.confirm = fn
	}
}

// WithPrompt answers prompts when no queued answer is left. The default
// cancels.
func WithPrompt(fn func(message string) (string, bool)) Option {
	return func(p *Page) {
		p.prompt = fn
	}
}

// WithDialogHook calls fn after every dialog, outside the page lock.
func WithDialogHook(fn func(Dialog)) Option {
	return func(p *Page) {
		p.onDialog = fn
	}
}

// NewPage returns a page with every pane hidden and empty.
func NewPage(opts ...Option) *Page {
	p := &Page{
		panes:   make(map[controller.View]*Pane, len(controller.Views)),
		confirm: func(string) bool { return false },
		prompt:  func(string) (string, bool) { return "", false },
	}
	for _, v := range controller.Views {
		p.panes[v] = &Pane{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Page) pane(v controller.View) *Pane {
	pane, ok := p.panes[v]
	if !ok {
		pane = &Pane{}
		p.panes[v] = pane
	}
	return pane
}

func (p *Page) SetPaneVisible(v controller.View, visible bool) {
	p.mu.Lock()
	p.pane(v).Visible = visible
	p.mu.Unlock()
}

func (p *Page) SetTabActive(v controller.View, active bool) {
	p.mu.Lock()
	p.pane(v).TabActive = active
	p.mu.Unlock()
}

func (p *Page) SetPaneText(v controller.View, text string) {
	p.mu.Lock()
	p.pane(v).Text = text
	p.mu.Unlock()
}

func (p *Page) PaneText(v controller.View) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pane(v).Text
}

// QueueConfirm sets the answers for the next confirmations, in order.
func (p *Page) QueueConfirm(answers ...bool) {
	p.mu.Lock()
	p.confirms = append(p.confirms, answers...)
	p.mu.Unlock()
}

// QueuePrompt sets the answer for a future prompt. ok false cancels.
func (p *Page) QueuePrompt(answer string, ok bool) {
	p.mu.Lock()
	p.prompts = append(p.prompts, promptAnswer{answer, ok})
	p.mu.Unlock()
}

// ClearConfirms drops confirmation answers that were never asked for.
func (p *Page) ClearConfirms() {
	p.mu.Lock()
	p.confirms = nil
	p.mu.Unlock()
}

// ClearPrompts drops queued prompt answers.
func (p *Page) ClearPrompts() {
	p.mu.Lock()
	p.prompts = nil
	p.mu.Unlock()
}

func (p *Page) Confirm(message string) bool {
	p.mu.Lock()
	var answer bool
	if len(p.confirms) > 0 {
		answer, p.confirms = p.confirms[0], p.confirms[1:]
		p.mu.Unlock()
	} else {
		p.mu.Unlock()
		answer = p.confirm(message)
	}
	d := Dialog{Kind: KindConfirm, Message: message, Answer: "false"}
	if answer {
		d.Answer = "true"
	}
	p.record(d)
	return answer
}

func (p *Page) Alert(message string) {
	p.record(Dialog{Kind: KindAlert, Message: message})
}

func (p *Page) Prompt(message string) (string, bool) {
	p.mu.Lock()
	var a promptAnswer
	if len(p.prompts) > 0 {
		a, p.prompts = p.prompts[0], p.prompts[1:]
		p.mu.Unlock()
	} else {
		p.mu.Unlock()
		a.text, a.ok = p.prompt(message)
	}
	p.record(Dialog{Kind: KindPrompt, Message: message, Answer: a.text})
	return a.text, a.ok
}

func (p *Page) record(d Dialog) {
	p.mu.Lock()
	p.dialogs = append(p.dialogs, d)
	hook := p.onDialog
	p.mu.Unlock()
	if hook != nil {
		hook(d)
	}
}

// Pane returns a copy of the state of v.
func (p *Page) Pane(v controller.View) Pane {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.pane(v)
}

// Panes returns a copy of every pane keyed by tab name.
func (p *Page) Panes() map[string]Pane {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]Pane, len(p.panes))
	for v, pane := range p.panes {
		out[v.String()] = *pane
	}
	return out
}

// Dialogs returns every dialog shown so far.
func (p *Page) Dialogs() []Dialog {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Dialog(nil), p.dialogs...)
}

// DrainDialogs returns the dialogs shown since the last drain.
func (p *Page) DrainDialogs() []Dialog {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.dialogs
	p.dialogs = nil
	return out
}

// Alerts returns the messages of every alert shown so far.
func (p *Page) Alerts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, d := range p.dialogs {
		if d.Kind == KindAlert {
			out = append(out, d.Message)
		}
	}
	return out
}
