package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shundroid/three-blockly/controller"
	"github.com/shundroid/three-blockly/executor"
	"github.com/shundroid/three-blockly/generator"
	"github.com/shundroid/three-blockly/host"
	"github.com/shundroid/three-blockly/locale"
	"github.com/shundroid/three-blockly/workspace"
)

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func newTestTUI(t *testing.T, xml string, runner controller.Runner) tuiModel {
	t.Helper()
	ws := workspace.New()
	if xml != "" {
		var err error
		if ws, err = loadWorkspace(xml); err != nil {
			t.Fatal(err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	events := newPageEvents()
	page := events.newPage(ctx)
	ctl := controller.New(ws, generator.New(), page, runner, controller.WithMessages(locale.MessagesFor("en")))
	if err := ctl.Start(); err != nil {
		t.Fatal(err)
	}
	return newTUIModel(ctx, ws, page, events, ctl)
}

func apply(t *testing.T, m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(tuiModel)
	if !ok {
		t.Fatalf("Update returned %T, want tuiModel", next)
	}
	return got, cmd
}

func press(t *testing.T, m tuiModel, k string) tuiModel {
	t.Helper()
	m, _ = apply(t, m, key(k))
	return m
}

func TestTUITabs(t *testing.T) {
	m := newTestTUI(t, helloXML, &stubRunner{})

	if view := m.View(); !strings.Contains(view, "1 blocks") {
		t.Errorf("blocks pane:\n%s", view)
	}

	m = press(t, m, "2")
	if m.ctl.View() != controller.ViewGeneratedCode {
		t.Fatalf("view = %v", m.ctl.View())
	}
	if view := m.View(); !strings.Contains(view, "window.alert('Hi');") {
		t.Errorf("javascript pane:\n%s", view)
	}

	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.ctl.View() != controller.ViewSerializedTree {
		t.Fatalf("tab: view = %v", m.ctl.View())
	}
	if view := m.View(); !strings.Contains(view, "text_print") {
		t.Errorf("xml pane:\n%s", view)
	}

	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.ctl.View() != controller.ViewBlocks {
		t.Errorf("tab wraps: view = %v", m.ctl.View())
	}
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.ctl.View() != controller.ViewSerializedTree {
		t.Errorf("shift+tab: view = %v", m.ctl.View())
	}
}

func TestTUIRenderError(t *testing.T) {
	m := newTestTUI(t, `<xml><block type="robot_move"></block></xml>`, &stubRunner{})
	m = press(t, m, "2")
	if !m.statusErr {
		t.Error("expected error status")
	}
	if len(m.log) != 1 || m.log[0].Kind != host.KindAlert {
		t.Errorf("log = %+v", m.log)
	}
}

func TestTUIRun(t *testing.T) {
	runner := &stubRunner{result: executor.Result{Error: executor.ErrLoopLimit}}
	m := newTestTUI(t, foreverXML, runner)

	m, cmd := apply(t, m, key("r"))
	if cmd == nil || m.running != 1 {
		t.Fatalf("run not started: running=%d", m.running)
	}
	m, _ = apply(t, m, cmd())
	if m.running != 0 || !m.statusErr {
		t.Errorf("after run: running=%d status=%q", m.running, m.status)
	}
	msgs := locale.MessagesFor("en")
	want := msgs.Get(locale.MsgBadCode, msgs.Get(locale.MsgTimeout))
	if len(m.log) != 1 || m.log[0].Message != want {
		t.Errorf("log = %+v", m.log)
	}
	if len(runner.codes) != 1 || !strings.Contains(runner.codes[0], "checkTimeout();") {
		t.Errorf("runner got %q", runner.codes)
	}
}

func TestTUIDiscard(t *testing.T) {
	xml := `<xml>` + strings.Repeat(`<block type="logic_null"></block>`, 3) + `</xml>`
	m := newTestTUI(t, xml, &stubRunner{})

	m = press(t, m, "d")
	if m.confirmDiscard != 3 {
		t.Fatalf("confirmDiscard = %d", m.confirmDiscard)
	}
	if view := m.View(); !strings.Contains(view, "Delete all 3 blocks?") {
		t.Errorf("confirm not shown:\n%s", view)
	}
	m = press(t, m, "n")
	if m.confirmDiscard != 0 || m.ws.BlockCount() != 3 {
		t.Errorf("declined: confirm=%d blocks=%d", m.confirmDiscard, m.ws.BlockCount())
	}

	m = press(t, m, "d")
	m = press(t, m, "y")
	if m.ws.BlockCount() != 0 {
		t.Errorf("confirmed: blocks=%d", m.ws.BlockCount())
	}
}

func TestTUIDiscardSingleBlock(t *testing.T) {
	m := newTestTUI(t, helloXML, &stubRunner{})
	m = press(t, m, "d")
	if m.confirmDiscard != 0 || m.ws.BlockCount() != 0 {
		t.Errorf("confirm=%d blocks=%d", m.confirmDiscard, m.ws.BlockCount())
	}
}

func TestTUIPrompt(t *testing.T) {
	m := newTestTUI(t, "", &stubRunner{})

	answers := make(chan promptReply, 1)
	go func() {
		text, ok := m.page.Prompt("name?")
		answers <- promptReply{text, ok}
	}()

	msg := m.events.listen()()
	m, _ = apply(t, m, msg)
	if m.prompt == nil || m.prompt.message != "name?" {
		t.Fatalf("prompt = %+v", m.prompt)
	}
	m = press(t, m, "A")
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = press(t, m, "bc")
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if !strings.Contains(m.View(), "> A b_") {
		t.Errorf("input not shown:\n%s", m.View())
	}
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	select {
	case got := <-answers:
		if got.text != "A b" || !got.ok {
			t.Errorf("answer = %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("prompt not answered")
	}
	if m.prompt != nil {
		t.Error("prompt still open")
	}
}

func TestTUIPromptCancel(t *testing.T) {
	m := newTestTUI(t, "", &stubRunner{})

	answers := make(chan bool, 1)
	go func() {
		_, ok := m.page.Prompt("n?")
		answers <- ok
	}()
	m, _ = apply(t, m, m.events.listen()())
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	select {
	case ok := <-answers:
		if ok {
			t.Error("cancelled prompt reported ok")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("prompt not answered")
	}
}

func TestTUIQuit(t *testing.T) {
	m := newTestTUI(t, "", &stubRunner{})
	_, cmd := apply(t, m, key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
