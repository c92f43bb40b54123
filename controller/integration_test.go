package controller_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/shundroid/three-blockly/blockxml"
	"github.com/shundroid/three-blockly/controller"
	"github.com/shundroid/three-blockly/executor"
	"github.com/shundroid/three-blockly/generator"
	"github.com/shundroid/three-blockly/host"
	"github.com/shundroid/three-blockly/locale"
	"github.com/shundroid/three-blockly/workspace"
)

func TestMain(m *testing.M) {
	code := m.Run()
	executor.CloseTestExecutor()
	os.Exit(code)
}

func sandboxController(t *testing.T, xml string, page *host.Page, opts ...controller.Option) *controller.Controller {
	t.Helper()
	exec, err := executor.GetTestExecutor()
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	tree, err := blockxml.Parse(xml)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ws := workspace.New()
	if err := ws.Load(tree); err != nil {
		t.Fatalf("load: %v", err)
	}
	opts = append([]controller.Option{controller.WithMessages(locale.MessagesFor("en"))}, opts...)
	ctrl := controller.New(ws, generator.New(), page, exec, opts...)
	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return ctrl
}

func TestSandboxRunAlerts(t *testing.T) {
	page := host.NewPage()
	ctrl := sandboxController(t, helloXML, page)

	run, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res := run.Wait(); res.Error != nil {
		t.Fatalf("run error: %v", res.Error)
	}
	alerts := page.Alerts()
	if len(alerts) != 2 || alerts[0] != "Hi" || alerts[1] != "again" {
		t.Errorf("alerts = %q", alerts)
	}
}

func TestSandboxFunctionTextUnchanged(t *testing.T) {
	page := host.NewPage()
	ctrl := sandboxController(t, `<xml>
<block type="procedures_defnoreturn">
  <field name="NAME">greet</field>
  <statement name="STACK"><block type="text_print"><value name="TEXT">
    <block type="text"><field name="TEXT">function bar() {}</field></block>
  </value></block></statement>
</block>
<block type="text_print"><value name="TEXT">
  <block type="text"><field name="TEXT">function foo(</field></block>
</value>
  <next><block type="procedures_callnoreturn"><mutation name="greet"></mutation></block></next>
</block>
</xml>`, page)

	if err := ctrl.SwitchTo(controller.ViewGeneratedCode); err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}
	code := page.PaneText(controller.ViewGeneratedCode)
	if !strings.Contains(code, "async function greet() {") {
		t.Errorf("declaration not async:\n%s", code)
	}
	if !strings.Contains(code, "window.alert('function foo(');") {
		t.Errorf("literal rewritten:\n%s", code)
	}

	run, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res := run.Wait(); res.Error != nil {
		t.Fatalf("run error: %v", res.Error)
	}
	alerts := page.Alerts()
	if len(alerts) != 2 || alerts[0] != "function foo(" || alerts[1] != "function bar() {}" {
		t.Errorf("alerts = %q", alerts)
	}
}

func TestSandboxPrompt(t *testing.T) {
	page := host.NewPage()
	page.QueuePrompt("20", true)
	ctrl := sandboxController(t, `<xml>
<block type="text_print"><value name="TEXT">
  <block type="math_arithmetic"><field name="OP">ADD</field>
    <value name="A"><block type="text_prompt_ext"><field name="TYPE">NUMBER</field>
      <value name="TEXT"><block type="text"><field name="TEXT">n?</field></block></value>
    </block></value>
    <value name="B"><block type="math_number"><field name="NUM">1</field></block></value>
  </block>
</value></block>
</xml>`, page)

	run, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	run.Wait()

	dialogs := page.Dialogs()
	if len(dialogs) != 2 || dialogs[0].Kind != host.KindPrompt || dialogs[0].Message != "n?" || dialogs[1].Message != "21" {
		t.Errorf("dialogs = %+v", dialogs)
	}
}

func TestSandboxInfiniteLoopStops(t *testing.T) {
	page := host.NewPage()
	ctrl := sandboxController(t, `<xml>
<block type="controls_whileUntil"><field name="MODE">WHILE</field>
  <value name="BOOL"><block type="logic_boolean"><field name="BOOL">TRUE</field></block></value>
</block>
</xml>`, page, controller.WithLoopLimit(1000))

	run, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res := run.Wait(); res.Error != executor.ErrLoopLimit {
		t.Fatalf("err = %v, want ErrLoopLimit", res.Error)
	}
	alerts := page.Alerts()
	if len(alerts) != 1 || alerts[0] != "Program error:\nMaximum execution iterations exceeded." {
		t.Errorf("alerts = %q", alerts)
	}

	// Controller still responds.
	if err := ctrl.SwitchTo(controller.ViewGeneratedCode); err != nil {
		t.Errorf("SwitchTo: %v", err)
	}
}

func TestSandboxConcurrentRunsIndependent(t *testing.T) {
	page := host.NewPage()
	ctrl := sandboxController(t, `<xml>
<block type="controls_repeat_ext">
  <value name="TIMES"><block type="math_number"><field name="NUM">600</field></block></value>
</block>
</xml>`, page, controller.WithLoopLimit(1000))

	// Each run passes 600 checkpoints; a shared counter would trip at 1000.
	first, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range []*controller.Run{first, second} {
		if res := r.Wait(); res.Error != nil {
			t.Errorf("run %s: %v", r.ID, res.Error)
		}
	}
	if first.ID == second.ID {
		t.Error("runs share an id")
	}
}
