package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/shundroid/three-blockly/blockxml"
	"github.com/shundroid/three-blockly/generator"
	"github.com/shundroid/three-blockly/workspace"
)

func loaded(t *testing.T, text string) *workspace.Workspace {
	t.Helper()
	tree, err := blockxml.Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ws := workspace.New()
	if err := ws.Load(tree); err != nil {
		t.Fatalf("load: %v", err)
	}
	return ws
}

func TestSerializedTreeHasNoIDs(t *testing.T) {
	ws := loaded(t, `<xml><block type="text_print" id="a" x="10" y="20">
  <value name="TEXT"><block type="text" id="b"><field name="TEXT">hello</field></block></value>
</block></xml>`)

	got := SerializedTree(ws)
	if strings.Contains(got, ` id="`) {
		t.Errorf("ids in output:\n%s", got)
	}
	if !strings.Contains(got, `<block type="text_print" x="10" y="20">`) {
		t.Errorf("unexpected layout:\n%s", got)
	}

	tree, err := blockxml.Parse(got)
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if n := len(tree.ChildrenNamed("block")); n != 1 {
		t.Errorf("blocks = %d, want 1", n)
	}
}

func TestSerializedTreeEmptyWorkspace(t *testing.T) {
	got := SerializedTree(workspace.New())
	tree, err := blockxml.Parse(got)
	if err != nil {
		t.Fatalf("parse %q: %v", got, err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("children = %d", len(tree.Children))
	}
}

func TestTransformForExecution(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "user procedure",
			in:   "function greet() {\n}\n",
			want: "async function greet() {\n}\n",
		},
		{
			name: "helpers stay synchronous",
			in:   "function mathRandomInt(a, b) {}\nfunction colourRandom() {}\nfunction f(x) {}",
			want: "function mathRandomInt(a, b) {}\nfunction colourRandom() {}\nasync function f(x) {}",
		},
		{
			name: "prefixed helper name",
			in:   "function mathRandomIntTwice() {}",
			want: "async function mathRandomIntTwice() {}",
		},
		{
			name: "already async",
			in:   "async function g() {}",
			want: "async function g() {}",
		},
		{
			name: "word inside text",
			in:   "window.alert('function call');",
			want: "window.alert('function call');",
		},
		{
			name: "declaration text inside literal",
			in:   "var s = 'function foo(';\nwindow.alert('function bar() {}');\n",
			want: "var s = 'function foo(';\nwindow.alert('function bar() {}');\n",
		},
		{
			name: "literal next to a declaration",
			in:   "function greet() {\n  window.alert('function foo(');\n}\n",
			want: "async function greet() {\n  window.alert('function foo(');\n}\n",
		},
		{
			name: "no functions",
			in:   "var x;\nx = 1;\n",
			want: "var x;\nx = 1;\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransformForExecution(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransformIdempotent(t *testing.T) {
	src := "function a() {}\nfunction colourRandom() {}\n"
	once := TransformForExecution(src)
	if twice := TransformForExecution(once); twice != once {
		t.Errorf("second pass changed output:\n%q\n%q", once, twice)
	}
}

func TestGeneratedCode(t *testing.T) {
	ws := loaded(t, `<xml>
<block type="procedures_defnoreturn"><field name="NAME">hello</field>
  <statement name="STACK"><block type="text_print"><value name="TEXT"><block type="colour_random"></block></value></block></statement>
</block>
<block type="procedures_callnoreturn"><mutation name="hello"></mutation></block>
</xml>`)

	got, err := GeneratedCode(generator.New(), ws)
	if err != nil {
		t.Fatalf("GeneratedCode: %v", err)
	}
	for _, want := range []string{
		"async function hello() {",
		"function colourRandom() {",
		"await hello();",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "async function colourRandom") {
		t.Errorf("helper made async:\n%s", got)
	}
	if strings.Contains(got, "checkTimeout") {
		t.Error("display code contains loop trap")
	}
}

func TestGeneratedCodePropagatesErrors(t *testing.T) {
	ws := loaded(t, `<xml><block type="unknown_thing"></block></xml>`)
	if _, err := GeneratedCode(generator.New(), ws); !errors.Is(err, generator.ErrUnknownBlock) {
		t.Errorf("err = %v, want ErrUnknownBlock", err)
	}
}
