package generator

import (
	"errors"
	"strings"
	"testing"

	"github.com/shundroid/three-blockly/blockxml"
)

func mustParse(t *testing.T, text string) *blockxml.Node {
	t.Helper()
	tree, err := blockxml.Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tree
}

func generate(t *testing.T, g *Generator, text string) string {
	t.Helper()
	code, err := g.Generate(mustParse(t, text))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return code
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{
			name: "empty",
			xml:  `<xml></xml>`,
			want: "",
		},
		{
			name: "print text",
			xml:  `<xml><block type="text_print"><value name="TEXT"><shadow type="text"><field name="TEXT">Hi</field></shadow></value></block></xml>`,
			want: "window.alert('Hi');\n",
		},
		{
			name: "escaped text",
			xml:  `<xml><block type="text_print"><value name="TEXT"><block type="text"><field name="TEXT">it's</field></block></value></block></xml>`,
			want: "window.alert('it\\'s');\n",
		},
		{
			name: "arithmetic precedence",
			xml: `<xml><block type="text_print"><value name="TEXT">
  <block type="math_arithmetic"><field name="OP">MULTIPLY</field>
    <value name="A"><block type="math_arithmetic"><field name="OP">ADD</field>
      <value name="A"><block type="math_number"><field name="NUM">1</field></block></value>
      <value name="B"><block type="math_number"><field name="NUM">2</field></block></value>
    </block></value>
    <value name="B"><block type="math_number"><field name="NUM">3</field></block></value>
  </block>
</value></block></xml>`,
			want: "window.alert((1 + 2) * 3);\n",
		},
		{
			name: "power",
			xml: `<xml><block type="text_print"><value name="TEXT">
  <block type="math_arithmetic"><field name="OP">POWER</field>
    <value name="A"><block type="math_number"><field name="NUM">2</field></block></value>
    <value name="B"><block type="math_number"><field name="NUM">8</field></block></value>
  </block>
</value></block></xml>`,
			want: "window.alert(Math.pow(2, 8));\n",
		},
		{
			name: "variables",
			xml: `<xml><variables><variable id="v1">n</variable></variables>
<block type="variables_set"><field name="VAR" id="v1">n</field>
  <value name="VALUE"><block type="math_number"><field name="NUM">7</field></block></value>
  <next><block type="text_print"><value name="TEXT"><block type="variables_get"><field name="VAR" id="v1">n</field></block></value></block></next>
</block></xml>`,
			want: "var n;\n\n\nn = 7;\nwindow.alert(n);\n",
		},
		{
			name: "reserved variable name",
			xml: `<xml><block type="variables_set"><field name="VAR">window</field>
  <value name="VALUE"><block type="logic_boolean"><field name="BOOL">TRUE</field></block></value>
</block></xml>`,
			want: "var window2;\n\n\nwindow2 = true;\n",
		},
		{
			name: "if else",
			xml: `<xml><block type="controls_if"><mutation else="1"></mutation>
  <value name="IF0"><block type="logic_compare"><field name="OP">LT</field>
    <value name="A"><block type="math_number"><field name="NUM">1</field></block></value>
    <value name="B"><block type="math_number"><field name="NUM">2</field></block></value>
  </block></value>
  <statement name="DO0"><block type="text_print"><value name="TEXT"><block type="text"><field name="TEXT">yes</field></block></value></block></statement>
  <statement name="ELSE"><block type="text_print"><value name="TEXT"><block type="text"><field name="TEXT">no</field></block></value></block></statement>
</block></xml>`,
			want: "if (1 < 2) {\n  window.alert('yes');\n} else {\n  window.alert('no');\n}\n",
		},
		{
			name: "disabled block skipped",
			xml:  `<xml><block type="text_print" disabled="true"><value name="TEXT"><block type="text"><field name="TEXT">x</field></block></value></block></xml>`,
			want: "",
		},
		{
			name: "loose expression",
			xml:  `<xml><block type="logic_null"></block></xml>`,
			want: "null;\n",
		},
	}

	g := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := generate(t, g, tt.xml)
			if got != tt.want {
				t.Errorf("got:\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

const repeatXML = `<xml><block type="controls_repeat_ext" id="loop1">
  <value name="TIMES"><shadow type="math_number"><field name="NUM">10</field></shadow></value>
  <statement name="DO"><block type="text_print"><value name="TEXT"><block type="text"><field name="TEXT">x</field></block></value></block></statement>
</block></xml>`

func TestLoopTrap(t *testing.T) {
	plain := generate(t, New(), repeatXML)
	wantPlain := "for (var count = 0; count < 10; count++) {\n  window.alert('x');\n}\n"
	if plain != wantPlain {
		t.Errorf("without trap:\n%q\nwant:\n%q", plain, wantPlain)
	}

	trapped := New().WithLoopTrap("checkTimeout();\n")
	got := generate(t, trapped, repeatXML)
	want := "for (var count = 0; count < 10; count++) {\n  checkTimeout();\n  window.alert('x');\n}\n"
	if got != want {
		t.Errorf("with trap:\n%q\nwant:\n%q", got, want)
	}

	ids := New().WithLoopTrap("hit(%1);\n")
	if got := generate(t, ids, repeatXML); !strings.Contains(got, "  hit('loop1');\n") {
		t.Errorf("block id not substituted:\n%s", got)
	}
}

func TestWithLoopTrapLeavesOriginal(t *testing.T) {
	base := New()
	trapped := base.WithLoopTrap("checkTimeout();\n")
	if base.LoopTrap() != "" {
		t.Errorf("base generator changed: %q", base.LoopTrap())
	}
	if trapped.LoopTrap() != "checkTimeout();\n" {
		t.Errorf("LoopTrap = %q", trapped.LoopTrap())
	}
	if got := generate(t, base, repeatXML); strings.Contains(got, "checkTimeout") {
		t.Error("trap leaked into base generator output")
	}
}

func TestWhileLoopTrap(t *testing.T) {
	g := New().WithLoopTrap("checkTimeout();\n")
	got := generate(t, g, `<xml><block type="controls_whileUntil"><field name="MODE">WHILE</field>
  <value name="BOOL"><block type="logic_boolean"><field name="BOOL">TRUE</field></block></value>
</block></xml>`)
	want := "while (true) {\n  checkTimeout();\n}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHelperDefinitions(t *testing.T) {
	got := generate(t, New(), `<xml>
<block type="text_print"><value name="TEXT"><block type="math_random_int">
  <value name="FROM"><block type="math_number"><field name="NUM">1</field></block></value>
  <value name="TO"><block type="math_number"><field name="NUM">6</field></block></value>
</block></value>
<next><block type="text_print"><value name="TEXT"><block type="colour_random"></block></value>
<next><block type="text_print"><value name="TEXT"><block type="math_random_int">
  <value name="FROM"><block type="math_number"><field name="NUM">1</field></block></value>
  <value name="TO"><block type="math_number"><field name="NUM">2</field></block></value>
</block></value></block></next>
</block></next>
</block></xml>`)

	if n := strings.Count(got, "function mathRandomInt(a, b) {"); n != 1 {
		t.Errorf("mathRandomInt defined %d times:\n%s", n, got)
	}
	if n := strings.Count(got, "function colourRandom() {"); n != 1 {
		t.Errorf("colourRandom defined %d times:\n%s", n, got)
	}
	if !strings.Contains(got, "window.alert(mathRandomInt(1, 6));") {
		t.Errorf("missing call:\n%s", got)
	}
	if strings.Index(got, "function mathRandomInt") > strings.Index(got, "window.alert") {
		t.Error("definitions must precede code")
	}
}

func TestProcedures(t *testing.T) {
	g := New().WithLoopTrap("checkTimeout();\n")
	got := generate(t, g, `<xml>
<block type="procedures_defreturn">
  <mutation><arg name="x"></arg></mutation>
  <field name="NAME">double</field>
  <value name="RETURN"><block type="math_arithmetic"><field name="OP">MULTIPLY</field>
    <value name="A"><block type="variables_get"><field name="VAR">x</field></block></value>
    <value name="B"><block type="math_number"><field name="NUM">2</field></block></value>
  </block></value>
</block>
<block type="text_print"><value name="TEXT">
  <block type="procedures_callreturn"><mutation name="double"><arg name="x"></arg></mutation>
    <value name="ARG0"><block type="math_number"><field name="NUM">4</field></block></value>
  </block>
</value></block>
</xml>`)

	if !strings.Contains(got, "function double(x) {\n  checkTimeout();\n  return x * 2;\n}") {
		t.Errorf("definition:\n%s", got)
	}
	if !strings.Contains(got, "window.alert(await double(4));") {
		t.Errorf("call:\n%s", got)
	}
}

func TestUnknownBlock(t *testing.T) {
	_, err := New().Generate(mustParse(t, `<xml><block type="robot_move"></block></xml>`))
	if !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("err = %v, want ErrUnknownBlock", err)
	}

	_, err = New().Generate(mustParse(t, `<xml><block type="text_print"><value name="TEXT"><block type="mystery"></block></value></block></xml>`))
	if !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("nested err = %v, want ErrUnknownBlock", err)
	}
}

func TestProcedureCallWithoutName(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{name: "statement", xml: `<xml><block type="procedures_callnoreturn"></block></xml>`},
		{name: "expression", xml: `<xml><block type="text_print"><value name="TEXT"><block type="procedures_callreturn"><mutation></mutation></block></value></block></xml>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Generate(mustParse(t, tt.xml))
			if !errors.Is(err, ErrMissingProcedureName) {
				t.Errorf("err = %v, want ErrMissingProcedureName", err)
			}
		})
	}
}

func TestGenerateRejectsNonWorkspace(t *testing.T) {
	if _, err := New().Generate(blockxml.NewNode("block", "type", "text")); !errors.Is(err, blockxml.ErrNotWorkspace) {
		t.Errorf("err = %v, want ErrNotWorkspace", err)
	}
	if _, err := New().Generate(nil); !errors.Is(err, blockxml.ErrNotWorkspace) {
		t.Errorf("nil err = %v, want ErrNotWorkspace", err)
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"count":   "count",
		"my var":  "my_var",
		"1st":     "my_1st",
		"a-b":     "a_2Db",
		"":        "unnamed",
		"under_1": "under_1",
	}
	for in, want := range tests {
		if got := safeName(in); got != want {
			t.Errorf("safeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSupported(t *testing.T) {
	for _, typ := range []string{"text_print", "math_number", "controls_for", "procedures_callnoreturn"} {
		if !Supported(typ) {
			t.Errorf("Supported(%q) = false", typ)
		}
	}
	if Supported("robot_move") {
		t.Error("Supported(robot_move) = true")
	}
}
