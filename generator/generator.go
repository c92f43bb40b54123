// Package generator turns block trees into JavaScript source.
//
// Output follows the shape of the classic block-editor JavaScript generator:
// variable declarations and helper/procedure definitions first, then one
// statement chain per top-level block. An optional loop trap statement is
// inserted at the head of every loop body and procedure body.
package generator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shundroid/three-blockly/blockxml"
)

// ErrUnknownBlock is returned for a block type with no generator.
var ErrUnknownBlock = errors.New("no generator for block type")

// ErrMissingProcedureName is returned for a procedure call that names no
// procedure.
var ErrMissingProcedureName = errors.New("procedure call without a name")

// Indent is prepended to every line of a nested statement body.
const Indent = "  "

// Generator produces JavaScript for workspace trees. A Generator is
// immutable; WithLoopTrap and WithReservedWords return modified copies.
type Generator struct {
	loopTrap string
	reserved map[string]bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithReservedWords adds identifiers user variable names must not shadow.
func WithReservedWords(words ...string) Option {
	return func(g *Generator) {
		for _, w := range words {
			g.reserved[w] = true
		}
	}
}

// New returns a Generator without a loop trap.
func New(opts ...Option) *Generator {
	g := &Generator{reserved: make(map[string]bool, len(jsReserved))}
	for _, w := range jsReserved {
		g.reserved[w] = true
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithLoopTrap returns a copy that inserts trap at the start of every loop
// and procedure body. "%1" in trap is replaced by the quoted block id.
// An empty trap disables insertion.
func (g *Generator) WithLoopTrap(trap string) *Generator {
	c := g.clone()
	c.loopTrap = trap
	return c
}

// LoopTrap returns the installed trap statement.
func (g *Generator) LoopTrap() string {
	return g.loopTrap
}

func (g *Generator) clone() *Generator {
	c := &Generator{loopTrap: g.loopTrap, reserved: make(map[string]bool, len(g.reserved))}
	for w := range g.reserved {
		c.reserved[w] = true
	}
	return c
}

// Generate returns the program for a workspace tree rooted at <xml>.
func (g *Generator) Generate(tree *blockxml.Node) (string, error) {
	if tree == nil || tree.Name != blockxml.RootName {
		return "", blockxml.ErrNotWorkspace
	}

	p := newPass(g, tree)
	var lines []string
	for _, top := range tree.Children {
		if top.Name != "block" {
			continue
		}
		line, err := p.topBlock(top)
		if err != nil {
			return "", err
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return p.finish(strings.Join(lines, "\n")), nil
}

// GenerateWithLoopTrap is Generate with trap installed for this call only.
func (g *Generator) GenerateWithLoopTrap(tree *blockxml.Node, trap string) (string, error) {
	return g.WithLoopTrap(trap).Generate(tree)
}

// pass holds the state of one Generate call.
type pass struct {
	gen         *Generator
	names       *nameDB
	variables   []string
	varByID     map[string]string
	defs        []string
	definedKeys map[string]bool
}

func newPass(g *Generator, tree *blockxml.Node) *pass {
	p := &pass{
		gen:         g,
		names:       newNameDB(g.reserved),
		definedKeys: make(map[string]bool),
	}
	p.variables, p.varByID = collectVariables(tree)
	for _, v := range p.variables {
		p.names.get(v, kindVariable)
	}
	collectProcedures(tree, func(name string) {
		p.names.get(name, kindProcedure)
	})
	return p
}

func (p *pass) topBlock(b *blockxml.Node) (string, error) {
	typ, _ := b.Attr("type")
	if isDisabled(b) {
		return "", nil
	}
	if fn, ok := expressions[typ]; ok {
		code, _, err := fn(p, b)
		if err != nil {
			return "", err
		}
		next, err := p.nextCode(b)
		if err != nil {
			return "", err
		}
		return code + ";\n" + next, nil
	}
	return p.statement(b)
}

// statement generates b and the blocks chained after it.
func (p *pass) statement(b *blockxml.Node) (string, error) {
	if b == nil {
		return "", nil
	}
	if isDisabled(b) {
		return p.nextCode(b)
	}
	typ, _ := b.Attr("type")
	fn, ok := statements[typ]
	if !ok {
		if _, isExpr := expressions[typ]; isExpr {
			return "", fmt.Errorf("%w: %q used as a statement", ErrUnknownBlock, typ)
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownBlock, typ)
	}
	code, err := fn(p, b)
	if err != nil {
		return "", err
	}
	next, err := p.nextCode(b)
	if err != nil {
		return "", err
	}
	return code + next, nil
}

func (p *pass) nextCode(b *blockxml.Node) (string, error) {
	next := b.Child("next", "")
	if next == nil {
		return "", nil
	}
	return p.statement(inputBlock(next))
}

// expression generates a value block.
func (p *pass) expression(b *blockxml.Node) (string, Order, error) {
	typ, _ := b.Attr("type")
	fn, ok := expressions[typ]
	if !ok {
		return "", OrderNone, fmt.Errorf("%w: %q", ErrUnknownBlock, typ)
	}
	return fn(p, b)
}

// valueToCode generates the block plugged into the named value input,
// parenthesized when its precedence is weaker than outer. Empty when the
// input is unconnected or disabled.
func (p *pass) valueToCode(b *blockxml.Node, name string, outer Order) (string, error) {
	in := b.Child("value", name)
	if in == nil {
		return "", nil
	}
	target := inputBlock(in)
	if target == nil || isDisabled(target) {
		return "", nil
	}
	code, inner, err := p.expression(target)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", nil
	}
	if needsParens(outer, inner) {
		code = "(" + code + ")"
	}
	return code, nil
}

// statementToCode generates the chain in the named statement input,
// indented one level.
func (p *pass) statementToCode(b *blockxml.Node, name string) (string, error) {
	in := b.Child("statement", name)
	if in == nil {
		return "", nil
	}
	code, err := p.statement(inputBlock(in))
	if err != nil {
		return "", err
	}
	return prefixLines(code, Indent), nil
}

// addLoopTrap prefixes a loop or procedure body with the trap statement.
func (p *pass) addLoopTrap(branch string, b *blockxml.Node) string {
	if p.gen.loopTrap == "" {
		return branch
	}
	id, _ := b.Attr("id")
	trap := strings.ReplaceAll(p.gen.loopTrap, "%1", quote(id))
	return prefixLines(trap, Indent) + branch
}

// provide registers a helper definition once and returns its name.
func (p *pass) provide(name, code string) string {
	p.define("%"+name, code)
	return name
}

// define adds a definition under key unless one is already present.
func (p *pass) define(key, code string) {
	if p.definedKeys[key] {
		return
	}
	p.definedKeys[key] = true
	p.defs = append(p.defs, code)
}

var (
	leadingBlank   = regexp.MustCompile(`^\s+\n`)
	trailingBlank  = regexp.MustCompile(`\n\s+$`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
)

func (p *pass) finish(code string) string {
	var defs []string
	if len(p.variables) > 0 {
		vars := make([]string, 0, len(p.variables))
		for _, v := range p.variables {
			vars = append(vars, p.names.get(v, kindVariable))
		}
		defs = append(defs, "var "+strings.Join(vars, ", ")+";")
	}
	defs = append(defs, p.defs...)

	out := strings.Join(defs, "\n\n") + "\n\n\n" + code
	out = leadingBlank.ReplaceAllString(out, "")
	out = trailingBlank.ReplaceAllString(out, "\n")
	out = trailingSpaces.ReplaceAllString(out, "\n")
	return out
}

// inputBlock returns the real block in an input, falling back to its shadow.
func inputBlock(in *blockxml.Node) *blockxml.Node {
	if b := in.Child("block", ""); b != nil {
		return b
	}
	return in.Child("shadow", "")
}

func isDisabled(b *blockxml.Node) bool {
	v, _ := b.Attr("disabled")
	return v == "true"
}

func fieldValue(b *blockxml.Node, name string) string {
	if f := b.Child("field", name); f != nil {
		return f.Text
	}
	return ""
}

func prefixLines(text, prefix string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if i == len(lines)-1 && l == "" {
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// quote renders s as a single-quoted JavaScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return "'" + s + "'"
}
