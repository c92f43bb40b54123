// Package render produces the text shown in the code panes and the source
// handed to the sandbox.
package render

import (
	"regexp"
	"strings"

	"github.com/shundroid/three-blockly/blockxml"
)

// Serializer is the part of a workspace render needs.
type Serializer interface {
	Serialize() *blockxml.Node
}

// Generator turns a workspace tree into JavaScript.
type Generator interface {
	Generate(tree *blockxml.Node) (string, error)
}

// SynchronousHelpers are generated helper functions that stay synchronous
// when declarations are made async.
var SynchronousHelpers = []string{"mathRandomInt", "colourRandom"}

// SerializedTree returns the workspace tree pretty-printed without ids.
func SerializedTree(ws Serializer) string {
	return blockxml.PrettyText(blockxml.StripIDs(ws.Serialize()))
}

// GeneratedCode returns the generated program after TransformForExecution.
// Generator errors are returned unchanged.
func GeneratedCode(gen Generator, ws Serializer) (string, error) {
	code, err := gen.Generate(ws.Serialize())
	if err != nil {
		return "", err
	}
	return TransformForExecution(code), nil
}

// Generated declarations always start a line. Text literals are quoted with
// escaped newlines, so they never do.
var functionDecl = regexp.MustCompile(`(?m)^function\s+([A-Za-z_$][\w$]*)\s*\(`)

// TransformForExecution makes every named function declaration async so
// awaited calls resolve, except the helpers in SynchronousHelpers.
func TransformForExecution(src string) string {
	return TransformWith(src, SynchronousHelpers)
}

// TransformWith is TransformForExecution with an explicit exclusion set.
// Declarations already marked async are left alone, as is any text that
// does not begin a line.
func TransformWith(src string, exclude []string) string {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	var out strings.Builder
	last := 0
	for _, m := range functionDecl.FindAllStringSubmatchIndex(src, -1) {
		start, name := m[0], src[m[2]:m[3]]
		if skip[name] {
			continue
		}
		out.WriteString(src[last:start])
		out.WriteString("async ")
		last = start
	}
	out.WriteString(src[last:])
	return out.String()
}
