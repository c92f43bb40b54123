// Package workspace holds the live block program edited by the user.
//
// A Workspace stores top-level blocks and declared variables as block trees
// and implements the editor surface the page controller drives: visibility,
// layout notifications, clearing, loading and serialization.
package workspace

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shundroid/three-blockly/blockxml"
)

// ErrMissingType is returned by Load for a block without a type attribute.
var ErrMissingType = errors.New("block has no type")

// Variable is a declared workspace variable.
type Variable struct {
	ID   string
	Name string
	Type string
}

// Workspace is an in-memory block workspace. It is safe for concurrent use.
type Workspace struct {
	mu        sync.RWMutex
	blocks    []*blockxml.Node
	variables []Variable
	visible   bool
	resizes   int
	newID     func() string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithIDGenerator replaces the id source used for blocks and variables
// loaded without one.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workspace) {
		w.newID = fn
	}
}

// New creates an empty, visible workspace.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		visible: true,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetVisible shows or hides the editing surface. Contents are kept.
func (w *Workspace) SetVisible(visible bool) {
	w.mu.Lock()
	w.visible = visible
	w.mu.Unlock()
}

// Visible reports whether the editing surface is shown.
func (w *Workspace) Visible() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.visible
}

// Resize records a layout notification. Notifications on a hidden surface
// are ignored since the surface has no dimensions.
func (w *Workspace) Resize() {
	w.mu.Lock()
	if w.visible {
		w.resizes++
	}
	w.mu.Unlock()
}

// Resizes returns how many layout notifications reached a visible surface.
func (w *Workspace) Resizes() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.resizes
}

// Clear removes all blocks and variables.
func (w *Workspace) Clear() {
	w.mu.Lock()
	w.blocks = nil
	w.variables = nil
	w.mu.Unlock()
}

// Load appends the contents of a workspace tree. The tree is validated in
// full before anything is added. Blocks and variables without an id get one.
func (w *Workspace) Load(tree *blockxml.Node) error {
	if tree == nil || tree.Name != blockxml.RootName {
		return blockxml.ErrNotWorkspace
	}

	var (
		blocks []*blockxml.Node
		vars   []Variable
	)
	for _, child := range tree.Children {
		switch child.Name {
		case "variables":
			for _, v := range child.ChildrenNamed("variable") {
				id, _ := v.Attr("id")
				typ, _ := v.Attr("type")
				vars = append(vars, Variable{ID: id, Name: v.Text, Type: typ})
			}
		case "block", "shadow":
			b := child.Clone()
			if err := validate(b); err != nil {
				return err
			}
			blocks = append(blocks, b)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, v := range vars {
		if v.ID == "" {
			v.ID = w.newID()
		}
		w.variables = append(w.variables, v)
	}
	for _, b := range blocks {
		b.Walk(func(n *blockxml.Node) bool {
			if isBlock(n) {
				if id, ok := n.Attr("id"); !ok || id == "" {
					n.SetAttr("id", w.newID())
				}
			}
			return true
		})
		w.blocks = append(w.blocks, b)
	}
	return nil
}

// Serialize returns the workspace as a tree rooted at <xml>. The result is a
// copy; editing it does not change the workspace.
func (w *Workspace) Serialize() *blockxml.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()

	root := blockxml.NewNode(blockxml.RootName, "xmlns", blockxml.Namespace)
	if len(w.variables) > 0 {
		vars := blockxml.NewNode("variables")
		for _, v := range w.variables {
			vars.Append(&blockxml.Node{
				Name:  "variable",
				Attrs: []blockxml.Attr{{Name: "type", Value: v.Type}, {Name: "id", Value: v.ID}},
				Text:  v.Name,
			})
		}
		root.Append(vars)
	}
	for _, b := range w.blocks {
		root.Append(b.Clone())
	}
	return root
}

// BlockCount returns the number of non-shadow blocks, nested ones included.
func (w *Workspace) BlockCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	count := 0
	for _, b := range w.blocks {
		b.Walk(func(n *blockxml.Node) bool {
			if n.Name == "block" {
				count++
			}
			return true
		})
	}
	return count
}

// Variables returns a copy of the declared variables.
func (w *Workspace) Variables() []Variable {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Variable(nil), w.variables...)
}

func isBlock(n *blockxml.Node) bool {
	return n.Name == "block" || n.Name == "shadow"
}

func validate(b *blockxml.Node) error {
	var err error
	b.Walk(func(n *blockxml.Node) bool {
		if err != nil {
			return false
		}
		if isBlock(n) {
			if typ, _ := n.Attr("type"); typ == "" {
				err = fmt.Errorf("load <%s>: %w", n.Name, ErrMissingType)
				return false
			}
		}
		return true
	})
	return err
}
