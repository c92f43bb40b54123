package controller

import "fmt"

// View is one of the three panes of the page. Exactly one is visible.
type View int

const (
	ViewBlocks View = iota
	ViewGeneratedCode
	ViewSerializedTree
)

// Views lists every view in tab order.
var Views = []View{ViewBlocks, ViewGeneratedCode, ViewSerializedTree}

var viewNames = [...]string{"blocks", "javascript", "xml"}

// String returns the logical tab name.
func (v View) String() string {
	if v.valid() {
		return viewNames[v]
	}
	return fmt.Sprintf("View(%d)", int(v))
}

func (v View) valid() bool {
	return v >= ViewBlocks && v <= ViewSerializedTree
}

// ParseView returns the view with the given tab name.
func ParseView(name string) (View, error) {
	for i, n := range viewNames {
		if n == name {
			return View(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownView, name)
}

// MarshalText implements encoding.TextMarshaler.
func (v View) MarshalText() ([]byte, error) {
	if !v.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownView, int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *View) UnmarshalText(text []byte) error {
	parsed, err := ParseView(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
