// Package modal implements the view/edit/add overlay protocol: a tagged
// overlay state, per-kind form schemas, and the draft a form edits.
package modal

import "maps"

// Mode tags the overlay variant.
type Mode int

const (
	None Mode = iota
	View
	Edit
	Add
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case View:
		return "view"
	case Edit:
		return "edit"
	case Add:
		return "add"
	default:
		return "none"
	}
}

// State is the overlay shown on a page. Only the constructors below build one,
// so a subject exists exactly when the mode is View or Edit.
type State struct {
	mode    Mode
	subject map[string]any
}

// Closed is the state with no overlay.
func Closed() State { return State{} }

// Viewing shows rec read-only.
func Viewing(rec map[string]any) State { return State{mode: View, subject: maps.Clone(rec)} }

// Editing opens rec for changes.
func Editing(rec map[string]any) State { return State{mode: Edit, subject: maps.Clone(rec)} }

// Adding opens an empty form.
func Adding() State { return State{mode: Add} }

// Mode returns the variant tag.
func (s State) Mode() Mode { return s.mode }

// Open reports whether any overlay is shown.
func (s State) Open() bool { return s.mode != None }

// Subject returns a copy of the record under view or edit.
func (s State) Subject() (map[string]any, bool) {
	if s.subject == nil {
		return nil, false
	}
	return maps.Clone(s.subject), true
}
