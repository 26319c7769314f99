package modal

import (
	"github.com/afyamkononi/afyadmin/internal/errors"
)

// Callbacks connect a modal to whoever opened it.
type Callbacks struct {
	// OnClose is called when the operator dismisses the modal.
	OnClose func()
	// OnSubmit receives the validated payload. The modal stays open; the
	// caller closes it once the backend call has resolved.
	OnSubmit func(payload map[string]any)
}

// Modal is one open overlay with its draft.
type Modal struct {
	state  State
	schema Schema
	draft  *Draft
	cb     Callbacks
}

// Open creates a modal for state. The subject is copied into a draft; the
// caller's record is never written.
func Open(state State, schema Schema, cb Callbacks) *Modal {
	subject, _ := state.Subject()
	return &Modal{
		state:  state,
		schema: schema,
		draft:  NewDraft(schema, state.Mode(), subject),
		cb:     cb,
	}
}

// State returns the overlay state the modal was opened with.
func (m *Modal) State() State { return m.state }

// Mode is shorthand for State().Mode().
func (m *Modal) Mode() Mode { return m.state.Mode() }

// Draft returns the editable copy.
func (m *Modal) Draft() *Draft { return m.draft }

// Fields returns the fields the form shows.
func (m *Modal) Fields() []Field { return m.schema.For(m.state.Mode()) }

// Submit validates the draft and hands the payload to OnSubmit. Validation
// failures return before OnSubmit so no request is made.
func (m *Modal) Submit() error {
	if m.state.Mode() != Add && m.state.Mode() != Edit {
		return errors.New(errors.ErrCodeFormInvalid, "a "+m.state.Mode().String()+" overlay cannot be submitted")
	}
	payload, err := m.draft.Payload()
	if err != nil {
		return err
	}
	if m.cb.OnSubmit != nil {
		m.cb.OnSubmit(payload)
	}
	return nil
}

// Close dismisses the modal.
func (m *Modal) Close() {
	if m.cb.OnClose != nil {
		m.cb.OnClose()
	}
}
