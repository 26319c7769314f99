package modal

import (
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/afyamkononi/afyadmin/internal/errors"
)

// ErrRequired is matched by errors.Is for any missing required field.
var ErrRequired = stderrors.New("required field missing")

// ValidationError lists the fields that blocked a submit.
type ValidationError struct {
	Missing []string
	Invalid map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	for _, name := range sortedKeys(e.Invalid) {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Invalid[name]))
	}
	return strings.Join(parts, "; ")
}

// Is matches ErrRequired when any field is missing.
func (e *ValidationError) Is(target error) bool {
	return target == ErrRequired && len(e.Missing) > 0
}

// Draft is the form's private copy of a record. Inputs are held as strings
// the way a form widget produces them; Payload turns them back into JSON values.
type Draft struct {
	schema Schema
	mode   Mode
	values map[string]string
	extra  map[string]any
	bound  map[string]*string
}

// NewDraft copies subject (nil for Add) into a fresh draft.
func NewDraft(schema Schema, mode Mode, subject map[string]any) *Draft {
	d := &Draft{
		schema: schema,
		mode:   mode,
		values: make(map[string]string, len(schema)),
		extra:  make(map[string]any),
		bound:  make(map[string]*string),
	}
	for _, f := range schema.For(mode) {
		switch {
		case subject != nil:
			if v, ok := subject[f.Name]; ok {
				d.values[f.Name] = Format(v)
			}
		default:
			d.values[f.Name] = f.Default
		}
	}
	// Fields outside the schema (id, timestamps) ride along untouched on edit.
	for k, v := range subject {
		if _, ok := schema.Field(k); !ok {
			d.extra[k] = v
		}
	}
	return d
}

// Get returns the current input for name.
func (d *Draft) Get(name string) string {
	d.sync()
	return d.values[name]
}

// Set replaces the input for name. Read-only fields ignore writes.
func (d *Draft) Set(name, value string) error {
	f, ok := d.schema.Field(name)
	if !ok {
		return errors.New(errors.ErrCodeFormInvalid, fmt.Sprintf("unknown field %q", name)).
			WithSuggestion("Use one of: " + strings.Join(d.schema.Names(), ", "))
	}
	if f.ReadOnly {
		return nil
	}
	d.values[name] = value
	if p, ok := d.bound[name]; ok {
		*p = value
	}
	return nil
}

// Ptr exposes the input for name to form widgets that bind by pointer.
func (d *Draft) Ptr(name string) *string {
	v := d.values[name]
	p := &v
	d.bind(name, p)
	return p
}

// Values returns a copy of every input.
func (d *Draft) Values() map[string]string {
	d.sync()
	return maps.Clone(d.values)
}

func (d *Draft) bind(name string, p *string) {
	d.bound[name] = p
}

// sync pulls values written through Ptr back into the draft.
func (d *Draft) sync() {
	for name, p := range d.bound {
		if f, ok := d.schema.Field(name); ok && !f.ReadOnly {
			d.values[name] = *p
		}
	}
}

// Validate checks required fields and typed inputs.
func (d *Draft) Validate() error {
	_, err := d.Payload()
	return err
}

// Payload validates the draft and builds the JSON body for submission.
// Empty optional fields are left out of Add payloads.
func (d *Draft) Payload() (map[string]any, error) {
	d.sync()

	out := make(map[string]any, len(d.values)+len(d.extra))
	if d.mode == Edit {
		maps.Copy(out, d.extra)
	}
	verr := &ValidationError{Invalid: map[string]string{}}

	for _, f := range d.schema.For(d.mode) {
		raw := strings.TrimSpace(d.values[f.Name])
		if raw == "" {
			if f.Required {
				verr.Missing = append(verr.Missing, f.Name)
				continue
			}
			if d.mode == Add || f.Type == Number || f.Type == Integer {
				continue
			}
			out[f.Name] = ""
			continue
		}
		v, err := coerce(f, raw)
		if err != nil {
			verr.Invalid[f.Name] = err.Error()
			continue
		}
		out[f.Name] = v
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		code := errors.ErrCodeFormInvalid
		if len(verr.Missing) > 0 {
			code = errors.ErrCodeFormRequired
		}
		return nil, errors.Wrap(code, "form cannot be submitted", verr)
	}
	return out, nil
}

func coerce(f Field, raw string) (any, error) {
	switch f.Type {
	case Number:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, stderrors.New("must be a number")
		}
		if n == float64(int64(n)) {
			return int64(n), nil
		}
		return n, nil
	case Integer:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, stderrors.New("must be a whole number")
		}
		return n, nil
	default:
		return raw, nil
	}
}

// Format renders a JSON-decoded value for display or as form input.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
