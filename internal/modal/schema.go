package modal

// FieldType selects the input widget and how a value is coerced on submit.
type FieldType int

const (
	Text FieldType = iota
	Email
	Password
	Number
	Integer
	TextArea
	Select
	Date
	Time
	URL
)

// Field describes one form input.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	// Options are the usual values: a Select offers them as choices and text
	// inputs as completions. They do not restrict what can be submitted.
	Options []string
	// Default seeds the field in an Add form.
	Default string
	// ReadOnly fields keep their default and are not offered for editing.
	ReadOnly bool
	// AddOnly fields are not part of Edit forms.
	AddOnly bool
}

// Schema is the ordered set of fields a kind's forms show.
type Schema []Field

// Field looks a field up by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// For returns the fields a form in mode m shows.
func (s Schema) For(m Mode) []Field {
	out := make([]Field, 0, len(s))
	for _, f := range s {
		if m != Add && f.AddOnly {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}
