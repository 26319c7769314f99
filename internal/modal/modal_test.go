package modal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	consoleerrors "github.com/afyamkononi/afyadmin/internal/errors"
)

var doctorSchema = Schema{
	{Name: "first_name", Label: "First name", Required: true},
	{Name: "last_name", Label: "Last name", Required: true},
	{Name: "email", Label: "Email", Type: Email, Required: true},
	{Name: "password", Label: "Password", Type: Password, Default: "12345678", ReadOnly: true, AddOnly: true},
	{Name: "role", Label: "Role", Default: "Doctor", ReadOnly: true},
	{Name: "affiliation", Label: "Affiliation"},
	{Name: "consultation_fee", Label: "Consultation fee", Type: Number},
	{Name: "gender", Label: "Gender", Type: Select, Options: []string{"male", "female", "other"}},
}

func TestState_Variants(t *testing.T) {
	rec := map[string]any{"id": float64(1), "first_name": "Ali"}

	assert.False(t, Closed().Open())
	_, ok := Closed().Subject()
	assert.False(t, ok)

	v := Viewing(rec)
	assert.Equal(t, View, v.Mode())
	subj, ok := v.Subject()
	require.True(t, ok)
	assert.Equal(t, "Ali", subj["first_name"])

	// The state holds its own copy.
	rec["first_name"] = "changed"
	subj, _ = v.Subject()
	assert.Equal(t, "Ali", subj["first_name"])

	subj["first_name"] = "mutated"
	again, _ := v.Subject()
	assert.Equal(t, "Ali", again["first_name"])

	assert.Equal(t, Edit, Editing(rec).Mode())
	a := Adding()
	assert.True(t, a.Open())
	_, ok = a.Subject()
	assert.False(t, ok)
	assert.Equal(t, "add", a.Mode().String())
}

func TestModal_SubmitDoesNotClose(t *testing.T) {
	var submitted map[string]any
	var closed bool
	m := Open(Adding(), doctorSchema, Callbacks{
		OnSubmit: func(p map[string]any) { submitted = p },
		OnClose:  func() { closed = true },
	})

	require.NoError(t, m.Draft().Set("first_name", "Ali"))
	require.NoError(t, m.Draft().Set("last_name", "Hassan"))
	require.NoError(t, m.Draft().Set("email", "ali@afya.test"))
	require.NoError(t, m.Draft().Set("consultation_fee", "1500"))

	require.NoError(t, m.Submit())
	assert.False(t, closed, "submit leaves closing to the caller")
	assert.Equal(t, Add, m.Mode())

	assert.Equal(t, map[string]any{
		"first_name":       "Ali",
		"last_name":        "Hassan",
		"email":            "ali@afya.test",
		"password":         "12345678",
		"role":             "Doctor",
		"consultation_fee": int64(1500),
	}, submitted)

	m.Close()
	assert.True(t, closed)
}

func TestModal_RequiredFieldsBlockSubmit(t *testing.T) {
	calls := 0
	m := Open(Adding(), doctorSchema, Callbacks{OnSubmit: func(map[string]any) { calls++ }})
	require.NoError(t, m.Draft().Set("first_name", "Ali"))

	err := m.Submit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequired))
	assert.Equal(t, consoleerrors.ErrCodeFormRequired, consoleerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "last_name")
	assert.Equal(t, 0, calls)
}

func TestModal_InvalidInput(t *testing.T) {
	m := Open(Adding(), doctorSchema, Callbacks{})
	_ = m.Draft().Set("first_name", "A")
	_ = m.Draft().Set("last_name", "B")
	_ = m.Draft().Set("email", "a@b.c")
	_ = m.Draft().Set("consultation_fee", "lots")

	err := m.Submit()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRequired))
	assert.Equal(t, consoleerrors.ErrCodeFormInvalid, consoleerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "consultation_fee must be a number")
}

func TestModal_OptionsDoNotRestrictValues(t *testing.T) {
	var submitted map[string]any
	subject := map[string]any{
		"id":         float64(3),
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "jane@afya.test",
		"gender":     "Male",
	}
	m := Open(Editing(subject), doctorSchema, Callbacks{OnSubmit: func(p map[string]any) { submitted = p }})
	assert.Equal(t, "Male", m.Draft().Get("gender"))

	require.NoError(t, m.Draft().Set("affiliation", "Aga Khan"))
	require.NoError(t, m.Submit())
	assert.Equal(t, "Male", submitted["gender"])
	assert.Equal(t, "Aga Khan", submitted["affiliation"])

	require.NoError(t, m.Draft().Set("gender", "non-binary"))
	require.NoError(t, m.Submit())
	assert.Equal(t, "non-binary", submitted["gender"])
}

func TestModal_EditKeepsSubjectIntact(t *testing.T) {
	subject := map[string]any{
		"id":               float64(7),
		"first_name":       "Jane",
		"last_name":        "Doe",
		"email":            "jane@afya.test",
		"role":             "Doctor",
		"consultation_fee": float64(2000.5),
		"created_at":       "2026-01-01",
	}
	var submitted map[string]any
	m := Open(Editing(subject), doctorSchema, Callbacks{OnSubmit: func(p map[string]any) { submitted = p }})

	assert.Equal(t, "2000.5", m.Draft().Get("consultation_fee"))
	for _, f := range m.Fields() {
		assert.NotEqual(t, "password", f.Name, "password is add-only")
	}

	require.NoError(t, m.Draft().Set("first_name", "Janet"))
	require.NoError(t, m.Draft().Set("role", "Admin"), "read-only writes are ignored")
	require.NoError(t, m.Submit())

	assert.Equal(t, "Jane", subject["first_name"], "subject never mutated")
	assert.Equal(t, "Janet", submitted["first_name"])
	assert.Equal(t, "Doctor", submitted["role"])
	assert.Equal(t, 2000.5, submitted["consultation_fee"])
	assert.Equal(t, float64(7), submitted["id"])
	assert.Equal(t, "2026-01-01", submitted["created_at"])
	assert.Equal(t, "", submitted["affiliation"])
}

func TestModal_ViewCannotSubmit(t *testing.T) {
	called := false
	m := Open(Viewing(map[string]any{"id": 1}), doctorSchema, Callbacks{OnSubmit: func(map[string]any) { called = true }})
	require.Error(t, m.Submit())
	assert.False(t, called)
}

func TestDraft_PtrBinding(t *testing.T) {
	d := NewDraft(doctorSchema, Add, nil)
	p := d.Ptr("first_name")
	*p = "Bound"
	assert.Equal(t, "Bound", d.Get("first_name"))

	require.NoError(t, d.Set("first_name", "Set"))
	assert.Equal(t, "Set", *p)

	ro := d.Ptr("role")
	*ro = "Hacker"
	assert.Equal(t, "Doctor", d.Values()["role"])
}

func TestDraft_UnknownField(t *testing.T) {
	d := NewDraft(doctorSchema, Add, nil)
	err := d.Set("shoe_size", "44")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first_name")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "12", Format(float64(12)))
	assert.Equal(t, "12.25", Format(12.25))
	assert.Equal(t, "true", Format(true))
	assert.Equal(t, "x", Format("x"))
	assert.Equal(t, "7", Format(int64(7)))
}

// Property: a number typed into a Number field submits as a value that
// formats back to the same number.
func TestNumberCoercionRoundTrip(t *testing.T) {
	schema := Schema{{Name: "fee", Type: Number, Required: true}}
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.Int64Range(-1_000_000, 1_000_000).Draw(rt, "n")
		d := NewDraft(schema, Add, nil)
		_ = d.Set("fee", Format(float64(n)))

		p, err := d.Payload()
		if err != nil {
			rt.Fatalf("payload: %v", err)
		}
		if p["fee"] != n {
			rt.Fatalf("fee = %#v, want %d", p["fee"], n)
		}
	})
}
