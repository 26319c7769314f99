package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/modal"
	"github.com/afyamkononi/afyadmin/internal/nav"
)

// Capability is an operation a kind offers.
type Capability uint8

const (
	CanList Capability = 1 << iota
	CanCreate
	CanUpdate
	CanDelete

	CanAll = CanList | CanCreate | CanUpdate | CanDelete
)

// String returns the verb used in messages, e.g. "created".
func (c Capability) String() string {
	switch c {
	case CanList:
		return "listed"
	case CanCreate:
		return "created"
	case CanUpdate:
		return "updated"
	case CanDelete:
		return "deleted"
	default:
		return "changed"
	}
}

// FilterAll is the filter value that keeps every item.
const FilterAll = "all"

// Kind describes one backend entity type and how the console treats it.
type Kind struct {
	// Name is the registry key and CLI command, e.g. "doctors".
	Name string
	// Singular names one record in messages, e.g. "doctor".
	Singular string
	// Noun names the collection in messages, e.g. "contact messages".
	Noun  string
	Title string
	Route nav.Route

	// Path is the collection endpoint, relative to the base URL or absolute.
	Path string
	// Envelope is the key wrapping the collection in list responses, if any.
	Envelope string

	// SearchFields are matched by Search. "full_name" joins first and last name.
	SearchFields []string
	// FilterField is compared against the active filter; Filters lists the
	// accepted values, FilterAll first.
	FilterField string
	Filters     []string

	// Columns are shown in tables, in order.
	Columns []string
	Schema  modal.Schema
	Caps    Capability

	// CountPath and CountKey locate the dashboard total, when the backend has one.
	CountPath string
	CountKey  string
}

// Can reports whether the kind offers c.
func (k *Kind) Can(c Capability) bool {
	return k.Caps&c == c
}

// ItemPath is the endpoint of the record with id.
func (k *Kind) ItemPath(id int64) string {
	return strings.TrimRight(k.Path, "/") + "/" + strconv.FormatInt(id, 10)
}

// ConfirmPrompt is the question asked before deleting a record.
func (k *Kind) ConfirmPrompt() string {
	return fmt.Sprintf("Are you sure you want to delete this %s?", k.Singular)
}

func (k *Kind) require(c Capability) error {
	if k.Can(c) {
		return nil
	}
	return errors.Wrap(errors.ErrCodeResourceUnsupported,
		fmt.Sprintf("%s cannot be %s from the console", k.Noun, c), ErrUnsupported)
}

// Registry holds the kinds the console manages.
type Registry struct {
	kinds []*Kind
}

// RegistryOptions adjusts the built-in kinds.
type RegistryOptions struct {
	// ContactURL overrides where contact messages are read from.
	ContactURL string
}

// DefaultContactURL is where the public site stores contact messages.
const DefaultContactURL = "https://api.afyamkononi.co.ke/api/v1.0/contact"

// NewRegistry returns the console's entity kinds.
func NewRegistry(opts RegistryOptions) *Registry {
	contactURL := opts.ContactURL
	if contactURL == "" {
		contactURL = DefaultContactURL
	}

	genders := []string{"male", "female", "other"}

	return &Registry{kinds: []*Kind{
		{
			Name: "doctors", Singular: "doctor", Noun: "doctors", Title: "Doctors",
			Route: nav.RouteDoctors, Path: "/doctors",
			SearchFields: []string{"full_name", "email", "specialization", "medical_license_number"},
			Columns:      []string{"id", "full_name", "email", "phone_number", "specialization", "consultation_fee"},
			Caps:         CanAll,
			CountPath:    "/doctors/count", CountKey: "total_doctors",
			Schema: modal.Schema{
				{Name: "first_name", Label: "First name", Required: true},
				{Name: "last_name", Label: "Last name", Required: true},
				{Name: "email", Label: "Email", Type: modal.Email, Required: true},
				{Name: "phone_number", Label: "Phone number", Required: true},
				{Name: "gender", Label: "Gender", Options: genders, Required: true},
				{Name: "specialization", Label: "Specialization", Required: true},
				{Name: "about", Label: "About", Type: modal.TextArea, Required: true},
				{Name: "role", Label: "Role", Default: "Doctor", ReadOnly: true},
				{Name: "password", Label: "Initial password", Type: modal.Password, Default: "12345678", ReadOnly: true, AddOnly: true},
				{Name: "affiliation", Label: "Affiliation"},
				{Name: "consultation_fee", Label: "Consultation fee", Type: modal.Number},
				{Name: "medical_license_number", Label: "Medical license number"},
				{Name: "image_url", Label: "Image URL", Type: modal.URL},
			},
		},
		{
			Name: "patients", Singular: "patient", Noun: "patients", Title: "Patients",
			Route: nav.RoutePatients, Path: "/patients",
			SearchFields: []string{"full_name", "email", "national_id"},
			Columns:      []string{"id", "full_name", "email", "phone_number", "national_id", "date_of_birth"},
			Caps:         CanAll,
			Schema: modal.Schema{
				{Name: "first_name", Label: "First name", Required: true},
				{Name: "last_name", Label: "Last name", Required: true},
				{Name: "email", Label: "Email", Type: modal.Email, Required: true},
				{Name: "phone_number", Label: "Phone number", Required: true},
				{Name: "gender", Label: "Gender", Options: genders, Required: true},
				{Name: "national_id", Label: "National ID", Required: true},
				{Name: "date_of_birth", Label: "Date of birth", Type: modal.Date, Required: true},
			},
		},
		{
			Name: "appointments", Singular: "appointment", Noun: "appointments", Title: "Appointments",
			Route: nav.RouteAppointments, Path: "/appointments",
			SearchFields: []string{"purpose", "details", "appointment_method"},
			FilterField:  "status",
			Filters:      []string{FilterAll, "scheduled", "completed", "cancelled"},
			Columns:      []string{"id", "date", "time", "appointment_method", "status", "patient_id", "doctor_id"},
			Caps:         CanAll,
			CountPath:    "/appointments/count", CountKey: "total_appointments",
			Schema: modal.Schema{
				{Name: "appointment_method", Label: "Method", Options: []string{"in-person", "video", "phone"}, Required: true},
				{Name: "date", Label: "Date", Type: modal.Date, Required: true},
				{Name: "time", Label: "Time", Type: modal.Time, Required: true},
				{Name: "status", Label: "Status", Type: modal.Select, Options: []string{"scheduled", "completed", "cancelled"}, Default: "scheduled"},
				{Name: "patient_id", Label: "Patient ID", Type: modal.Integer, Required: true},
				{Name: "doctor_id", Label: "Doctor ID", Type: modal.Integer, Required: true},
				{Name: "purpose", Label: "Purpose"},
				{Name: "details", Label: "Details", Type: modal.TextArea},
				{Name: "meet_link", Label: "Meeting link", Type: modal.URL},
				{Name: "room_id", Label: "Room ID"},
			},
		},
		{
			Name: "reports", Singular: "report", Noun: "reports", Title: "Reports",
			Route: nav.RouteReports, Path: "/reports",
			SearchFields: []string{"diagnosis", "prescription", "recommendations"},
			Columns:      []string{"id", "appointment_id", "doctor_id", "patient_id", "diagnosis", "created_at"},
			Caps:         CanList | CanCreate | CanDelete,
			Schema: modal.Schema{
				{Name: "appointment_id", Label: "Appointment ID", Type: modal.Integer, Required: true},
				{Name: "doctor_id", Label: "Doctor ID", Type: modal.Integer, Required: true},
				{Name: "patient_id", Label: "Patient ID", Type: modal.Integer, Required: true},
				{Name: "diagnosis", Label: "Diagnosis", Type: modal.TextArea, Required: true},
				{Name: "prescription", Label: "Prescription", Type: modal.TextArea, Required: true},
				{Name: "recommendations", Label: "Recommendations", Type: modal.TextArea},
			},
		},
		{
			Name: "feedback", Singular: "feedback", Noun: "feedbacks", Title: "Feedback",
			Route: nav.RouteFeedback, Path: "/feedbacks",
			SearchFields: []string{"comment"},
			Columns:      []string{"id", "patient_id", "rating", "upvotes", "comment", "created_at"},
			Caps:         CanList,
			CountPath:    "/feedback/count", CountKey: "total_feedbacks",
		},
		{
			Name: "contact", Singular: "contact message", Noun: "contact messages", Title: "Contact Messages",
			Route: nav.RouteContact, Path: contactURL, Envelope: "messages",
			SearchFields: []string{"name", "email", "subject"},
			FilterField:  "status",
			Filters:      []string{FilterAll, "replied", "unreplied"},
			Columns:      []string{"id", "name", "email", "subject", "status"},
			Caps:         CanList | CanUpdate,
			Schema: modal.Schema{
				{Name: "status", Label: "Status", Type: modal.Select, Options: []string{"replied", "unreplied"}, Required: true},
			},
		},
		{
			Name: "admins", Singular: "admin", Noun: "admins", Title: "Settings",
			Route: nav.RouteSettings, Path: "/admins",
			SearchFields: []string{"full_name", "email"},
			Columns:      []string{"id", "full_name", "email", "phone_number"},
			Caps:         CanList | CanCreate,
			Schema: modal.Schema{
				{Name: "first_name", Label: "First name", Required: true},
				{Name: "last_name", Label: "Last name", Required: true},
				{Name: "email", Label: "Email", Type: modal.Email, Required: true},
				{Name: "phone_number", Label: "Phone number", Required: true},
				{Name: "password", Label: "Password", Type: modal.Password, Required: true, AddOnly: true},
			},
		},
	}}
}

// Kinds returns every kind in sidebar order.
func (r *Registry) Kinds() []*Kind {
	return append([]*Kind(nil), r.kinds...)
}

// Names returns every kind name.
func (r *Registry) Names() []string {
	out := make([]string, len(r.kinds))
	for i, k := range r.kinds {
		out[i] = k.Name
	}
	return out
}

// Lookup finds a kind by name, singular or route.
func (r *Registry) Lookup(name string) (*Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, k := range r.kinds {
		if k.Name == n || k.Singular == n || string(k.Route) == n {
			return k, nil
		}
	}
	return nil, errors.NewUnknownKindError(name, r.Names())
}

// ForRoute returns the kind shown on route, if any.
func (r *Registry) ForRoute(route nav.Route) (*Kind, bool) {
	for _, k := range r.kinds {
		if k.Route == route {
			return k, true
		}
	}
	return nil, false
}

// MustLookup is Lookup for names known at compile time.
func (r *Registry) MustLookup(name string) *Kind {
	k, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return k
}
