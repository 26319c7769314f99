package tui

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/afyamkononi/afyadmin/internal/modal"
)

// PromptLogin asks for the operator's credentials. email pre-fills the first
// field.
func PromptLogin(ctx context.Context, email string) (string, string, error) {
	creds := &credentials{email: email}
	if err := loginForm(creds).RunWithContext(ctx); err != nil {
		return "", "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(creds.email), creds.password, nil
}

// Confirmer asks yes/no questions with a huh confirm field. It satisfies
// resource.Confirmer.
type Confirmer struct{}

// Confirm displays prompt and returns the answer. The default is no.
func (Confirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	var confirmed bool

	confirm := huh.NewConfirm().
		Title(prompt).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&confirmed)

	if err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(ctx); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

// FillModal shows the form for an Add or Edit modal and leaves the answers in
// its draft. It does not submit.
func FillModal(ctx context.Context, m *modal.Modal) error {
	if m.Mode() != modal.Add && m.Mode() != modal.Edit {
		return fmt.Errorf("a %s overlay has no form", m.Mode())
	}
	if err := modalForm(m).RunWithContext(ctx); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// loginForm builds the sign-in form bound to creds.
func loginForm(creds *credentials) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("admin@example.com").
				Value(&creds.email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.password).
				Validate(required("password")),
		),
	).WithShowHelp(false)
}

// modalForm builds one input per field of m, bound to its draft. Read-only
// fields are shown as notes.
func modalForm(m *modal.Modal) *huh.Form {
	d := m.Draft()
	fields := make([]huh.Field, 0, len(m.Fields()))

	for _, f := range m.Fields() {
		title := f.Label
		if f.Required {
			title += " *"
		}

		switch {
		case f.ReadOnly:
			value := d.Get(f.Name)
			if f.Type == modal.Password {
				value = strings.Repeat("•", len(value))
			}
			fields = append(fields, huh.NewNote().Title(title).Description(value))

		case f.Type == modal.Select:
			fields = append(fields, huh.NewSelect[string]().
				Title(title).
				Options(huh.NewOptions(choices(f.Options, d.Get(f.Name))...)...).
				Value(d.Ptr(f.Name)))

		case f.Type == modal.TextArea:
			fields = append(fields, huh.NewText().
				Title(title).
				Value(d.Ptr(f.Name)))

		default:
			input := huh.NewInput().
				Title(title).
				Placeholder(placeholder(f.Type)).
				Value(d.Ptr(f.Name))
			if f.Type == modal.Password {
				input = input.EchoMode(huh.EchoModePassword)
			}
			if len(f.Options) > 0 {
				input = input.Suggestions(f.Options)
			}
			fields = append(fields, input)
		}
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(false)
}

// choices returns options with current appended when the record holds a value
// outside them, so editing does not silently replace it.
func choices(options []string, current string) []string {
	if current == "" || slices.Contains(options, current) {
		return options
	}
	return append(slices.Clone(options), current)
}

func placeholder(t modal.FieldType) string {
	switch t {
	case modal.Email:
		return "name@example.com"
	case modal.Date:
		return "YYYY-MM-DD"
	case modal.Time:
		return "HH:MM"
	case modal.URL:
		return "https://"
	case modal.Number, modal.Integer:
		return "0"
	}
	return ""
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	// Check common CI environment variables
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"BUILDKITE",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return IsInteractive()
}
