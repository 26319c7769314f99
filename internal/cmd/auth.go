package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/health"
	"github.com/afyamkononi/afyadmin/internal/tui"
	"github.com/afyamkononi/afyadmin/internal/ux"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		Long: `Sign in with an administrator email and password. The session token is
kept in the configured session store until 'afyadmin logout'.

Examples:
  # Prompt for credentials
  afyadmin login

  # Non-interactive, e.g. in scripts
  echo "$ADMIN_PASSWORD" | afyadmin login --email admin@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openSession(ctx)
			if err != nil {
				return err
			}

			email, password, err := a.credentials(ctx, email, passwordStdin)
			if err != nil {
				return err
			}

			var ok bool
			err = a.wait("Signing in...", func() (err error) {
				ok, err = store.Login(ctx, email, password)
				return err
			})
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(errors.ErrCodeAuthInvalidCredentials, "invalid email or password").
					WithSuggestion("Check the email and password and try again")
			}

			fmt.Fprintf(a.out, "Signed in as %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

// credentials resolves email and password from flags, stdin or prompts.
func (a *app) credentials(ctx context.Context, email string, passwordStdin bool) (string, string, error) {
	if passwordStdin {
		if email == "" {
			return "", "", errors.NewRequiredFieldError("--email")
		}
		password, err := readPassword(a.in)
		if err != nil {
			return "", "", err
		}
		return email, password, nil
	}

	if a.interactive() {
		return tui.PromptLogin(ctx, email)
	}

	p := ux.NewPrompter(a.in, a.errOut)
	if email == "" {
		email = p.String("Email", "")
	}
	password := p.String("Password", "")
	if email == "" {
		return "", "", errors.NewRequiredFieldError("email")
	}
	if password == "" {
		return "", "", errors.NewRequiredFieldError("password")
	}
	return email, password, nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.NewRequiredFieldError("password")
	}
	return password, nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			if !store.IsAuthenticated() {
				fmt.Fprintln(a.out, "Not signed in")
				return nil
			}
			if err := store.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

// StatusReport is the output of 'afyadmin status'.
type StatusReport struct {
	Timestamp time.Time                 `json:"timestamp" yaml:"timestamp"`
	BaseURL   string                    `json:"base_url" yaml:"base_url"`
	Email     string                    `json:"email,omitempty" yaml:"email,omitempty"`
	Status    health.Status             `json:"status" yaml:"status"`
	Checks    map[string]*health.Result `json:"checks" yaml:"checks"`
}

// Table implements ux.Tabular.
func (r StatusReport) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Checks)+1)
	for _, name := range health.SortedNames(r.Checks) {
		c := r.Checks[name]
		rows = append(rows, []string{name, string(c.Status), c.Message})
	}
	rows = append(rows, []string{"overall", string(r.Status), r.BaseURL})
	return []string{"check", "status", "message"}, rows
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and backend health",
		Long: `Check that the backend is reachable, the session token store can be read
and whether someone is signed in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openSession(ctx)
			if err != nil {
				return err
			}

			manager := health.NewManager()
			if a.cfg.API.Timeout > 0 {
				manager.WithTimeout(a.cfg.API.Timeout)
			}
			manager.AddChecker(health.NewBackendChecker(a.cfg.API.BaseURL, nil))
			manager.AddChecker(health.NewTokenStoreChecker(a.tokens))
			manager.AddChecker(health.NewSessionChecker(store))

			var results map[string]*health.Result
			_ = a.wait("Checking...", func() error {
				results = manager.Check(ctx)
				return nil
			})
			report := StatusReport{
				Timestamp: time.Now().UTC(),
				BaseURL:   a.cfg.API.BaseURL,
				Status:    manager.OverallStatus(results),
				Checks:    results,
			}
			if u := store.User(); u != nil {
				report.Email = u.Email
			}
			return a.print(report)
		},
	}
}
