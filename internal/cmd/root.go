package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/afyamkononi/afyadmin/internal/telemetry"
	"github.com/afyamkononi/afyadmin/internal/tui"
	"github.com/afyamkononi/afyadmin/internal/ux"
)

// tuiShouldPrompt is replaced in tests.
var tuiShouldPrompt = tui.ShouldPrompt

// NewRootCommand builds the command tree reading from in and writing to out
// and errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root, _ := newRoot(in, out, errOut)
	return root
}

func newRoot(in io.Reader, out, errOut io.Writer) (*cobra.Command, *app) {
	a := newApp(in, out, errOut)

	root := &cobra.Command{
		Use:   "afyadmin",
		Short: "Admin console for the Afya Mkononi telemedicine platform",
		Long: `afyadmin manages the telemedicine backend: doctors, patients, appointments,
reports, feedback and contact messages.

Sign in once with 'afyadmin login'; the session is kept under ~/.afyadmin
until you log out or the backend rejects it. Run 'afyadmin console' for the
interactive console, or use the entity commands from scripts.

Configuration is read from flags, AFYADMIN_* environment variables, a .env
file, .afyadmin.yaml in the project or ~/.afyadmin/config.yaml, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx, span := telemetry.StartCommandSpan(cmd.Context(), cmd.CommandPath())
			a.span = span
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "config file (default is .afyadmin.yaml or ~/.afyadmin/config.yaml)")
	pf.StringVarP(&a.flags.output, "output", "o", "text", "output format: text, json or yaml")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "disable colored output")
	pf.String("base-url", "", "backend base URL")
	pf.String("contact-url", "", "contact messages endpoint")
	pf.Duration("timeout", 0, "request timeout")
	pf.String("session-store", "", "where the session token is kept: memory, file or bolt")
	pf.String("session-path", "", "session file path")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: text or json")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newDashboardCmd(a),
		newConsoleCmd(a),
		newSandboxCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	for _, kind := range a.kinds() {
		root.AddCommand(newResourceCmd(a, kind))
	}

	return root, a
}

// ExecuteContext runs the CLI with os streams. Errors come back enhanced
// with recovery suggestions.
func ExecuteContext(ctx context.Context) error {
	root, a := newRoot(os.Stdin, os.Stdout, os.Stderr)
	return run(ctx, root, a)
}

func run(ctx context.Context, root *cobra.Command, a *app) error {
	start := time.Now()

	cmd, err := root.ExecuteContextC(ctx)

	if a.cfg != nil {
		a.metrics.ObserveCommand(cmd.CommandPath(), err == nil, time.Since(start))
		if err != nil && a.span != nil {
			telemetry.RecordError(a.span, err)
		}
		a.close(context.WithoutCancel(ctx))
	}
	if err != nil {
		return ux.EnhanceError(err)
	}
	return nil
}
