package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"

	"github.com/afyamkononi/afyadmin/internal/api"
	"github.com/afyamkononi/afyadmin/internal/config"
	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/metrics"
	"github.com/afyamkononi/afyadmin/internal/nav"
	"github.com/afyamkononi/afyadmin/internal/notify"
	"github.com/afyamkononi/afyadmin/internal/progress"
	"github.com/afyamkononi/afyadmin/internal/resource"
	"github.com/afyamkononi/afyadmin/internal/session"
	"github.com/afyamkononi/afyadmin/internal/telemetry"
	"github.com/afyamkononi/afyadmin/internal/ux"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configFile string
	output     string
	noColor    bool
}

// app holds what commands share. It is filled by the root command's
// PersistentPreRunE; the session half is only built by commands that talk to
// the backend.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	flags globalFlags

	cfg      *config.Config
	logger   *log.Logger
	registry *resource.Registry
	gatherer prometheus.Gatherer
	metrics  *metrics.Metrics
	notes    *notify.Channel

	span           trace.Span
	shutdownTracer func(context.Context) error

	client    *api.Client
	tokens    session.TokenStore
	navigator *nav.Navigator
	store     *session.Store
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut}
}

// setup loads configuration and the ambient stack.
func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	bind := map[string]*pflag.Flag{
		"api.base_url":    flags.Lookup("base-url"),
		"api.contact_url": flags.Lookup("contact-url"),
		"api.timeout":     flags.Lookup("timeout"),
		"session.store":   flags.Lookup("session-store"),
		"session.path":    flags.Lookup("session-path"),
		"log.level":       flags.Lookup("log-level"),
		"log.format":      flags.Lookup("log-format"),
	}

	file := a.flags.configFile
	if file == "" {
		if wd, err := os.Getwd(); err == nil {
			file = ux.DiscoverConfigFile(wd, "")
		}
	}

	cfg, err := config.Load(config.Options{File: file, Flags: bind})
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = log.New(cfg.LoggerConfig())
	log.SetDefaultLogger(a.logger)

	registry, m := metrics.NewRegistry()
	a.gatherer = registry
	a.metrics = m

	a.notes = notify.NewChannel(0)
	a.registry = resource.NewRegistry(resource.RegistryOptions{ContactURL: cfg.API.ContactURL})

	shutdown, err := telemetry.InitProvider(cmd.Context(), cfg.TracerConfig())
	if err != nil {
		a.logger.WithError(err).Warn("tracing disabled")
		shutdown = func(context.Context) error { return nil }
	}
	a.shutdownTracer = shutdown

	a.logger.Debug("configuration loaded", "file", cfg.File, "base_url", cfg.API.BaseURL)
	return nil
}

// openSession builds the API client and session store and restores any
// persisted session. It is idempotent.
func (a *app) openSession(ctx context.Context) (*session.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	client, err := api.NewClient(api.Config{
		BaseURL:   a.cfg.API.BaseURL,
		Timeout:   a.cfg.API.Timeout,
		RateLimit: a.cfg.API.RateLimit,
		RateBurst: a.cfg.API.RateBurst,
		Logger:    a.logger,
		Metrics:   a.metrics,
	})
	if err != nil {
		return nil, err
	}

	a.client = client
	a.tokens = a.tokenStore()
	a.navigator = nav.NewNavigator(nav.RouteDashboard)
	a.store = session.NewStore(session.Options{
		Backend:   client,
		Navigator: a.navigator,
		Tokens:    a.tokens,
		Logger:    a.logger,
		Metrics:   a.metrics,
	})
	if err := a.store.Init(ctx); err != nil {
		a.logger.WithError(err).Warn("could not restore session")
	}
	return a.store, nil
}

// requireSession is openSession for commands that need a signed-in operator.
func (a *app) requireSession(ctx context.Context) (*session.Store, error) {
	store, err := a.openSession(ctx)
	if err != nil {
		return nil, err
	}
	if !store.IsAuthenticated() {
		return nil, errors.NewNotLoggedInError()
	}
	return store, nil
}

func (a *app) tokenStore() session.TokenStore {
	switch a.cfg.Session.Store {
	case config.StoreMemory:
		return session.NewMemoryTokenStore()
	case config.StoreBolt:
		return session.NewBoltTokenStore(a.cfg.Session.Path)
	default:
		return session.NewFileTokenStore(a.cfg.Session.Path)
	}
}

func (a *app) resourceOptions() resource.Options {
	return resource.Options{
		Client:   a.client,
		Notifier: a.notes,
		Logger:   a.logger,
		Metrics:  a.metrics,
	}
}

// print writes data in the selected output format.
func (a *app) print(data any) error {
	f, err := ux.NewFormatter(a.flags.output, &ux.FormatterOptions{Writer: a.out, NoColor: a.flags.noColor})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// flushNotes prints pending notifications to stderr.
func (a *app) flushNotes() {
	if a.notes == nil {
		return
	}
	for _, n := range a.notes.Drain() {
		mark := "✓"
		if n.Severity == notify.Error {
			mark = "✗"
		}
		fmt.Fprintf(a.errOut, "%s %s: %s\n", mark, n.Title, n.Description)
	}
}

func (a *app) close(ctx context.Context) {
	a.flushNotes()
	if a.span != nil {
		a.span.End()
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.WithError(err).Warn("tracer shutdown failed")
		}
	}
}

// wait runs fn behind a spinner on interactive terminals.
func (a *app) wait(message string, fn func() error) error {
	return progress.Run(progress.Config{
		Writer:      a.errOut,
		Message:     message,
		ShowSpinner: a.interactive(),
	}, fn)
}

// interactive reports whether prompts may be shown.
func (a *app) interactive() bool {
	return a.in == os.Stdin && tuiShouldPrompt()
}

// kinds lists the managed entities. Command shapes do not depend on
// configuration, so a default registry is enough.
func (a *app) kinds() []*resource.Kind {
	return resource.NewRegistry(resource.RegistryOptions{}).Kinds()
}

// kind returns the configured kind named name.
func (a *app) kind(name string) *resource.Kind {
	return a.registry.MustLookup(name)
}
