package cmd

import (
	"github.com/spf13/cobra"

	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/nav"
	"github.com/afyamkononi/afyadmin/internal/tui"
)

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the interactive console",
		Long: `Open the full-screen console: a sidebar of entities, searchable tables,
add/edit/view overlays and delete confirmations. Without a session the
sign-in screen is shown first.

Keys: tab moves between screens, / searches, f cycles the filter, a adds,
e edits, enter views, d deletes, r reloads, L signs out, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.interactive() {
				return errors.New(errors.ErrCodeConfigInvalid, "the console needs an interactive terminal").
					WithSuggestion("Use the entity commands, e.g. 'afyadmin doctors list', in scripts")
			}

			ctx := cmd.Context()
			store, err := a.openSession(ctx)
			if err != nil {
				return err
			}

			guard := nav.NewGuard(store, a.navigator)
			guard.Start()
			defer guard.Stop()

			// The console shows notifications itself.
			defer a.notes.Drain()

			return tui.Run(ctx, tui.Deps{
				Store:     store,
				Navigator: a.navigator,
				Guard:     guard,
				Registry:  a.registry,
				Client:    a.client,
				Notes:     a.notes,
				Logger:    a.logger,
				Metrics:   a.metrics,
			})
		},
	}
}
