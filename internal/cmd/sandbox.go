package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/afyamkononi/afyadmin/internal/health"
	"github.com/afyamkononi/afyadmin/internal/sandbox"
	"github.com/afyamkononi/afyadmin/internal/version"
)

func newSandboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local stand-in for the backend",
	}
	cmd.AddCommand(newSandboxServeCmd(a))
	return cmd
}

func newSandboxServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		empty bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sandbox API until interrupted",
		Long: `Serve an in-memory copy of the admin API with seeded doctors,
appointments and feedback. Point the console at it with --base-url.

Example:
  afyadmin sandbox serve --addr 127.0.0.1:8089 &
  afyadmin --base-url http://127.0.0.1:8089 login --email admin@afya.test`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.Sandbox.Addr
			}

			srv, err := sandbox.New(sandbox.Config{
				Empty:         empty,
				AdminEmail:    a.cfg.Sandbox.AdminEmail,
				AdminPassword: a.cfg.Sandbox.AdminPassword,
				Metrics:       a.gatherer,
				Probes:        health.NewProbeManager(version.GetInfo().Short()),
				Logger:        a.logger,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()
			fmt.Fprintf(a.out, "Sandbox listening on http://%s (admin %s)\n", addr, a.cfg.Sandbox.AdminEmail)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from sandbox.addr)")
	cmd.Flags().BoolVar(&empty, "empty", false, "start without seed data")
	return cmd
}
