package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/afyamkononi/afyadmin/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigPathCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Long: `Print the configuration after flags, environment, .env, the config file
and defaults have been merged. The sandbox password is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.output == "text" || a.flags.output == "" {
				shown := *a.cfg
				shown.Sandbox.AdminPassword = ""
				data, err := yaml.Marshal(shown)
				if err != nil {
					return fmt.Errorf("failed to marshal configuration: %w", err)
				}
				_, err = a.out.Write(data)
				return err
			}
			return a.print(a.cfg)
		},
	}
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where configuration and the session are read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := a.cfg.File
			if file == "" {
				file = "(none)"
			}
			fmt.Fprintf(a.out, "config file:  %s\n", file)
			fmt.Fprintf(a.out, "config dir:   %s\n", config.DefaultDir())
			fmt.Fprintf(a.out, "session:      %s %s\n", a.cfg.Session.Store, a.cfg.Session.Path)
			return nil
		},
	}
}
