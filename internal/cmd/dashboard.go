package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/afyamkononi/afyadmin/internal/resource"
)

// dashboardView renders the totals as a table in text mode.
type dashboardView struct {
	resource.Counts `yaml:",inline"`
}

func (v dashboardView) Table() ([]string, [][]string) {
	return []string{"entity", "total"}, [][]string{
		{"doctors", strconv.FormatInt(v.Doctors, 10)},
		{"appointments", strconv.FormatInt(v.Appointments, 10)},
		{"feedback", strconv.FormatInt(v.Feedback, 10)},
	}
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the dashboard totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			var counts resource.Counts
			err := a.wait("Loading dashboard...", func() (err error) {
				counts, err = resource.NewOverview(a.registry, a.resourceOptions()).Load(ctx)
				return err
			})
			if err != nil {
				return err
			}
			return a.print(dashboardView{counts})
		},
	}
}
