package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/modal"
	"github.com/afyamkononi/afyadmin/internal/resource"
	"github.com/afyamkononi/afyadmin/internal/tui"
	"github.com/afyamkononi/afyadmin/internal/ux"
)

// recordList prints records as a table of the kind's columns.
type recordList struct {
	kind  *resource.Kind
	items []resource.Record
}

func (l recordList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l.items))
	for _, item := range l.items {
		row := make([]string, len(l.kind.Columns))
		for i, col := range l.kind.Columns {
			row[i] = item.Text(col)
		}
		rows = append(rows, row)
	}
	return l.kind.Columns, rows
}

// recordDetail prints one record as field/value pairs.
type recordDetail struct {
	kind *resource.Kind
	item resource.Record
}

func (d recordDetail) Table() ([]string, [][]string) {
	var rows [][]string
	seen := map[string]bool{}
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if f, ok := d.kind.Schema.Field(name); ok && f.Type == modal.Password {
			return
		}
		if _, ok := d.item[name]; !ok && name != "full_name" {
			return
		}
		rows = append(rows, []string{name, d.item.Text(name)})
	}
	for _, col := range d.kind.Columns {
		add(col)
	}
	for _, f := range d.kind.Schema {
		add(f.Name)
	}
	return []string{"field", "value"}, rows
}

// newResourceCmd builds the command group for one entity kind. Subcommands
// are only added for what the kind supports.
func newResourceCmd(a *app, kind *resource.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.Name,
		Short: fmt.Sprintf("Manage %s", kind.Noun),
	}

	if kind.Can(resource.CanList) {
		cmd.AddCommand(newListCmd(a, kind.Name), newGetCmd(a, kind.Name))
	}
	if kind.Can(resource.CanCreate) {
		cmd.AddCommand(newAddCmd(a, kind.Name))
	}
	if kind.Can(resource.CanUpdate) {
		if len(kind.Schema) > 0 {
			cmd.AddCommand(newEditCmd(a, kind.Name))
		}
		if kind.FilterField == "status" && contains(kind.Filters, "replied") {
			cmd.AddCommand(newReplyCmd(a, kind.Name))
		}
	}
	if kind.Can(resource.CanDelete) {
		cmd.AddCommand(newDeleteCmd(a, kind.Name))
	}
	return cmd
}

// controller opens a controller for name behind a signed-in session.
func (a *app) controller(ctx context.Context, name string) (*resource.Controller, error) {
	if _, err := a.requireSession(ctx); err != nil {
		return nil, err
	}
	return resource.NewController(a.kind(name), a.resourceOptions()), nil
}

func newListCmd(a *app, name string) *cobra.Command {
	var search, filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, err := a.controller(ctx, name)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if filter != "" {
				if err := ctrl.SetFilter(filter); err != nil {
					return err
				}
			}
			ctrl.Search(search)
			if err := a.wait("Loading "+ctrl.Kind().Noun+"...", func() error { return ctrl.Load(ctx) }); err != nil {
				return err
			}
			return a.printRecords(ctrl.Kind(), ctrl.Visible())
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "only show records matching this text")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only show records with this status")
	return cmd
}

func newGetCmd(a *app, name string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller(ctx, name)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := a.wait("Loading "+ctrl.Kind().Noun+"...", func() error { return ctrl.Load(ctx) }); err != nil {
				return err
			}
			item, ok := ctrl.Find(id)
			if !ok {
				return notFound(ctrl.Kind(), id)
			}
			if a.flags.output == "text" || a.flags.output == "" {
				return a.print(recordDetail{kind: ctrl.Kind(), item: item})
			}
			return a.print(item)
		},
	}
}

func newAddCmd(a *app, name string) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Long: `Add a record. Fields are given with --set; without any, an interactive
terminal shows a form.

Example:
  afyadmin doctors add --set first_name=Jane --set last_name=Doe ...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, err := a.controller(ctx, name)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.OpenAdd(); err != nil {
				return err
			}
			return a.submit(ctx, ctrl, sets)
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value as name=value (repeatable)")
	return cmd
}

func newEditCmd(a *app, name string) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller(ctx, name)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.Load(ctx); err != nil {
				return err
			}
			if err := ctrl.OpenEdit(id); err != nil {
				return err
			}
			return a.submit(ctx, ctrl, sets)
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value as name=value (repeatable)")
	return cmd
}

// submit fills the controller's open overlay from sets, or from a form, and
// submits it.
func (a *app) submit(ctx context.Context, ctrl *resource.Controller, sets []string) error {
	var result error
	m := ctrl.Overlay(ctx, func(err error) { result = err })

	if len(sets) == 0 && a.interactive() {
		if err := tui.FillModal(ctx, m); err != nil {
			m.Close()
			return err
		}
	}
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return errors.New(errors.ErrCodeFormInvalid, fmt.Sprintf("--set %q is not name=value", kv))
		}
		if err := m.Draft().Set(strings.TrimSpace(key), value); err != nil {
			return err
		}
	}

	if err := m.Submit(); err != nil {
		return err
	}
	return result
}

func newDeleteCmd(a *app, name string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller(ctx, name)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			return ctrl.Remove(ctx, id, a.confirmer(yes))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// confirmer picks how deletions are confirmed.
func (a *app) confirmer(yes bool) resource.Confirmer {
	switch {
	case yes:
		return resource.Confirmed
	case a.interactive():
		return tui.Confirmer{}
	default:
		return ux.NewPrompter(a.in, a.errOut)
	}
}

func newReplyCmd(a *app, name string) *cobra.Command {
	return &cobra.Command{
		Use:   "reply <id>",
		Short: "Mark a message as replied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller(ctx, name)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			return ctrl.MarkReplied(ctx, id)
		},
	}
}

func (a *app) printRecords(kind *resource.Kind, items []resource.Record) error {
	if a.flags.output == "text" || a.flags.output == "" {
		if len(items) == 0 {
			fmt.Fprintf(a.out, "No %s to show\n", kind.Noun)
			return nil
		}
		return a.print(recordList{kind: kind, items: items})
	}
	return a.print(items)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(errors.ErrCodeFormInvalid, fmt.Sprintf("%q is not a record id", s))
	}
	return id, nil
}

func notFound(kind *resource.Kind, id int64) error {
	return errors.Wrap(errors.ErrCodeResourceNotFound,
		fmt.Sprintf("no %s with id %d", kind.Singular, id), resource.ErrNotFound)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
