package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"modnotifier/internal/decorate"
	"modnotifier/internal/domain"
)

type listOptions struct {
	skipCheck bool
	all       bool
	width     int
}

func newListCmd() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed modules, marking those with an update",
		Long: "List the installed modules the way the module management screen shows them.\n" +
			"Modules with a newer registry version are badged and carry a tooltip.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.width <= 0 {
				opts.width = terminalWidth(cmd.OutOrStdout())
			}
			return runList(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.skipCheck, "no-check", false, "List modules without checking the registry")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Include inactive modules")
	cmd.Flags().IntVar(&opts.width, "width", 0, "Line width (default: terminal width)")
	return cmd
}

func runList(ctx context.Context, out, errOut io.Writer, opts listOptions) error {
	rt, err := openRuntime(ctx, runtimeOptions{out: out})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	modules, err := rt.modules.Modules(ctx)
	if err != nil {
		return err
	}
	if !opts.all {
		modules = domain.ActiveModules(modules)
	}

	if !opts.skipCheck {
		if result := rt.service.CheckAndNotify(ctx); result.Failed() {
			_, _ = fmt.Fprintf(errOut, "Warning: update check failed, listing without update markers: %v\n", result.Err)
		}
	}

	rows := rt.service.Decorate(rowsFor(modules))
	if format := outputFormat(); isStructured(format) {
		return writeStructured(out, format, rows)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "No modules installed.")
		return nil
	}
	return decorate.Render(out, rows, opts.width)
}

func rowsFor(modules []domain.Module) []decorate.Row {
	rows := make([]decorate.Row, 0, len(modules))
	for _, m := range modules {
		tooltip := ""
		if !m.Active {
			tooltip = "Inactive"
		}
		rows = append(rows, decorate.Row{
			ID:      m.ID,
			Title:   m.DisplayTitle(),
			Version: m.Version,
			Tooltip: tooltip,
		})
	}
	return rows
}
