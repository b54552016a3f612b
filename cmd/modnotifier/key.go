package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"modnotifier/internal/config"
	"modnotifier/internal/settings"
	"modnotifier/internal/ui"
)

type keyOptions struct {
	noCheck bool
}

func newKeyCmd() *cobra.Command {
	var opts keyOptions
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the package registry API key",
		Long: "Set, import or show the registry API key. Saving a key runs a check right away\n" +
			"unless --no-check is given.",
	}
	cmd.PersistentFlags().BoolVar(&opts.noCheck, "no-check", false, "Do not check for updates after saving")

	setCmd := &cobra.Command{
		Use:   "set <api-key>",
		Short: "Save the API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveKey(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <path/to/license.mjs>",
		Short: "Extract the API key from the host's license.mjs file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey, err := settings.ExtractAPIKeyFromFile(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "API key extracted from "+settings.LicenseFileName+".")
			return saveKey(cmd.Context(), cmd.OutOrStdout(), apiKey, opts)
		},
	}

	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the API key in an interactive form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current := settings.NewStore(nil).APIKey()
			apiKey, ok, err := ui.RunKeyForm(current, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled; API key unchanged.")
				return nil
			}
			return saveKey(cmd.Context(), cmd.OutOrStdout(), apiKey, opts)
		},
	}

	var reveal bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the configured API key",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			apiKey := settings.NewStore(nil).APIKey()
			if !reveal {
				apiKey = maskKey(apiKey)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), apiKey)
		},
	}
	showCmd.Flags().BoolVar(&reveal, "reveal", false, "Print the key in full")

	cmd.AddCommand(setCmd, importCmd, editCmd, showCmd)
	return cmd
}

// saveKey stores the key. Unless disabled, a check bound to the key change
// runs as soon as the key is saved.
func saveKey(ctx context.Context, out io.Writer, apiKey string, opts keyOptions) error {
	if opts.noCheck {
		if err := settings.NewStore(nil).SetAPIKey(apiKey); err != nil {
			return err
		}
		return printSaved(out)
	}

	rt, err := openRuntime(ctx, runtimeOptions{out: out, notify: true, terminal: !isStructured(outputFormat())})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	rt.service.Bind(rt.store)
	if err := rt.store.SetAPIKey(apiKey); err != nil {
		return err
	}
	return printSaved(out)
}

func printSaved(out io.Writer) error {
	path, err := config.WritablePath()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "API key saved to %s\n", path)
	return nil
}

func maskKey(apiKey string) string {
	apiKey = strings.TrimSpace(apiKey)
	switch {
	case apiKey == "":
		return "(not set)"
	case len(apiKey) <= 4:
		return strings.Repeat("*", len(apiKey))
	default:
		return apiKey[:4] + strings.Repeat("*", len(apiKey)-4)
	}
}
