package main

import (
	"context"
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"modnotifier/internal/notify"
)

type checkOptions struct {
	copy    bool
	spinner bool
}

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	var noSpinner bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check installed modules against the package registry",
		Long: "Fetch the registry package list, compare it with the active installed modules\n" +
			"and post the result to the world's chat log (and webhook, if configured).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.spinner = !noSpinner
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the result to the clipboard")
	cmd.Flags().BoolVar(&noSpinner, "no-spinner", false, "Do not show check progress")
	return cmd
}

func runCheck(ctx context.Context, out, errOut io.Writer, opts checkOptions) error {
	format := outputFormat()

	var sp *checkSpinner
	if opts.spinner && !isStructured(format) && isTerminal(errOut) {
		sp = newCheckSpinner(errOut, defaultSpinnerDelay)
	}

	rt, err := openRuntime(ctx, runtimeOptions{
		out:      out,
		progress: sp.Stage,
		notify:   true,
		terminal: !isStructured(format),
	})
	if err != nil {
		sp.Stop()
		return err
	}
	defer func() { _ = rt.Close() }()

	result := rt.service.CheckAndNotify(ctx)
	sp.Stop()

	if isStructured(format) {
		if err := writeStructured(out, format, reportFor(result)); err != nil {
			return err
		}
	}

	if opts.copy && !result.Failed() {
		if err := clipboardWrite(notify.PlainText(messageFor(result))); err != nil {
			_, _ = fmt.Fprintf(errOut, "Warning: could not copy to clipboard: %v\n", err)
		} else if !isStructured(format) {
			_, _ = fmt.Fprintln(out, "Copied the result to the clipboard.")
		}
	}

	if handleCheckResult(errOut, result) {
		return errCheckFailed
	}
	return nil
}
