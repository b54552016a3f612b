package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"modnotifier/internal/config"
	"modnotifier/internal/session"
)

type sessionOptions struct {
	once  bool
	delay time.Duration
}

func newSessionCmd() *cobra.Command {
	var opts sessionOptions
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Join the world as --user and run the startup check if elected",
		Long: "Join the world as the configured user. When that user is the active GM with the\n" +
			"smallest ID, one check runs after the initial delay. The session then keeps\n" +
			"running and checks again whenever the API key changes, until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("delay") {
				opts.delay = config.GetDuration(config.KeyInitialDelay)
			}
			return runSession(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.once, "once", false, "Exit after the startup check instead of watching for key changes")
	cmd.Flags().DurationVar(&opts.delay, "delay", session.DefaultInitialDelay, "Delay before the startup check")
	return cmd
}

func runSession(ctx context.Context, out, errOut io.Writer, opts sessionOptions) error {
	if strings.TrimSpace(config.GetString(config.KeyWorldUser)) == "" {
		return fmt.Errorf("session needs a user: pass --user or set %s", config.KeyWorldUser)
	}

	rt, err := openRuntime(ctx, runtimeOptions{out: out, notify: true, terminal: !isStructured(outputFormat())})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	rt.service.Bind(rt.store)
	if !opts.once {
		if err := rt.store.Watch(); err != nil {
			_, _ = fmt.Fprintf(errOut, "Warning: not watching the API key for changes: %v\n", err)
		}
	}

	users, err := rt.world.Users(ctx)
	if err != nil {
		return err
	}
	if !session.IsCoordinator(users, rt.currentUser) {
		_, _ = fmt.Fprintf(out, "%s is not the coordinating GM; no startup check scheduled.\n", rt.currentUser)
		if opts.once {
			return nil
		}
	} else {
		_, _ = fmt.Fprintf(out, "Checking for module updates in %s.\n", opts.delay)
	}

	sched := session.NewScheduler()
	done, err := rt.service.ScheduleStartupCheck(ctx, sched, opts.delay)
	if err != nil {
		return err
	}

	if opts.once {
		if done != nil {
			<-done
		}
		return nil
	}
	<-ctx.Done()
	sched.Wait()
	return nil
}
