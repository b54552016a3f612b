package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"modnotifier/internal/domain"
)

func newWorldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "world",
		Short: "Inspect and seed the world database",
	}

	var title string
	var inactive bool
	seedModule := &cobra.Command{
		Use:   "seed-module <id> <version>",
		Short: "Add or update an installed module",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := openWorld(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = world.Close() }()
			module, err := domain.NewModule(args[0], title, args[1], !inactive)
			if err != nil {
				return err
			}
			if err := world.UpsertModule(cmd.Context(), module); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Module %s %s saved.\n", module.ID, module.Version)
			return nil
		},
	}
	seedModule.Flags().StringVar(&title, "title", "", "Display title (defaults to the id)")
	seedModule.Flags().BoolVar(&inactive, "inactive", false, "Mark the module inactive")

	var name string
	var gm, away bool
	seedUser := &cobra.Command{
		Use:   "seed-user <id>",
		Short: "Add or update a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := openWorld(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = world.Close() }()
			user, err := domain.NewUser(args[0], name, gm, !away)
			if err != nil {
				return err
			}
			if err := world.UpsertUser(cmd.Context(), user); err != nil {
				return err
			}
			role := "player"
			if user.IsGM {
				role = "GM"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %s (%s) saved.\n", user.ID, role)
			return nil
		},
	}
	seedUser.Flags().StringVar(&name, "name", "", "Display name")
	seedUser.Flags().BoolVar(&gm, "gm", false, "Give the user GM rights")
	seedUser.Flags().BoolVar(&away, "inactive", false, "Mark the user as not connected")

	var as string
	chat := &cobra.Command{
		Use:   "chat",
		Short: "Print the world's chat log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			world, err := openWorld(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = world.Close() }()
			messages, err := world.ChatMessages(cmd.Context(), as)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format := outputFormat(); isStructured(format) {
				return writeStructured(out, format, messages)
			}
			if len(messages) == 0 {
				_, _ = fmt.Fprintln(out, "No chat messages.")
				return nil
			}
			for _, msg := range messages {
				audience := "everyone"
				if len(msg.Whisper) > 0 {
					audience = "whisper to " + strings.Join(msg.Whisper, ", ")
				}
				_, _ = fmt.Fprintf(out, "[%s] %s (%s)\n%s\n",
					msg.CreatedAt.Local().Format(time.DateTime), msg.Speaker, audience, strings.TrimSpace(msg.Content))
			}
			return nil
		},
	}
	chat.Flags().StringVar(&as, "as", "", "Only show messages visible to this user")

	cmd.AddCommand(seedModule, seedUser, chat)
	return cmd
}
