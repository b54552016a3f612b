package main

import (
	"strings"

	"github.com/spf13/cobra"

	"modnotifier/internal/config"
	"modnotifier/internal/debug"
)

// flagConfigKeys maps persistent flags onto the config keys they override.
var flagConfigKeys = map[string]string{
	"world":        config.KeyWorldDatabase,
	"modules-dir":  config.KeyModulesDir,
	"user":         config.KeyWorldUser,
	"format":       config.KeyOutputFormat,
	"endpoint":     config.KeyRegistryEndpoint,
	"core-version": config.KeyCoreVersion,
	"webhook":      config.KeyWebhookURL,
}

func newRootCmd() *cobra.Command {
	var debugFlag bool

	root := &cobra.Command{
		Use:   "modnotifier",
		Short: "Tell GMs when installed modules have newer versions",
		Long: "modnotifier compares the modules installed in a world with the package registry\n" +
			"and posts the modules that have a newer version to the world's GMs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyFlagOverrides(cmd); err != nil {
				return err
			}
			if debugFlag {
				return debug.Init(true)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			debug.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&debugFlag, "debug", false, "Write a debug log to ~/.modnotifier/debug.log")
	flags.String("world", "", "Path to the world database (default ~/.modnotifier/world.db)")
	flags.String("modules-dir", "", "Read installed modules from module.json manifests in this directory")
	flags.String("user", "", "ID of the user running the tool")
	flags.String("format", "", "Output format: rich, light, plain, json or yaml")
	flags.String("endpoint", "", "Package registry endpoint")
	flags.String("core-version", "", "Core version sent with the registry query")
	flags.String("webhook", "", "Also post notifications to this Slack-compatible webhook")

	root.AddCommand(
		newCheckCmd(),
		newListCmd(),
		newKeyCmd(),
		newSessionCmd(),
		newWorldCmd(),
		newVersionCmd(),
	)
	return root
}

// applyFlagOverrides copies explicitly set flags into the configuration.
func applyFlagOverrides(cmd *cobra.Command) error {
	overrides := make(map[string]any)
	for name, key := range flagConfigKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		overrides[key] = strings.TrimSpace(f.Value.String())
	}
	return config.ApplyOverrides(overrides)
}
