// Package cli is the zomecall command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/morezero/zomecall/internal/config"
	"github.com/morezero/zomecall/internal/runner"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	URL      string
}

// ValidLogLevels defines the allowed log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// NewRootCommand creates the root command for the zomecall CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "zomecall",
		Short: "Call zome functions on a Holochain conductor",
		Long: `zomecall connects to a conductor app interface, resolves the first cell of an
installed app, calls one zome function and closes the connection.

Every setting has an environment variable (CONDUCTOR_URL, INSTALLED_APP_ID,
ZOME_NAME, FN_NAME, ZOME_PAYLOAD, ...); flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogLevel != "" && !isValidLogLevel(opts.LogLevel) {
				return fmt.Errorf("invalid log level %q: must be one of %v", opts.LogLevel, ValidLogLevels)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.URL, "url", "", "conductor address (ws://, wss:// or nats://), overrides CONDUCTOR_URL")

	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewProfilesCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies the global flags.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.URL != "" {
		cfg.ConductorURL = opts.URL
	}
	runner.SetupLogging(cfg.LogLevel, cmd.ErrOrStderr())
	return cfg, nil
}

func isValidLogLevel(level string) bool {
	for _, l := range ValidLogLevels {
		if l == level {
			return true
		}
	}
	return false
}
