package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/lade/internal/config"
	"github.com/systmms/lade/internal/logging"
)

// NewRootCommand wires every lade command to cfg. Global flags are copied
// into cfg before any command runs.
func NewRootCommand(cfg *config.Config, info BuildInfo) *cobra.Command {
	var (
		noColor        bool
		debug          bool
		nonInteractive bool
		metricsFile    string
	)

	rootCmd := &cobra.Command{
		Use:   "lade",
		Short: "Hydrate secrets for the commands you run",
		Long: `lade loads secrets from your vault(s) right before a matching command runs
and removes them once it is done. Rules live in lade.yaml files, looked up from
the current directory to the root.`,
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Logger = logging.New(debug, noColor)
			cfg.Debug = debug
			cfg.NonInteractive = nonInteractive
			cfg.MetricsFile = metricsFile
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write backend call metrics to this file in Prometheus text format")

	rootCmd.AddCommand(
		NewSetCommand(cfg),
		NewUnsetCommand(cfg),
		NewInjectCommand(cfg),
		NewUserCommand(cfg),
		NewVersionCommand(info),
	)

	return rootCmd
}
