package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/lade/internal/config"
	"github.com/systmms/lade/internal/outputs"
)

const defaultRetryDelay = 5 * time.Second

func NewSetCommand(cfg *config.Config) *cobra.Command {
	var retryDelay time.Duration

	cmd := &cobra.Command{
		Use:   "set -- <command> [args...]",
		Short: "Print shell code exporting the secrets of a command",
		Long: `Hydrate every rule matching the command and print shell code that exports
the resulting variables. Rules with a file output are written to their file
instead, which must not exist yet.

Meant to run from a shell hook before the command executes:
  eval "$(lade set -- terraform apply)"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := commandLine(args, "lade set -- <command> [args...]")
			if err != nil {
				return err
			}
			sh, err := detectShell()
			if err != nil {
				return err
			}
			if err := loadRules(cfg); err != nil {
				return err
			}

			h, err := newHydration(cfg)
			if err != nil {
				return err
			}
			defer h.flush()

			hydrated, err := h.resolver.CollectCommand(cmd.Context(), cfg.Rules, command)
			if err != nil {
				return hydrationFailed(cmd.Context(), cmd.ErrOrStderr(), err, retryDelay)
			}

			env, files := outputs.Split(hydrated)
			if _, err := outputs.Write(files, cfg.Logger); err != nil {
				return err
			}

			cfg.Logger.Debug("Exporting %d variables", len(env))
			fmt.Fprintln(cmd.OutOrStdout(), sh.Set(env))
			return nil
		},
	}

	cmd.Flags().DurationVar(&retryDelay, "retry-delay", defaultRetryDelay, "Time to wait after a failed hydration before exiting")

	return cmd
}
