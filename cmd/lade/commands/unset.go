package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/lade/internal/config"
	"github.com/systmms/lade/internal/outputs"
)

func NewUnsetCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unset -- <command> [args...]",
		Short: "Print shell code removing the secrets of a command",
		Long: `Print shell code unsetting every variable that "lade set" exported for the
command, and delete the files it wrote. No secret manager is contacted.

Meant to run from a shell hook after the command exits:
  eval "$(lade unset -- terraform apply)"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := commandLine(args, "lade unset -- <command> [args...]")
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

			env, files := outputs.Split(cfg.Rules.Keys(command))
			if err := outputs.Remove(outputs.Paths(files), cfg.Logger); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), sh.Unset(env))
			return nil
		},
	}

	return cmd
}
