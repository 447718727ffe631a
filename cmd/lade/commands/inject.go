package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/lade/internal/config"
	dserrors "github.com/systmms/lade/internal/errors"
	"github.com/systmms/lade/internal/execenv"
	"github.com/systmms/lade/internal/outputs"
	"github.com/systmms/lade/internal/secure"
)

func NewInjectCommand(cfg *config.Config) *cobra.Command {
	var (
		printVars  bool
		workingDir string
	)

	cmd := &cobra.Command{
		Use:   "inject -- <command> [args...]",
		Short: "Run a command with its secrets injected",
		Long: `Hydrate every rule matching the command, then run it with the variables
added to its environment. File outputs exist only while the command runs.
$VAR and ${VAR} in the arguments expand against the resulting environment.

The command must be separated from lade arguments with '--'.

Examples:
  lade inject -- terraform apply
  lade inject --print -- psql '$DATABASE_URL'`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := commandLine(args, "lade inject -- <command> [args...]")
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

			ctx := cmd.Context()
			hydrated, err := h.resolver.CollectCommand(ctx, cfg.Rules, command)
			if err != nil {
				return err
			}

			env, files := outputs.Split(hydrated)
			sealed, err := secure.SealEnv(env)
			if err != nil {
				return dserrors.UserError{
					Message:    "Failed to secure hydrated variables",
					Details:    err.Error(),
					Suggestion: "Try running with --debug for more information",
					Err:        err,
				}
			}
			defer sealed.Destroy()

			if _, err := outputs.Write(files, cfg.Logger); err != nil {
				return err
			}
			cfg.Logger.Info("Injecting %d variables", sealed.Len())

			code, execErr := execenv.New(cfg.Logger).Exec(ctx, execenv.ExecOptions{
				Command:     args,
				Environment: sealed,
				PrintVars:   printVars,
				WorkingDir:  workingDir,
				Stdin:       cmd.InOrStdin(),
				Stdout:      cmd.OutOrStdout(),
				Stderr:      cmd.ErrOrStderr(),
			})

			if err := outputs.Remove(outputs.Paths(files), cfg.Logger); err != nil {
				cfg.Logger.Warn("%v", err)
			}
			if execErr != nil {
				return execErr
			}
			if code != 0 {
				return ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printVars, "print", false, "Print injected variables (values masked)")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "Working directory for the command")

	return cmd
}
