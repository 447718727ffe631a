package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/lade/internal/config"
	dserrors "github.com/systmms/lade/internal/errors"
	"github.com/systmms/lade/internal/state"
)

func NewUserCommand(cfg *config.Config) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "user [name]",
		Short: "Show or change the user per-user secrets are selected for",
		Long: `Without arguments, print the user lade selects per-user secrets for.
With a name, save it as the user. With --reset, forget the saved user so lade
falls back to $USER, $USERNAME and then the OS account.

Examples:
  lade user
  lade user alice
  lade user --reset`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset && len(args) > 0 {
				return dserrors.UserError{
					Message:    "Cannot set and reset the user at once",
					Suggestion: "Use either 'lade user <name>' or 'lade user --reset'",
				}
			}

			store, err := stateStore(cfg)
			if err != nil {
				return err
			}
			st, err := store.Load()
			if err != nil {
				return dserrors.UserError{
					Message:    "Failed to read global state",
					Details:    err.Error(),
					Suggestion: fmt.Sprintf("Fix or delete %s", store.Path()),
					Err:        err,
				}
			}

			out := cmd.OutOrStdout()
			switch {
			case reset:
				st.User = ""
				if err := store.Save(st); err != nil {
					return err
				}
				fmt.Fprintf(out, "User reset, falling back to %s\n", displayUser(state.Identity(st, os.Getenv)))
			case len(args) == 1:
				st.User = args[0]
				if err := store.Save(st); err != nil {
					return err
				}
				fmt.Fprintf(out, "User set to %s\n", st.User)
			default:
				fmt.Fprintln(out, displayUser(state.Identity(st, os.Getenv)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Forget the saved user")

	return cmd
}

func displayUser(name string) string {
	if name == "" {
		return "(none)"
	}
	return name
}
