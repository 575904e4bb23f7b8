package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to X.com in a browser window and save the session",
		Long: `Open a visible browser on the X.com login page. Log in by hand; the
session cookies are saved once the home timeline loads.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			if s.app.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Already logged in. Run `xe logout` first to switch accounts.")
				return nil
			}
			if err := s.app.TriggerLogin(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}
}

func newLogoutCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved X.com session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.app.TriggerLogout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
