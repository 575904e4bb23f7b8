package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ibeckermayer/xengage/internal/config"
)

func newSecretCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets kept in the system keychain",
	}
	cmd.AddCommand(newSetSMTPCmd(g))
	cmd.AddCommand(newDeleteSMTPCmd(g))
	return cmd
}

func newSetSMTPCmd(g *globalFlags) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "set-smtp",
		Short: "Store the SMTP password for email summaries",
		Long: `Prompt for the SMTP password and store it in the system keychain, so it
never has to appear in the config file or the shell history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := smtpUser(g, user)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "SMTP password for %s: ", name)
			pass, err := readSecret(cmd.InOrStdin())
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if pass == "" {
				return errors.New("no password provided")
			}

			if err := config.StoreSMTPPassword(name, pass); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password saved to the system keychain.")
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "SMTP user (default: email.smtp_user)")
	return cmd
}

func newDeleteSMTPCmd(g *globalFlags) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "delete-smtp",
		Short: "Remove the stored SMTP password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := smtpUser(g, user)
			if err != nil {
				return err
			}
			if err := config.DeleteSMTPPassword(name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password removed.")
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "SMTP user (default: email.smtp_user)")
	return cmd
}

func smtpUser(g *globalFlags, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Email.SMTPUser == "" {
		return "", errors.New("email.smtp_user is not set, pass --user")
	}
	return cfg.Email.SMTPUser, nil
}

// readSecret reads a line without echo when in is a terminal
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
