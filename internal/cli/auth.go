package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"parcelview/internal/backend"
	"parcelview/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in with email and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.ctrl.State() == session.StateAuthenticated {
				fmt.Fprintf(a.stdout, "Already signed in as %s\n", a.ctrl.User().Email)
				return nil
			}

			password, err := a.readPassword("Password: ")
			if err != nil {
				return err
			}

			res := a.ctrl.SignIn(cmd.Context(), strings.TrimSpace(args[0]), password)
			if res.Err != nil {
				return describeAuthError("login failed", res.Err)
			}
			fmt.Fprintf(a.stdout, "Signed in as %s\n", res.Data.User.Email)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wasSignedIn := a.ctrl.State() == session.StateAuthenticated
			if err := a.ctrl.SignOut(cmd.Context()); err != nil {
				// local state is already gone
				fmt.Fprintf(a.stderr, "warning: server sign-out failed: %v\n", err)
			}
			if wasSignedIn {
				fmt.Fprintln(a.stdout, "Signed out")
			} else {
				fmt.Fprintln(a.stdout, "Not signed in")
			}
			return nil
		},
	}
}

func newSignupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readPassword("Choose a password: ")
			if err != nil {
				return err
			}
			res := a.ctrl.SignUp(cmd.Context(), strings.TrimSpace(args[0]), password)
			if res.Err != nil {
				return describeAuthError("signup failed", res.Err)
			}
			fmt.Fprintf(a.stdout, "Account created for %s. Run `parcelctl login %s` to sign in.\n", res.Data.User.Email, res.Data.User.Email)
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSignedIn(); err != nil {
				return err
			}
			user, err := a.client.Me(cmd.Context())
			if err != nil {
				return describeAuthError("whoami failed", err)
			}
			fmt.Fprintf(a.stdout, "%s (%s)\n", user.Email, user.Role)
			fmt.Fprintf(a.stdout, "user id:    %s\n", user.ID)
			fmt.Fprintf(a.stdout, "session id: %s\n", a.ctrl.SessionID())
			return nil
		},
	}
}

// readPassword disables echo on a terminal and falls back to reading one line
// from stdin otherwise (pipes, tests).
func (a *app) readPassword(prompt string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.stderr, prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func describeAuthError(prefix string, err error) error {
	var authErr *backend.AuthError
	if errors.As(err, &authErr) {
		return fmt.Errorf("%s: %s", prefix, authErr.Message)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
