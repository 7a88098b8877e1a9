package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"parcelview/internal/session"
)

const shellHelp = `Commands:
  whoami      show the signed-in user
  favorites   list favorite parcels
  extend      reset the inactivity timer
  logout      sign out and leave the shell
  exit        leave the shell (signs out)`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with inactivity timeout",
		Long: "shell keeps the session open. Every entered line counts as activity; " +
			"a warning is printed before the inactivity timeout and the session is " +
			"signed out when it expires or the shell is closed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSignedIn(); err != nil {
				return err
			}
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runShell(ctx, cmd)
		},
	}
}

func (a *app) runShell(ctx context.Context, cmd *cobra.Command) error {
	// the close hook: Ctrl-D, exit or a signal all end in a sign-out
	defer a.ctrl.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(a.stdout, "Signed in as %s. Type 'help' for commands.\n", a.ctrl.User().Email)
	for {
		fmt.Fprint(a.stdout, "parcel> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.stdout)
			return nil
		case <-a.expired:
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.stdout)
				return nil
			}
			a.ctrl.Tracker().RecordActivity(session.KeyPress)
			if done := a.shellCommand(cmd, strings.TrimSpace(line)); done {
				return nil
			}
		}
	}
}

// shellCommand runs one line and reports whether the shell should exit.
func (a *app) shellCommand(cmd *cobra.Command, line string) bool {
	switch line {
	case "":
	case "help", "?":
		fmt.Fprintln(a.stdout, shellHelp)
	case "whoami":
		user, err := a.client.Me(cmd.Context())
		if err != nil {
			fmt.Fprintln(a.stderr, describeAuthError("whoami failed", err))
			break
		}
		fmt.Fprintf(a.stdout, "%s (%s), session %s\n", user.Email, user.Role, a.ctrl.SessionID())
	case "favorites":
		parcels, err := a.client.ListFavorites(cmd.Context())
		if err != nil {
			fmt.Fprintln(a.stderr, describeAuthError("list favorites", err))
			break
		}
		printFavorites(a.stdout, parcels)
	case "extend":
		a.ctrl.Tracker().Extend()
		fmt.Fprintln(a.stdout, "Session extended")
	case "logout":
		if err := a.ctrl.SignOut(cmd.Context()); err != nil {
			fmt.Fprintf(a.stderr, "warning: server sign-out failed: %v\n", err)
		}
		fmt.Fprintln(a.stdout, "Signed out")
		return true
	case "exit", "quit":
		return true
	default:
		fmt.Fprintf(a.stderr, "unknown command %q; type 'help'\n", line)
	}
	return false
}
