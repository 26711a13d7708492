package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"eunoia.dev/pkg/eunoia/session"
)

var errEmptyPassword = errors.New("password is empty")

func (app *cli) loginCmd() *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := app.readPassword(passwordStdin)
			if err != nil {
				return app.fail(err)
			}

			return app.run(cmd, func(ctx context.Context) error {
				s, err := app.c.SignIn(ctx, email, password)
				if err != nil {
					return err
				}

				fmt.Fprintf(app.out, "Signed in as %s until %s\n", s.Email, s.ExpiresAt.Local().Format(time.RFC1123))

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func (app *cli) readPassword(fromStdin bool) (string, error) {
	if f, ok := app.in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(app.errOut, "Password: ")

		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(app.errOut)

		if err != nil {
			return "", err
		}

		return nonEmpty(string(b))
	}

	line, err := bufio.NewReader(app.in).ReadString('\n')
	if err != nil && line == "" {
		return "", errEmptyPassword
	}

	return nonEmpty(strings.TrimRight(line, "\r\n"))
}

func nonEmpty(password string) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}

	return password, nil
}

func (app *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context) error {
				if err := app.c.Sessions.SignOut(ctx); err != nil {
					return err
				}

				fmt.Fprintln(app.out, "Signed out")

				return nil
			})
		},
	}
}

func (app *cli) sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context) error {
				s, err := app.c.Sessions.GetSession(ctx)
				if err != nil {
					return err
				}

				app.printSession(s)

				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Keep the session fresh in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.c.Sessions.OnSessionChange(func(event session.Event, s *session.Session) {
				fmt.Fprintf(app.out, "%s ", event)
				app.printSession(s)
			})

			app.c.Poller.Run(cmd.Context())

			return nil
		},
	})

	return cmd
}

func (app *cli) printSession(s *session.Session) {
	if !s.Valid() {
		fmt.Fprintln(app.out, "Not signed in")
		return
	}

	left := s.Remaining(time.Now())

	switch {
	case s.ExpiresAt.IsZero():
		fmt.Fprintf(app.out, "%s, token does not expire\n", s.Email)
	case left <= 0:
		fmt.Fprintf(app.out, "%s, token expired %s ago\n", s.Email, (-left).Round(time.Second))
	default:
		fmt.Fprintf(app.out, "%s, token expires in %s\n", s.Email, left.Round(time.Second))
	}
}
