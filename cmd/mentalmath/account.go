package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/mentalmath/internal/account"
	"github.com/at-ishikawa/mentalmath/internal/auth"
)

// promptLine asks for a value on stdin when a flag was left empty.
func (app *application) promptLine(reader *bufio.Reader, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	_, _ = fmt.Fprintf(app.stdout, "%s: ", label)
	line, err := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" && err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return line, nil
}

func (app *application) printWelcome(state account.State) {
	if state.User == nil {
		return
	}
	name := state.User.Email
	if state.Profile != nil {
		name = state.Profile.ProfileIcon + " " + state.Profile.DisplayName
	}
	_, _ = fmt.Fprintln(app.stdout, app.theme.Accent("Signed in as %s", name))
}

func newSignupCommand() *cobra.Command {
	var email, password, displayName string
	command := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, _ account.State) error {
				if err := app.requireAuthURL(); err != nil {
					return err
				}
				reader := bufio.NewReader(app.stdin)
				email, err := app.promptLine(reader, "Email", email)
				if err != nil {
					return err
				}
				password, err := app.promptLine(reader, "Password", password)
				if err != nil {
					return err
				}

				s, err := app.authClient.SignUp(ctx, email, password, displayName)
				if err != nil {
					return fmt.Errorf("sign up: %w", err)
				}
				if s.AccessToken == "" {
					_, _ = fmt.Fprintf(app.stdout, "Check %s to confirm your account, then run `mentalmath login`.\n", s.User.Email)
					return nil
				}
				app.manager.Wait()
				app.printWelcome(app.manager.State())
				return nil
			})
		},
	}
	command.Flags().StringVar(&email, "email", "", "email address")
	command.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	command.Flags().StringVar(&displayName, "name", "", "display name")
	return command
}

func newLoginCommand() *cobra.Command {
	var email, password, provider, idToken string
	command := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or an identity provider token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, _ account.State) error {
				if err := app.requireAuthURL(); err != nil {
					return err
				}

				var err error
				if idToken != "" {
					_, err = app.authClient.SignInWithIDToken(ctx, provider, idToken)
				} else {
					reader := bufio.NewReader(app.stdin)
					if email, err = app.promptLine(reader, "Email", email); err != nil {
						return err
					}
					if password, err = app.promptLine(reader, "Password", password); err != nil {
						return err
					}
					_, err = app.authClient.SignIn(ctx, email, password)
				}
				if auth.IsKind(err, auth.KindInvalidCredentials) {
					return errors.New("invalid email or password")
				}
				if err != nil {
					return fmt.Errorf("sign in: %w", err)
				}

				app.manager.Wait()
				app.printWelcome(app.manager.State())
				return nil
			})
		},
	}
	command.Flags().StringVar(&email, "email", "", "email address")
	command.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	command.Flags().StringVar(&provider, "provider", "google", "identity provider of --id-token")
	command.Flags().StringVar(&idToken, "id-token", "", "ID token issued by --provider")
	return command
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear cached state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				if err := app.manager.SignOut(ctx); err != nil {
					_, _ = fmt.Fprintln(app.stdout, "Signed out on this device.")
					return fmt.Errorf("auth provider sign out failed: %w", err)
				}
				_, _ = fmt.Fprintln(app.stdout, "Signed out.")
				return nil
			})
		},
	}
}
