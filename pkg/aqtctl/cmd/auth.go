package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"

	"github.com/aqt/aqt-connector/pkg/aqtctl/app"
)

var errNotLoggedIn = errors.New("not logged in, run 'aqtctl auth login'")

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with ARNICA",
	}
	cmd.AddCommand(
		newAuthLoginCommand(),
		newAuthStatusCommand(),
		newAuthLogoutCommand(),
		newAuthTokenCommand(),
	)
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login via the device flow or client credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			token, err := app.LogIn(cmd.Context(), a)
			if err != nil {
				return err
			}
			if token == "" {
				return errNotLoggedIn
			}
			_, _ = fmt.Fprintln(rt.Writer(), describeToken("Authenticated.", token))
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			token, err := app.GetAccessToken(cmd.Context(), a)
			if err != nil {
				return err
			}
			if token == "" {
				_, _ = fmt.Fprintln(rt.Writer(), "Not authenticated")
				return nil
			}
			_, _ = fmt.Fprintln(rt.Writer(), describeToken("Authenticated.", token))
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove cached tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			if err := app.LogOut(a); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Logged out")
			return nil
		},
	}
}

func newAuthTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the cached access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			token, err := app.GetAccessToken(cmd.Context(), a)
			if err != nil {
				return err
			}
			if token == "" {
				return errNotLoggedIn
			}
			_, _ = fmt.Fprintln(rt.Writer(), token)
			return nil
		},
	}
}

// describeToken reads subject and expiry from an already verified token for
// display purposes.
func describeToken(prefix, token string) string {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return prefix
	}
	msg := prefix
	if claims.Subject != "" {
		msg += fmt.Sprintf(" Subject: %s.", claims.Subject)
	}
	if claims.ExpiresAt != nil {
		msg += fmt.Sprintf(" Token expires at %s", claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return msg
}
