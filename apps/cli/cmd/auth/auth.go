package authcmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brightfold/schemagate/apps/cli/wiring"
	profilessvc "github.com/brightfold/schemagate/domains/profiles/be/service"
	"github.com/brightfold/schemagate/platform/go/identity"
)

// Command groups identity session helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Identity sessions (login, logout, whoami, register)",
	}

	cmd.AddCommand(loginCommand())
	cmd.AddCommand(logoutCommand())
	cmd.AddCommand(whoamiCommand())
	cmd.AddCommand(registerCommand())
	return cmd
}

func loginCommand() *cobra.Command {
	var (
		email    string
		password string
	)

	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := wiring.LoadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = env.Logger.Sync() }()

			client, err := env.NewIdentityClient()
			if err != nil {
				return err
			}

			if password == "" {
				password, err = promptLine(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			session, err := client.SignInWithPassword(cmd.Context(), identity.Credentials{
				Email:    email,
				Password: password,
			})
			if err != nil {
				if errors.Is(err, identity.ErrInvalidCredentials) {
					return fmt.Errorf("invalid email or password")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", session.User.Email, session.User.ID)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "Account email")
	c.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	_ = c.MarkFlagRequired("email")

	return c
}

func logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the current session and clear the local copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := wiring.LoadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = env.Logger.Sync() }()

			client, err := env.NewIdentityClient()
			if err != nil {
				return err
			}

			if err := client.SignOut(cmd.Context()); err != nil {
				if errors.Is(err, identity.ErrNoSession) {
					fmt.Fprintln(cmd.OutOrStdout(), "No active session.")
					return nil
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := wiring.LoadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = env.Logger.Sync() }()

			client, err := env.NewIdentityClient()
			if err != nil {
				return err
			}

			user, err := client.GetUser(cmd.Context())
			if err != nil {
				if errors.Is(err, identity.ErrNoSession) {
					return fmt.Errorf("not signed in")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
}

func registerCommand() *cobra.Command {
	var (
		tenantCode string
		email      string
		password   string
		userName   string
		role       string
		phone      string
		address    string
		image      string
	)

	c := &cobra.Command{
		Use:   "register",
		Short: "Create an account and its profile in one tenant",
		Long:  "Create an identity account and the matching profile record inside the tenant's schema. Fails before touching the provider when a profile already uses the email.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := wiring.LoadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = env.Logger.Sync() }()

			app, err := env.NewApp(ctx, tenantCode, wiring.AppOptions{WithUploader: image != ""})
			if err != nil {
				return err
			}
			defer app.Close()

			existing, err := app.Gateway.CheckUserExists(ctx, email)
			if err != nil {
				return fmt.Errorf("check existing profile: %w", err)
			}
			if existing != nil {
				return fmt.Errorf("a profile already uses %s in tenant %s", email, app.Tenant.Code)
			}

			if password == "" {
				password, err = promptLine(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			session, err := app.Gateway.Auth().SignUp(ctx, identity.Credentials{
				Email:    email,
				Password: password,
			})
			if err != nil {
				if errors.Is(err, identity.ErrUserExists) {
					return fmt.Errorf("an account already uses %s", email)
				}
				return err
			}

			profile, err := app.Gateway.CreateUserProfile(ctx, profilessvc.CreateInput{
				UserID:   session.User.ID,
				UserName: userName,
				Email:    email,
				Role:     role,
				Phone:    strPtrOrNil(phone),
				Address:  strPtrOrNil(address),
				Image:    image,
			})
			if err != nil {
				return fmt.Errorf("create profile: %w", err)
			}

			if session.AccessToken == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Account created; email confirmation pending.")
			}
			return printJSON(cmd, profile)
		},
	}

	c.Flags().StringVar(&tenantCode, "tenant", "", "Tenant code the profile belongs to")
	c.Flags().StringVar(&email, "email", "", "Account email")
	c.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	c.Flags().StringVar(&userName, "name", "", "Display name for the profile")
	c.Flags().StringVar(&role, "role", "", "Profile role (defaults to user)")
	c.Flags().StringVar(&phone, "phone", "", "Phone number")
	c.Flags().StringVar(&address, "address", "", "Postal address")
	c.Flags().StringVar(&image, "image", "", "Profile image (local path or existing URL)")

	_ = c.MarkFlagRequired("tenant")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("name")

	return c
}

func promptLine(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func strPtrOrNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
