package userscmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/brightfold/schemagate/apps/cli/wiring"
	profilessvc "github.com/brightfold/schemagate/domains/profiles/be/service"
	"github.com/brightfold/schemagate/platform/go/logging"
)

// Command groups profile management inside one tenant schema. Every subcommand
// takes --tenant so reads and writes stay scoped to that tenant's schema.
func Command() *cobra.Command {
	var tenantCode string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Profile records inside a tenant schema",
	}
	cmd.PersistentFlags().StringVar(&tenantCode, "tenant", "", "Tenant code scoping every operation")
	_ = cmd.MarkPersistentFlagRequired("tenant")

	cmd.AddCommand(listCommand(&tenantCode))
	cmd.AddCommand(getCommand(&tenantCode))
	cmd.AddCommand(addCommand(&tenantCode))
	cmd.AddCommand(updateCommand(&tenantCode))
	cmd.AddCommand(deleteCommand(&tenantCode))
	cmd.AddCommand(uploadImageCommand(&tenantCode))
	return cmd
}

func listCommand(tenantCode *string) *cobra.Command {
	var search string

	c := &cobra.Command{
		Use:   "list",
		Short: "List profiles, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, *tenantCode, false)
			if err != nil {
				return err
			}
			defer app.Close()

			profiles, err := app.Gateway.GetAllUsers(cmd.Context())
			if err != nil {
				return err
			}

			if search != "" {
				profiles = filterProfiles(profiles, search)
			}
			return printJSON(cmd, profiles)
		},
	}

	c.Flags().StringVar(&search, "search", "", "Keep only profiles whose name, email, or role contains this text")
	return c
}

func getCommand(tenantCode *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id>",
		Short: "Fetch one profile by its identity subject id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, *tenantCode, false)
			if err != nil {
				return err
			}
			defer app.Close()

			profile, err := app.Gateway.GetUserProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if profile == nil {
				return fmt.Errorf("no profile for user %q in tenant %s", args[0], app.Tenant.Code)
			}
			return printJSON(cmd, profile)
		},
	}
}

func addCommand(tenantCode *string) *cobra.Command {
	var (
		userID   string
		userName string
		email    string
		role     string
		phone    string
		address  string
		image    string
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Create a profile record",
		Long:  "Create a profile record in the tenant schema. When --user-id is omitted a fresh subject id is minted, for records not yet backed by an identity account.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, *tenantCode, image != "")
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			input := profilessvc.CreateInput{
				UserID:   userID,
				UserName: userName,
				Email:    email,
				Role:     role,
				Phone:    strPtrOrNil(phone),
				Address:  strPtrOrNil(address),
				Image:    image,
			}

			var profile profilessvc.Profile
			if userID == "" {
				profile, err = app.Gateway.CreateUser(ctx, input)
			} else {
				profile, err = app.Gateway.CreateUserProfile(ctx, input)
			}
			if err != nil {
				if errors.Is(err, profilessvc.ErrConflict) {
					return fmt.Errorf("a profile already uses %s in tenant %s", email, app.Tenant.Code)
				}
				return err
			}
			return printJSON(cmd, profile)
		},
	}

	c.Flags().StringVar(&userID, "user-id", "", "Identity subject id (minted when omitted)")
	c.Flags().StringVar(&userName, "name", "", "Display name")
	c.Flags().StringVar(&email, "email", "", "Email address")
	c.Flags().StringVar(&role, "role", "", "Role (defaults to user)")
	c.Flags().StringVar(&phone, "phone", "", "Phone number")
	c.Flags().StringVar(&address, "address", "", "Postal address")
	c.Flags().StringVar(&image, "image", "", "Profile image (local path or existing URL)")

	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("email")

	return c
}

func updateCommand(tenantCode *string) *cobra.Command {
	var (
		userName string
		email    string
		role     string
		phone    string
		address  string
		image    string
	)

	c := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a profile record",
		Long:  "Update the named fields of a profile record. Flags left unset leave the stored values untouched; a local --image is uploaded before the record changes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid profile id: %w", err)
			}

			input := profilessvc.UpdateInput{}
			if cmd.Flags().Changed("name") {
				input.UserName = &userName
			}
			if cmd.Flags().Changed("email") {
				input.Email = &email
			}
			if cmd.Flags().Changed("role") {
				input.Role = &role
			}
			if cmd.Flags().Changed("phone") {
				input.Phone = &phone
			}
			if cmd.Flags().Changed("address") {
				input.Address = &address
			}
			if cmd.Flags().Changed("image") {
				input.Image = &image
			}

			app, err := openApp(cmd, *tenantCode, input.Image != nil)
			if err != nil {
				return err
			}
			defer app.Close()

			profile, err := app.Gateway.UpdateUser(cmd.Context(), id, input)
			if err != nil {
				if errors.Is(err, profilessvc.ErrNotFound) {
					return fmt.Errorf("no profile %s in tenant %s", id, app.Tenant.Code)
				}
				return err
			}
			return printJSON(cmd, profile)
		},
	}

	c.Flags().StringVar(&userName, "name", "", "Display name")
	c.Flags().StringVar(&email, "email", "", "Email address")
	c.Flags().StringVar(&role, "role", "", "Role")
	c.Flags().StringVar(&phone, "phone", "", "Phone number")
	c.Flags().StringVar(&address, "address", "", "Postal address")
	c.Flags().StringVar(&image, "image", "", "Profile image (local path or existing URL)")

	return c
}

func deleteCommand(tenantCode *string) *cobra.Command {
	var yes bool

	c := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid profile id: %w", err)
			}

			if !yes {
				ok, err := confirmPrompt(cmd, fmt.Sprintf("Delete profile %s from tenant %s? [y/N]: ", id, *tenantCode))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			app, err := openApp(cmd, *tenantCode, false)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Gateway.DeleteUser(cmd.Context(), id); err != nil {
				if errors.Is(err, profilessvc.ErrNotFound) {
					return fmt.Errorf("no profile %s in tenant %s", id, app.Tenant.Code)
				}
				return err
			}

			// Refresh after the delete so the reported count reflects the
			// committed state, not the pre-delete read.
			remaining, err := app.Gateway.GetAllUsers(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s. %d profiles remain.\n", id, len(remaining))
			return nil
		},
	}

	c.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return c
}

func uploadImageCommand(tenantCode *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-image <path-or-url>",
		Short: "Upload an image and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, *tenantCode, true)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Gateway.UploadImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.PublicURL)
			return nil
		},
	}
}

func openApp(cmd *cobra.Command, tenantCode string, withUploader bool) (*wiring.App, error) {
	env, err := wiring.LoadEnv()
	if err != nil {
		return nil, err
	}
	cmd.SetContext(logging.WithLogger(cmd.Context(), env.Logger))
	return env.NewApp(cmd.Context(), tenantCode, wiring.AppOptions{WithUploader: withUploader})
}

func filterProfiles(profiles []profilessvc.Profile, search string) []profilessvc.Profile {
	needle := strings.ToLower(strings.TrimSpace(search))
	kept := make([]profilessvc.Profile, 0, len(profiles))
	for _, p := range profiles {
		if strings.Contains(strings.ToLower(p.UserName), needle) ||
			strings.Contains(strings.ToLower(p.Email), needle) ||
			strings.Contains(strings.ToLower(p.Role), needle) {
			kept = append(kept, p)
		}
	}
	return kept
}

func strPtrOrNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func confirmPrompt(cmd *cobra.Command, label string) (bool, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read input: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
