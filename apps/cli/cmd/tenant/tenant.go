package tenantcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightfold/schemagate/apps/cli/wiring"
	"github.com/brightfold/schemagate/domains/tenants/be/confirm"
	"github.com/brightfold/schemagate/domains/tenants/be/service"
)

// Command groups tenant utilities.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant utilities (validate codes against the backend)",
	}

	cmd.AddCommand(validateCommand())
	return cmd
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <code>",
		Short: "Check a tenant code against the allow-list and the backend schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := wiring.LoadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = env.Logger.Sync() }()

			confirmer, err := confirm.NewClient(confirm.ClientConfig{
				BaseURL: env.Cfg.RPCBaseURL,
				APIKey:  env.Cfg.AuthAPIKey,
				Logger:  env.Logger,
			})
			if err != nil {
				return fmt.Errorf("init confirmation client: %w", err)
			}

			validator, err := service.NewValidator(service.ValidatorConfig{
				Registry:  env.Registry(),
				Confirmer: confirmer,
				Debounce:  env.Cfg.ValidateDebounce,
				Logger:    env.Logger,
			})
			if err != nil {
				return fmt.Errorf("init validator: %w", err)
			}
			defer validator.Close()

			status := validator.Validate(cmd.Context(), args[0])
			switch status.State {
			case service.StateValid:
				if status.Offline {
					fmt.Fprintf(cmd.OutOrStdout(), "valid (offline): %s\n", status.Message)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "valid: %s\n", status.Message)
				}
				return nil
			case service.StateInvalid:
				return fmt.Errorf("invalid tenant code %q: %s", status.Code, status.Message)
			default:
				return fmt.Errorf("validation did not complete: %s", status.Message)
			}
		},
	}
}
