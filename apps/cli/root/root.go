package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the schemagate CLI. Subcommands (tenant,
// auth, users) are attached here.
var rootCmd = &cobra.Command{
	Use:           "schemagate",
	Short:         "Schema-per-tenant client CLI",
	Long:          "Client utilities for a schema-per-tenant backend: tenant validation, identity sessions, profile management.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
