package root

import (
	authcmd "github.com/brightfold/schemagate/apps/cli/cmd/auth"
	tenantcmd "github.com/brightfold/schemagate/apps/cli/cmd/tenant"
	userscmd "github.com/brightfold/schemagate/apps/cli/cmd/users"
)

func init() {
	Root().AddCommand(tenantcmd.Command())
	Root().AddCommand(authcmd.Command())
	Root().AddCommand(userscmd.Command())
}
