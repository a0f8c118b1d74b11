package sqlassets

import _ "embed"

//go:embed schema/tenant_schema/profiles.sql
var TenantProfilesSQL string
