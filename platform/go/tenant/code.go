package tenant

import "strings"

// Normalize canonicalizes a user-entered tenant code: surrounding whitespace is
// dropped and the result is lowercased. Every comparison and every network call
// in the module operates on the normalized form.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// BuildSchemaName returns the backend schema addressed by a normalized tenant
// code. The prefix comes from deployment configuration and is empty in the
// default setup, so codes address their schema directly (e.g. "s22").
func BuildSchemaName(prefix, code string) string {
	return strings.TrimSpace(prefix) + code
}
