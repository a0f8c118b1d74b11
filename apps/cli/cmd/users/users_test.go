package userscmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	profilessvc "github.com/brightfold/schemagate/domains/profiles/be/service"
)

func TestStrPtrOrNil(t *testing.T) {
	t.Parallel()

	require.Nil(t, strPtrOrNil(""))
	require.Nil(t, strPtrOrNil("   "))

	got := strPtrOrNil("+49 151 0000")
	require.NotNil(t, got)
	require.Equal(t, "+49 151 0000", *got)
}

func TestFilterProfiles(t *testing.T) {
	t.Parallel()

	profiles := []profilessvc.Profile{
		{UserName: "Ada Lovelace", Email: "ada@example.com", Role: "admin"},
		{UserName: "Grace Hopper", Email: "grace@example.com", Role: "user"},
		{UserName: "Admin Bot", Email: "bot@example.com", Role: "service"},
	}

	byName := filterProfiles(profiles, "grace")
	require.Len(t, byName, 1)
	require.Equal(t, "Grace Hopper", byName[0].UserName)

	byEmail := filterProfiles(profiles, "BOT@")
	require.Len(t, byEmail, 1)
	require.Equal(t, "Admin Bot", byEmail[0].UserName)

	byRole := filterProfiles(profiles, "admin")
	require.Len(t, byRole, 2)

	require.Empty(t, filterProfiles(profiles, "nobody"))
}
