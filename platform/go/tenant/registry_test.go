package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "s22", Normalize("  S22 "))
	require.Equal(t, "big7", Normalize("BIG7"))
	require.Equal(t, "", Normalize("   "))
}

func TestRegistryMembership(t *testing.T) {
	t.Parallel()

	r := NewRegistry([]string{"s22", "BIG7", "", "  "})

	for _, code := range []string{"s22", "S22", " s22 ", "big7", "Big7"} {
		require.True(t, r.IsValid(code), "expected %q to be allow-listed", code)
	}

	for _, code := range []string{"", "s2", "s222", "acme", " big8 "} {
		require.False(t, r.IsValid(code), "expected %q to be rejected", code)
	}
}

func TestRegistryCodesLabel(t *testing.T) {
	t.Parallel()

	r := NewRegistry([]string{"big7", "s22"})
	require.Equal(t, []string{"big7", "s22"}, r.Codes())
	require.Equal(t, "big7, s22", r.CodesLabel())
}

func TestNewContext(t *testing.T) {
	t.Parallel()

	tc, err := NewContext("", " S22 ")
	require.NoError(t, err)
	require.Equal(t, Context{Code: "s22", SchemaName: "s22"}, tc)

	tc, err = NewContext("prod__", "big7")
	require.NoError(t, err)
	require.Equal(t, "prod__big7", tc.SchemaName)

	_, err = NewContext("", "   ")
	require.Error(t, err)
}

func TestContextCarry(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	require.False(t, ok)

	tc := Context{Code: "s22", SchemaName: "s22"}
	got, ok := FromContext(WithContext(context.Background(), tc))
	require.True(t, ok)
	require.Equal(t, tc, got)
}
