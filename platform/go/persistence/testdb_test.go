package persistence

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/brightfold/schemagate/database"
)

// mustTestPool creates a connection pool against the database named by
// TEST_DATABASE_URL and provisions the given tenant schemas. Tests that need a
// live Postgres call this and are skipped when the variable is unset.
func mustTestPool(t *testing.T, schemas ...string) (*pgxpool.Pool, func()) {
	t.Helper()

	url, ok := os.LookupEnv("TEST_DATABASE_URL")
	if !ok || url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("create test pool: %v", err)
	}

	for _, schema := range schemas {
		if err := provisionTestSchema(ctx, pool, schema); err != nil {
			pool.Close()
			t.Fatalf("provision schema %s: %v", schema, err)
		}
	}

	cleanup := func() {
		for _, schema := range schemas {
			_, _ = pool.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %q CASCADE`, schema))
		}
		pool.Close()
	}

	return pool, cleanup
}

// provisionTestSchema creates a tenant schema holding a fresh profiles table,
// mirroring the backend's per-tenant layout.
func provisionTestSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %q CASCADE`, schema)); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA %q`, schema)); err != nil {
		return err
	}

	// Run the DDL with the schema as search_path, the same routing the store
	// uses at query time.
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, schema); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sqlassets.TenantProfilesSQL); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
