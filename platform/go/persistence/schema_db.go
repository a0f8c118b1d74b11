package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/brightfold/schemagate/platform/go/logging"
	"github.com/brightfold/schemagate/platform/go/tenant"
)

// txBeginner exposes the minimal pgx pool behaviour needed by SchemaDB.
type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// SchemaDB wraps a pgx pool to execute queries within a tenant-specific
// search_path. Every data-path statement in the module runs through WithSchema,
// which is what keeps two gateways bound to different tenant codes from ever
// observing each other's rows on the same connection pool.
type SchemaDB struct {
	pool   txBeginner
	logger *zap.Logger
}

type SchemaDBConfig struct {
	Pool   *pgxpool.Pool
	Logger *zap.Logger
}

func NewSchemaDB(cfg SchemaDBConfig) *SchemaDB {
	if cfg.Pool == nil {
		panic("SchemaDB requires pool")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaDB{pool: cfg.Pool, logger: logger}
}

// WithSchema executes fn inside a transaction with search_path pinned to the
// tenant's schema. set_config with is_local=true scopes the setting to the
// transaction, so connections return to the pool unbound.
func (db *SchemaDB) WithSchema(ctx context.Context, tc tenant.Context, fn func(tx pgx.Tx) error) error {
	if strings.TrimSpace(tc.SchemaName) == "" {
		return fmt.Errorf("schema name is required in tenant.Context")
	}
	// A context stamped with a different tenant binding means two scopes got
	// crossed somewhere above; refuse to route rather than mix namespaces.
	if ctxTC, ok := tenant.FromContext(ctx); ok && ctxTC.SchemaName != tc.SchemaName {
		return fmt.Errorf("tenant mismatch: context is scoped to %q, query targets %q", ctxTC.SchemaName, tc.SchemaName)
	}

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, tc.SchemaName); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	if err := fn(tx); err != nil {
		logging.FromContext(ctx, db.logger).Debug("schema tx rolled back",
			zap.String("schema", tc.SchemaName), zap.Error(err))
		return err
	}

	return tx.Commit(ctx)
}
