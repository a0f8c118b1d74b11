// Package wiring assembles the platform dependencies shared by the CLI
// subcommands: configuration, logging, identity, and the tenant-scoped
// profile gateway.
package wiring

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	profilesrepo "github.com/brightfold/schemagate/domains/profiles/be/repo"
	profilessvc "github.com/brightfold/schemagate/domains/profiles/be/service"
	"github.com/brightfold/schemagate/domains/tenants/be/confirm"
	tenantssvc "github.com/brightfold/schemagate/domains/tenants/be/service"
	"github.com/brightfold/schemagate/platform/go/config"
	"github.com/brightfold/schemagate/platform/go/identity"
	"github.com/brightfold/schemagate/platform/go/logging"
	"github.com/brightfold/schemagate/platform/go/persistence"
	"github.com/brightfold/schemagate/platform/go/storage"
	"github.com/brightfold/schemagate/platform/go/tenant"
)

// Env bundles configuration with the process logger.
type Env struct {
	Cfg    config.Config
	Logger *zap.Logger
}

// LoadEnv parses the environment and builds the CLI logger.
func LoadEnv() (Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return Env{}, err
	}

	logger, err := logging.NewLogger(logging.Config{Component: "cli", Level: cfg.LogLevel})
	if err != nil {
		return Env{}, fmt.Errorf("init logger: %w", err)
	}

	return Env{Cfg: cfg, Logger: logger}, nil
}

// Registry builds the static tenant allow-list.
func (e Env) Registry() *tenant.Registry {
	return tenant.NewRegistry(e.Cfg.AllowedTenants)
}

// NewIdentityClient builds the identity client backed by the session file.
func (e Env) NewIdentityClient() (*identity.Client, error) {
	store, err := identity.NewSessionStore(e.Cfg.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}

	client, err := identity.NewClient(identity.ClientConfig{
		BaseURL: e.Cfg.AuthBaseURL,
		APIKey:  e.Cfg.AuthAPIKey,
		Store:   store,
		Logger:  e.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init identity client: %w", err)
	}
	return client, nil
}

// App carries the tenant-scoped dependencies a profile command needs. Close
// releases the pool and, when present, the object-store client.
type App struct {
	Env
	Tenant  tenant.Context
	Gateway *profilessvc.Gateway

	pool *pgxpool.Pool
	gcs  *storage.GCSStore
}

// AppOptions selects the optional pieces of the wiring.
type AppOptions struct {
	// WithUploader also connects the object store so image references can be
	// resolved. Commands that never touch images skip it.
	WithUploader bool
}

// NewApp wires the profile gateway for one tenant code. The code is validated
// first, registry then remote confirmation, so a gateway never comes up bound
// to a tenant the backend would reject.
func (e Env) NewApp(ctx context.Context, code string, opts AppOptions) (*App, error) {
	tc, err := tenant.NewContext(e.Cfg.SchemaPrefix, code)
	if err != nil {
		return nil, err
	}

	if err := e.validateTenant(ctx, tc.Code); err != nil {
		return nil, err
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: e.Cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}

	store, err := persistence.NewProfileStore(persistence.NewSchemaDB(persistence.SchemaDBConfig{Pool: pool, Logger: e.Logger}))
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init profile store: %w", err)
	}

	app := &App{Env: e, Tenant: tc, pool: pool}

	var uploader profilessvc.Uploader
	if opts.WithUploader {
		gcs, err := storage.NewGCSStore(ctx, e.Cfg.StorageCredentialsFile)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init object store: %w", err)
		}
		app.gcs = gcs

		up, err := storage.NewUploader(storage.UploaderConfig{
			Store:  gcs,
			Bucket: e.Cfg.StorageBucket,
			Logger: e.Logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init uploader: %w", err)
		}
		uploader = up
	}

	auth, err := e.NewIdentityClient()
	if err != nil {
		app.Close()
		return nil, err
	}

	gateway, err := profilessvc.New(profilessvc.Config{
		Tenant:   tc,
		Registry: e.Registry(),
		Repo:     profilesrepo.NewPostgresRepository(store, tc),
		Uploader: uploader,
		Auth:     auth,
		Logger:   e.Logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Gateway = gateway

	return app, nil
}

// validateTenant runs the full confirmation protocol once. The fail-open rules
// apply: an unreachable backend does not block local work.
func (e Env) validateTenant(ctx context.Context, code string) error {
	confirmer, err := confirm.NewClient(confirm.ClientConfig{
		BaseURL: e.Cfg.RPCBaseURL,
		APIKey:  e.Cfg.AuthAPIKey,
		Logger:  e.Logger,
	})
	if err != nil {
		return fmt.Errorf("init confirmation client: %w", err)
	}

	validator, err := tenantssvc.NewValidator(tenantssvc.ValidatorConfig{
		Registry:  e.Registry(),
		Confirmer: confirmer,
		Debounce:  e.Cfg.ValidateDebounce,
		Logger:    e.Logger,
	})
	if err != nil {
		return fmt.Errorf("init validator: %w", err)
	}
	defer validator.Close()

	status := validator.Validate(ctx, code)
	if status.State != tenantssvc.StateValid {
		return fmt.Errorf("tenant code %q rejected: %s", code, status.Message)
	}
	if status.Offline {
		e.Logger.Warn("tenant confirmed offline", zap.String("tenant", code))
	}
	return nil
}

// Close releases pooled connections and the object-store client.
func (a *App) Close() {
	if a.gcs != nil {
		_ = a.gcs.Close()
	}
	if a.pool != nil {
		persistence.ClosePool(a.pool)
	}
}
