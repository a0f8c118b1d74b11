package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/brightfold/schemagate/platform/go/persistence"
	"github.com/brightfold/schemagate/platform/go/tenant"
)

// Repository defines the persistence operations required by the profiles service.
type Repository interface {
	Insert(ctx context.Context, params persistence.CreateProfileParams) (persistence.Profile, error)
	GetByEmail(ctx context.Context, email string) (persistence.Profile, error)
	GetByUserID(ctx context.Context, userID string) (persistence.Profile, error)
	List(ctx context.Context) ([]persistence.Profile, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.Profile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// postgresRepository binds the shared profile store to one tenant namespace.
// The binding happens at construction, so a repository can never be pointed at
// another tenant's rows after the fact.
type postgresRepository struct {
	store *persistence.ProfileStore
	tc    tenant.Context
}

// NewPostgresRepository constructs a tenant-bound repository backed by the
// shared persistence layer.
func NewPostgresRepository(store *persistence.ProfileStore, tc tenant.Context) Repository {
	if store == nil {
		panic("profile store is required")
	}
	if tc.SchemaName == "" {
		panic("tenant context with schema name is required")
	}
	return &postgresRepository{store: store, tc: tc}
}

// scope stamps the repository's tenant binding on the context so the routing
// layer can cross-check the schema it is asked to pin.
func (r *postgresRepository) scope(ctx context.Context) context.Context {
	return tenant.WithContext(ctx, r.tc)
}

func (r *postgresRepository) Insert(ctx context.Context, params persistence.CreateProfileParams) (persistence.Profile, error) {
	return r.store.Insert(r.scope(ctx), r.tc, params)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (persistence.Profile, error) {
	return r.store.GetByEmail(r.scope(ctx), r.tc, email)
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID string) (persistence.Profile, error) {
	return r.store.GetByUserID(r.scope(ctx), r.tc, userID)
}

func (r *postgresRepository) List(ctx context.Context) ([]persistence.Profile, error) {
	return r.store.List(r.scope(ctx), r.tc)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.Profile, error) {
	return r.store.Update(r.scope(ctx), r.tc, id, params)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(r.scope(ctx), r.tc, id)
}
