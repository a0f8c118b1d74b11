package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brightfold/schemagate/platform/go/persistence"
	"github.com/brightfold/schemagate/platform/go/storage"
	"github.com/brightfold/schemagate/platform/go/tenant"
)

type mockRepository struct {
	insertFn     func(ctx context.Context, params persistence.CreateProfileParams) (persistence.Profile, error)
	getByEmailFn func(ctx context.Context, email string) (persistence.Profile, error)
	getByUserFn  func(ctx context.Context, userID string) (persistence.Profile, error)
	listFn       func(ctx context.Context) ([]persistence.Profile, error)
	updateFn     func(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.Profile, error)
	deleteFn     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) Insert(ctx context.Context, params persistence.CreateProfileParams) (persistence.Profile, error) {
	if m.insertFn == nil {
		panic("insertFn not configured")
	}
	return m.insertFn(ctx, params)
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (persistence.Profile, error) {
	if m.getByEmailFn == nil {
		panic("getByEmailFn not configured")
	}
	return m.getByEmailFn(ctx, email)
}

func (m *mockRepository) GetByUserID(ctx context.Context, userID string) (persistence.Profile, error) {
	if m.getByUserFn == nil {
		panic("getByUserFn not configured")
	}
	return m.getByUserFn(ctx, userID)
}

func (m *mockRepository) List(ctx context.Context) ([]persistence.Profile, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.Profile, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, id, params)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, id)
}

type mockUploader struct {
	calls []string
	err   error
}

func (m *mockUploader) Upload(ctx context.Context, ref string) (storage.UploadResult, error) {
	m.calls = append(m.calls, ref)
	if m.err != nil {
		return storage.UploadResult{}, m.err
	}
	return storage.UploadResult{PublicURL: "https://cdn.test/profile-images/" + ref}, nil
}

func newTestGateway(t *testing.T, repository *mockRepository, uploader Uploader) *Gateway {
	t.Helper()

	g, err := New(Config{
		Tenant:   tenant.Context{Code: "s22", SchemaName: "s22"},
		Registry: tenant.NewRegistry([]string{"s22", "big7"}),
		Repo:     repository,
		Uploader: uploader,
	})
	require.NoError(t, err)
	return g
}

func TestNewRejectsUnlistedTenant(t *testing.T) {
	t.Parallel()

	_, err := New(Config{
		Tenant:   tenant.Context{Code: "acme", SchemaName: "acme"},
		Registry: tenant.NewRegistry([]string{"s22", "big7"}),
		Repo:     &mockRepository{},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not allow-listed")
}

func TestCheckUserExistsAbsenceIsNotAnError(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{
		getByEmailFn: func(ctx context.Context, email string) (persistence.Profile, error) {
			return persistence.Profile{}, persistence.ErrProfileNotFound
		},
	}
	g := newTestGateway(t, repository, nil)

	profile, err := g.CheckUserExists(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, profile)
}

func TestCreateUserProfileValidation(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, &mockRepository{}, nil)

	_, err := g.CreateUserProfile(context.Background(), CreateInput{})
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "userId")
	require.Contains(t, validationErr.Fields, "userName")
	require.Contains(t, validationErr.Fields, "email")
}

func TestCreateUserProfileConflictSurfaces(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{
		insertFn: func(ctx context.Context, params persistence.CreateProfileParams) (persistence.Profile, error) {
			return persistence.Profile{}, persistence.ErrProfileConflict
		},
	}
	g := newTestGateway(t, repository, nil)

	_, err := g.CreateUserProfile(context.Background(), CreateInput{
		UserID:   "subject-1",
		UserName: "Ada",
		Email:    "ada@example.com",
	})
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateUserMintsSubjectID(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	repository := &mockRepository{
		insertFn: func(ctx context.Context, params persistence.CreateProfileParams) (persistence.Profile, error) {
			require.NotEmpty(t, params.UserID)
			_, parseErr := uuid.Parse(params.UserID)
			require.NoError(t, parseErr)

			return persistence.Profile{
				ID:        uuid.New(),
				UserID:    params.UserID,
				UserName:  params.UserName,
				Email:     params.Email,
				Role:      "user",
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		},
	}
	g := newTestGateway(t, repository, nil)

	profile, err := g.CreateUser(context.Background(), CreateInput{UserName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, profile.UserID)
}

func TestCreateSequencesUploadBeforeInsert(t *testing.T) {
	t.Parallel()

	uploader := &mockUploader{}
	var inserted *persistence.CreateProfileParams
	repository := &mockRepository{
		insertFn: func(ctx context.Context, params persistence.CreateProfileParams) (persistence.Profile, error) {
			// The image must already be resolved by the time the write happens.
			require.Len(t, uploader.calls, 1)
			inserted = &params
			return persistence.Profile{ID: uuid.New(), UserID: params.UserID}, nil
		},
	}
	g := newTestGateway(t, repository, uploader)

	_, err := g.CreateUserProfile(context.Background(), CreateInput{
		UserID:   "subject-1",
		UserName: "Ada",
		Email:    "ada@example.com",
		Image:    "file:///local/img.jpg",
	})
	require.NoError(t, err)
	require.NotNil(t, inserted)
	require.NotNil(t, inserted.ProfileImage)
	require.Equal(t, "https://cdn.test/profile-images/file:///local/img.jpg", *inserted.ProfileImage)
}

func TestUploadFailureAbortsSave(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota exceeded")
	uploader := &mockUploader{err: boom}
	repository := &mockRepository{
		insertFn: func(ctx context.Context, params persistence.CreateProfileParams) (persistence.Profile, error) {
			t.Fatal("record write must not happen after a failed upload")
			return persistence.Profile{}, nil
		},
		updateFn: func(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.Profile, error) {
			t.Fatal("record write must not happen after a failed upload")
			return persistence.Profile{}, nil
		},
	}
	g := newTestGateway(t, repository, uploader)

	_, err := g.CreateUserProfile(context.Background(), CreateInput{
		UserID:   "subject-1",
		UserName: "Ada",
		Email:    "ada@example.com",
		Image:    "file:///local/img.jpg",
	})
	require.ErrorIs(t, err, boom)

	image := "file:///local/img.jpg"
	_, err = g.UpdateUser(context.Background(), uuid.New(), UpdateInput{Image: &image})
	require.ErrorIs(t, err, boom)
}

func TestUpdateUserPartialPassthrough(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	name := "Ada Lovelace"
	repository := &mockRepository{
		updateFn: func(ctx context.Context, gotID uuid.UUID, params persistence.UpdateProfileParams) (persistence.Profile, error) {
			require.Equal(t, id, gotID)
			require.NotNil(t, params.UserName)
			require.Nil(t, params.Email)
			require.Nil(t, params.ProfileImage, "absent image must not touch the stored value")
			return persistence.Profile{ID: gotID, UserName: *params.UserName}, nil
		},
	}
	g := newTestGateway(t, repository, nil)

	profile, err := g.UpdateUser(context.Background(), id, UpdateInput{UserName: &name})
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", profile.UserName)
}

func TestUpdateUserNotFound(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{
		updateFn: func(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.Profile, error) {
			return persistence.Profile{}, persistence.ErrProfileNotFound
		},
	}
	g := newTestGateway(t, repository, nil)

	name := "Ada"
	_, err := g.UpdateUser(context.Background(), uuid.New(), UpdateInput{UserName: &name})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetAllUsersMapsRecords(t *testing.T) {
	t.Parallel()

	newer := persistence.Profile{ID: uuid.New(), UserName: "Newer", CreatedAt: time.Now()}
	older := persistence.Profile{ID: uuid.New(), UserName: "Older", CreatedAt: time.Now().Add(-time.Hour)}
	repository := &mockRepository{
		listFn: func(ctx context.Context) ([]persistence.Profile, error) {
			return []persistence.Profile{newer, older}, nil
		},
	}
	g := newTestGateway(t, repository, nil)

	profiles, err := g.GetAllUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, "Newer", profiles[0].UserName)
	require.Equal(t, "Older", profiles[1].UserName)
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	repository := &mockRepository{
		deleteFn: func(ctx context.Context, gotID uuid.UUID) error {
			require.Equal(t, id, gotID)
			return nil
		},
	}
	g := newTestGateway(t, repository, nil)
	require.NoError(t, g.DeleteUser(context.Background(), id))

	repository.deleteFn = func(ctx context.Context, gotID uuid.UUID) error {
		return persistence.ErrProfileNotFound
	}
	require.ErrorIs(t, g.DeleteUser(context.Background(), id), ErrNotFound)
}

func TestUploadImagePassthrough(t *testing.T) {
	t.Parallel()

	uploader := &mockUploader{}
	g := newTestGateway(t, &mockRepository{}, uploader)

	result, err := g.UploadImage(context.Background(), "https://cdn.example/x.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, result.PublicURL)
	require.Len(t, uploader.calls, 1)
}
