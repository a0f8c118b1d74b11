// Package service implements the schema-scoped gateway: one bound handle per
// confirmed tenant code, exposing profile CRUD, the image upload pipeline and
// the auth delegate. Data-path operations are implicitly routed to the
// tenant's namespace; the auth delegate is deliberately tenant-independent.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightfold/schemagate/domains/profiles/be/repo"
	"github.com/brightfold/schemagate/platform/go/identity"
	"github.com/brightfold/schemagate/platform/go/persistence"
	"github.com/brightfold/schemagate/platform/go/storage"
	"github.com/brightfold/schemagate/platform/go/tenant"
)

// Domain sentinel errors.
var (
	ErrNotFound = errors.New("profile not found")
	ErrConflict = errors.New("profile conflict")
)

// FieldErrors maps input fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Profile is the domain view of a tenant's profile record.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ProfileImage *string   `json:"profileImage,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateInput is the payload for creating a profile. Image may be a local
// media reference or an already-public URL; it is resolved through the upload
// pipeline before the record is written.
type CreateInput struct {
	UserID   string
	UserName string
	Email    string
	Role     string
	Image    string
	Phone    *string
	Address  *string
}

// UpdateInput names exactly the fields that may change on update; nil pointers
// leave the stored value untouched.
type UpdateInput struct {
	UserName *string
	Email    *string
	Role     *string
	Image    *string
	Phone    *string
	Address  *string
}

// Uploader is the image upload pipeline dependency.
type Uploader interface {
	Upload(ctx context.Context, ref string) (storage.UploadResult, error)
}

// Config wires a Gateway. Registry is consulted at construction so a gateway
// can only ever be bound to an allow-listed tenant code.
type Config struct {
	Tenant   tenant.Context
	Registry *tenant.Registry
	Repo     repo.Repository
	Uploader Uploader
	Auth     *identity.Client
	Logger   *zap.Logger
}

// Gateway is the bound operation set for one tenant namespace. It owns no
// long-lived data; it is a stateless binding of tenant code to backend calls.
type Gateway struct {
	tc       tenant.Context
	repo     repo.Repository
	uploader Uploader
	auth     *identity.Client
	logger   *zap.Logger
}

// New constructs a Gateway for a confirmed tenant code.
func New(cfg Config) (*Gateway, error) {
	if cfg.Repo == nil {
		return nil, errors.New("profiles repository is required")
	}
	if cfg.Tenant.Code == "" || cfg.Tenant.SchemaName == "" {
		return nil, errors.New("confirmed tenant context is required")
	}
	if cfg.Registry != nil && !cfg.Registry.IsValid(cfg.Tenant.Code) {
		return nil, fmt.Errorf("tenant code %q is not allow-listed", cfg.Tenant.Code)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Gateway{
		tc:       cfg.Tenant,
		repo:     cfg.Repo,
		uploader: cfg.Uploader,
		auth:     cfg.Auth,
		logger:   cfg.Logger.With(zap.String("tenant", cfg.Tenant.Code)),
	}, nil
}

// Tenant returns the binding this gateway routes to.
func (g *Gateway) Tenant() tenant.Context {
	return g.tc
}

// Auth returns the identity-provider delegate. Sessions are
// tenant-independent: one sign-in is usable across tenants.
func (g *Gateway) Auth() *identity.Client {
	return g.auth
}

// CheckUserExists looks up one profile by email. Absence is a nil result, not
// an error.
func (g *Gateway) CheckUserExists(ctx context.Context, email string) (*Profile, error) {
	if strings.TrimSpace(email) == "" {
		return nil, &ValidationError{Fields: FieldErrors{"email": {"is required"}}}
	}

	record, err := g.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("check user exists: %w", err)
	}

	profile := fromRecord(record)
	return &profile, nil
}

// CreateUserProfile inserts the registration-time profile for an authenticated
// identity subject.
func (g *Gateway) CreateUserProfile(ctx context.Context, input CreateInput) (Profile, error) {
	fields := FieldErrors{}
	if strings.TrimSpace(input.UserID) == "" {
		fields["userId"] = append(fields["userId"], "is required")
	}
	if err := validateProfileFields(input.UserName, input.Email, fields); err != nil {
		return Profile{}, err
	}

	return g.insert(ctx, input)
}

// CreateUser inserts an administrator-created profile. The record is not yet
// linked to an identity subject, so one is minted for it.
func (g *Gateway) CreateUser(ctx context.Context, input CreateInput) (Profile, error) {
	if err := validateProfileFields(input.UserName, input.Email, FieldErrors{}); err != nil {
		return Profile{}, err
	}

	if strings.TrimSpace(input.UserID) == "" {
		input.UserID = uuid.New().String()
	}
	return g.insert(ctx, input)
}

func (g *Gateway) insert(ctx context.Context, input CreateInput) (Profile, error) {
	imageURL, err := g.resolveImage(ctx, input.Image)
	if err != nil {
		return Profile{}, err
	}

	record, err := g.repo.Insert(ctx, persistence.CreateProfileParams{
		UserID:       strings.TrimSpace(input.UserID),
		UserName:     strings.TrimSpace(input.UserName),
		Email:        input.Email,
		Role:         input.Role,
		ProfileImage: imageURL,
		Phone:        input.Phone,
		Address:      input.Address,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrProfileConflict) {
			return Profile{}, ErrConflict
		}
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}

	g.logger.Info("profile created", zap.String("profile_id", record.ID.String()))
	return fromRecord(record), nil
}

// GetUserProfile looks up the profile owned by an identity subject. Absence is
// a nil result, not an error.
func (g *Gateway) GetUserProfile(ctx context.Context, userID string) (*Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Fields: FieldErrors{"userId": {"is required"}}}
	}

	record, err := g.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	profile := fromRecord(record)
	return &profile, nil
}

// GetAllUsers returns every profile in the namespace, newest first.
func (g *Gateway) GetAllUsers(ctx context.Context) ([]Profile, error) {
	records, err := g.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	profiles := make([]Profile, 0, len(records))
	for _, record := range records {
		profiles = append(profiles, fromRecord(record))
	}
	return profiles, nil
}

// UpdateUser applies a partial update to the record with the namespace-local
// id. A changed image is uploaded strictly before the record write.
func (g *Gateway) UpdateUser(ctx context.Context, id uuid.UUID, input UpdateInput) (Profile, error) {
	params := persistence.UpdateProfileParams{
		UserName: input.UserName,
		Email:    input.Email,
		Role:     input.Role,
		Phone:    input.Phone,
		Address:  input.Address,
	}

	if input.Image != nil {
		imageURL, err := g.resolveImage(ctx, *input.Image)
		if err != nil {
			return Profile{}, err
		}
		if imageURL == nil {
			empty := ""
			imageURL = &empty
		}
		params.ProfileImage = imageURL
	}

	record, err := g.repo.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, persistence.ErrProfileNotFound) {
			return Profile{}, ErrNotFound
		}
		if errors.Is(err, persistence.ErrProfileConflict) {
			return Profile{}, ErrConflict
		}
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}

	g.logger.Info("profile updated", zap.String("profile_id", id.String()))
	return fromRecord(record), nil
}

// DeleteUser removes the record with the namespace-local id. Callers are
// expected to have collected explicit confirmation before invoking this.
func (g *Gateway) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := g.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrProfileNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete profile: %w", err)
	}

	g.logger.Info("profile deleted", zap.String("profile_id", id.String()))
	return nil
}

// UploadImage resolves a media reference into a durable public URL.
func (g *Gateway) UploadImage(ctx context.Context, ref string) (storage.UploadResult, error) {
	if g.uploader == nil {
		return storage.UploadResult{}, errors.New("uploader is not configured")
	}
	return g.uploader.Upload(ctx, ref)
}

// resolveImage turns an optional image reference into the stored URL. An
// upload failure aborts the enclosing save; a profile must never be written
// with a stale or placeholder image reference.
func (g *Gateway) resolveImage(ctx context.Context, ref string) (*string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if g.uploader == nil {
		return nil, errors.New("uploader is not configured")
	}

	result, err := g.uploader.Upload(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve profile image: %w", err)
	}
	return &result.PublicURL, nil
}

func validateProfileFields(userName, email string, fields FieldErrors) error {
	if strings.TrimSpace(userName) == "" {
		fields["userName"] = append(fields["userName"], "is required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		fields["email"] = append(fields["email"], "is required")
	} else if !strings.Contains(email, "@") {
		fields["email"] = append(fields["email"], "is not a valid address")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fromRecord(record persistence.Profile) Profile {
	return Profile{
		ID:           record.ID,
		UserID:       record.UserID,
		UserName:     record.UserName,
		Email:        record.Email,
		Role:         record.Role,
		ProfileImage: record.ProfileImage,
		Phone:        record.Phone,
		Address:      record.Address,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}
