package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brightfold/schemagate/platform/go/tenant"
)

const ProfilesTable = "profiles"

// Profile represents a row in a tenant's profiles table. ID is the
// namespace-local record identifier; UserID is the identity provider's subject.
type Profile struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	UserName     string    `db:"user_name" json:"userName"`
	Email        string    `db:"email" json:"email"`
	Role         string    `db:"role" json:"role"`
	ProfileImage *string   `db:"profile_image" json:"profileImage,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Address      *string   `db:"address" json:"address,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

var (
	// ErrProfileNotFound indicates a missing profile record.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileConflict indicates a uniqueness violation (e.g., duplicated email).
	ErrProfileConflict = errors.New("profile conflict")
)

const profileColumns = "id, user_id, user_name, email, role, profile_image, phone, address, created_at, updated_at"

// ProfileStore exposes persistence helpers for the per-tenant profiles table.
// Every statement runs through SchemaDB.WithSchema, so the store itself holds
// no tenant state; the caller supplies the binding on each call.
type ProfileStore struct {
	db *SchemaDB
}

func NewProfileStore(db *SchemaDB) (*ProfileStore, error) {
	if db == nil {
		return nil, errors.New("schema db is required")
	}
	return &ProfileStore{db: db}, nil
}

// CreateProfileParams captures the fields required to insert a new profile record.
type CreateProfileParams struct {
	UserID       string
	UserName     string
	Email        string
	Role         string
	ProfileImage *string
	Phone        *string
	Address      *string
}

// UpdateProfileParams represents the fields that may be modified after creation.
// Nil pointers leave the stored value untouched.
type UpdateProfileParams struct {
	UserName     *string
	Email        *string
	Role         *string
	ProfileImage *string
	Phone        *string
	Address      *string
}

// Insert creates a new profile and returns the persisted record.
func (s *ProfileStore) Insert(ctx context.Context, tc tenant.Context, params CreateProfileParams) (Profile, error) {
	if strings.TrimSpace(params.UserID) == "" {
		return Profile{}, errors.New("user id is required")
	}

	role := strings.TrimSpace(params.Role)
	if role == "" {
		role = "user"
	}

	var profile Profile
	err := s.db.WithSchema(ctx, tc, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO %s (id, user_id, user_name, email, role, profile_image, phone, address)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING %s
        `, ProfilesTable, profileColumns),
			uuid.New(),
			strings.TrimSpace(params.UserID),
			strings.TrimSpace(params.UserName),
			strings.ToLower(strings.TrimSpace(params.Email)),
			role,
			params.ProfileImage,
			params.Phone,
			params.Address,
		)

		var scanErr error
		profile, scanErr = scanProfile(row)
		return scanErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Profile{}, ErrProfileConflict
		}
		return Profile{}, err
	}

	return profile, nil
}

// GetByEmail returns the single profile matching the email within the tenant.
func (s *ProfileStore) GetByEmail(ctx context.Context, tc tenant.Context, email string) (Profile, error) {
	return s.getOne(ctx, tc, "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

// GetByUserID returns the profile owned by the identity provider subject.
func (s *ProfileStore) GetByUserID(ctx context.Context, tc tenant.Context, userID string) (Profile, error) {
	return s.getOne(ctx, tc, "user_id = $1", strings.TrimSpace(userID))
}

func (s *ProfileStore) getOne(ctx context.Context, tc tenant.Context, where string, arg any) (Profile, error) {
	var profile Profile
	err := s.db.WithSchema(ctx, tc, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            SELECT %s FROM %s WHERE %s
        `, profileColumns, ProfilesTable, where), arg)

		var scanErr error
		profile, scanErr = scanProfile(row)
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}

	return profile, nil
}

// List returns every profile in the tenant namespace, newest first. The
// per-tenant administrative list is small by contract, so no pagination.
func (s *ProfileStore) List(ctx context.Context, tc tenant.Context) ([]Profile, error) {
	profiles := make([]Profile, 0)
	err := s.db.WithSchema(ctx, tc, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, fmt.Sprintf(`
            SELECT %s FROM %s ORDER BY created_at DESC
        `, profileColumns, ProfilesTable))
		if err != nil {
			return fmt.Errorf("list profiles: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			profile, scanErr := scanProfile(rows)
			if scanErr != nil {
				return fmt.Errorf("scan profile: %w", scanErr)
			}
			profiles = append(profiles, profile)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update applies the provided fields to the record with the namespace-local id
// and returns the updated row.
func (s *ProfileStore) Update(ctx context.Context, tc tenant.Context, id uuid.UUID, params UpdateProfileParams) (Profile, error) {
	setParts := []string{}
	var args []any

	appendSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.UserName != nil {
		appendSet("user_name", strings.TrimSpace(*params.UserName))
	}
	if params.Email != nil {
		appendSet("email", strings.ToLower(strings.TrimSpace(*params.Email)))
	}
	if params.Role != nil {
		appendSet("role", strings.TrimSpace(*params.Role))
	}
	if params.ProfileImage != nil {
		appendSet("profile_image", *params.ProfileImage)
	}
	if params.Phone != nil {
		appendSet("phone", *params.Phone)
	}
	if params.Address != nil {
		appendSet("address", *params.Address)
	}

	if len(setParts) == 0 {
		return Profile{}, errors.New("no fields to update")
	}

	args = append(args, id)

	var profile Profile
	err := s.db.WithSchema(ctx, tc, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            UPDATE %s
            SET %s, updated_at = NOW()
            WHERE id = $%d
            RETURNING %s
        `, ProfilesTable, strings.Join(setParts, ", "), len(args), profileColumns), args...)

		var scanErr error
		profile, scanErr = scanProfile(row)
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		if isUniqueViolation(err) {
			return Profile{}, ErrProfileConflict
		}
		return Profile{}, err
	}

	return profile, nil
}

// Delete removes a profile by its namespace-local id.
func (s *ProfileStore) Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrProfileNotFound
	}

	return s.db.WithSchema(ctx, tc, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, ProfilesTable), id)
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrProfileNotFound
		}
		return nil
	})
}

func scanProfile(row pgx.Row) (Profile, error) {
	var profile Profile

	if err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.UserName,
		&profile.Email,
		&profile.Role,
		&profile.ProfileImage,
		&profile.Phone,
		&profile.Address,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return Profile{}, err
	}

	return profile, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
