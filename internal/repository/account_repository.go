package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docscopilot/user-service/shared/models"
	sharedredis "github.com/docscopilot/user-service/shared/redis"
	"github.com/lib/pq"
)

// AccountWriteRepository handles all state-mutating operations for accounts.
// It operates exclusively against the PostgreSQL write store (source of truth)
// and refreshes or invalidates the cached profile view of every account it
// changes.
type AccountWriteRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.Account]
}

// NewAccountWriteRepository builds the write side. cache may be nil.
func NewAccountWriteRepository(db *sql.DB, cache *sharedredis.ViewCache[models.Account]) *AccountWriteRepository {
	return &AccountWriteRepository{db: db, cache: cache}
}

// CreateWithProfile inserts the account, its profile and its role joins in
// one transaction. A unique-constraint violation is reported as
// models.ErrConflict.
func (r *AccountWriteRepository) CreateWithProfile(ctx context.Context, account *models.Account) error {
	if account.Profile == nil {
		account.Profile = &models.Profile{Gender: models.GenderOther}
	}

	err := withTx(ctx, r.db, func(tx dbtx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, email, password, github_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			account.ID, account.Username, nullString(account.Email), nullString(account.Password),
			nullString(account.ExternalID), account.CreatedAt, account.UpdatedAt,
		)
		if err != nil {
			return err
		}

		p := account.Profile
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_profiles (user_id, gender, address, description, avatar, photo)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			account.ID, string(p.Gender), nullString(p.Address), nullString(p.Description),
			nullString(p.Avatar), nullString(p.Photo),
		)
		if err != nil {
			return err
		}

		if len(account.RoleIDs) > 0 {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users_roles (user_id, role_id) SELECT $1, unnest($2::int[]) ON CONFLICT DO NOTHING`,
				account.ID, pq.Array(account.RoleIDs),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateWriteError("create account", err)
	}
	return nil
}

// UpdatePartial applies the non-nil fields of patch and returns the account
// with its profile.
func (r *AccountWriteRepository) UpdatePartial(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	var account *models.Account
	err := withTx(ctx, r.db, func(tx dbtx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE users
			SET username = COALESCE($2, username), email = COALESCE($3, email), updated_at = $4
			WHERE id = $1`,
			id, nullPtr(patch.Username), nullPtr(patch.Email), time.Now().UTC(),
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("account %w", models.ErrNotFound)
		}

		if !patch.Profile.Empty() {
			var gender sql.NullString
			if patch.Profile.Gender != nil {
				gender = sql.NullString{String: string(*patch.Profile.Gender), Valid: true}
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE user_profiles
				SET gender = COALESCE($2, gender), address = COALESCE($3, address),
					description = COALESCE($4, description), avatar = COALESCE($5, avatar),
					photo = COALESCE($6, photo)
				WHERE user_id = $1`,
				id, gender, nullPtr(patch.Profile.Address), nullPtr(patch.Profile.Description),
				nullPtr(patch.Profile.Avatar), nullPtr(patch.Profile.Photo),
			)
			if err != nil {
				return err
			}
		}

		query := `SELECT ` + accountColumns + `, ` + profileColumns + ` ` + profileJoin + ` WHERE u.id = $1`
		account, err = scanAccount(tx.QueryRowContext(ctx, query, id), true)
		return err
	})
	if err != nil {
		return nil, translateWriteError("update account", err)
	}

	r.cache.Set(ctx, profileViewKey(id), account, viewVersion(account))
	return account, nil
}

// UpdatePassword replaces the stored hash of the account registered with email.
func (r *AccountWriteRepository) UpdatePassword(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	query := `
		UPDATE users u SET password = $2, updated_at = $3
		WHERE u.email = $1
		RETURNING ` + accountColumns
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, email, passwordHash, time.Now().UTC()), false)
	if err != nil {
		return nil, err
	}

	r.cache.Invalidate(ctx, profileViewKey(account.ID), viewVersion(account))
	return account, nil
}

// Delete removes the account; its profile and role joins cascade.
func (r *AccountWriteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account %w", models.ErrNotFound)
	}

	r.cache.Invalidate(ctx, profileViewKey(id), time.Now().UTC().UnixMicro())
	return nil
}

func translateWriteError(op string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	switch pqCode(err) {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", models.ErrConflict, constraintOf(err))
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", models.ErrInvalidInput, constraintOf(err))
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func constraintOf(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint != "" {
		return pqErr.Constraint
	}
	return err.Error()
}
