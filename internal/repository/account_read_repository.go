package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/docscopilot/user-service/shared/models"
	sharedredis "github.com/docscopilot/user-service/shared/redis"
	"github.com/lib/pq"
)

const profileViewKeyPrefix = "account:profile:"

const (
	accountColumns = `u.id, u.username, u.email, u.password, u.github_id, u.created_at, u.updated_at`
	profileColumns = `p.gender, p.address, p.description, p.avatar, p.photo`
	profileJoin    = `FROM users u JOIN user_profiles p ON p.user_id = u.id`
)

func profileViewKey(id string) string {
	return profileViewKeyPrefix + id
}

// viewVersion orders cached profile views by the row's last modification.
func viewVersion(account *models.Account) int64 {
	return account.UpdatedAt.UnixMicro()
}

// AccountReadRepository handles all read operations for accounts.
// Profile views are served from Redis when warm and fall back to PostgreSQL.
type AccountReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.Account]
}

// NewAccountReadRepository builds the read side. cache may be nil.
func NewAccountReadRepository(db *sql.DB, cache *sharedredis.ViewCache[models.Account]) *AccountReadRepository {
	return &AccountReadRepository{db: db, cache: cache}
}

// FindByUsername returns the account with its roles.
func (r *AccountReadRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users u WHERE u.username = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username), false)
	if err != nil {
		return nil, err
	}
	if err := loadRoles(ctx, r.db, account); err != nil {
		return nil, err
	}
	return account, nil
}

// FindByEmail returns the account with its profile and roles.
func (r *AccountReadRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findWithProfileAndRoles(ctx, "u.email", email)
}

// FindByExternalID returns the account with its profile and roles.
func (r *AccountReadRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return r.findWithProfileAndRoles(ctx, "u.github_id", externalID)
}

// FindByID returns the bare account row, without profile or roles.
func (r *AccountReadRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users u WHERE u.id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id), false)
}

// FindProfile returns the account with its profile, trying Redis first. The
// fill is refused when a write newer than the row read has already touched
// the cache.
func (r *AccountReadRepository) FindProfile(ctx context.Context, id string) (*models.Account, error) {
	if view, ok := r.cache.Get(ctx, profileViewKey(id)); ok {
		return view, nil
	}

	query := `SELECT ` + accountColumns + `, ` + profileColumns + ` ` + profileJoin + ` WHERE u.id = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id), true)
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, profileViewKey(id), account, viewVersion(account))
	return account, nil
}

// Search returns one page of accounts (with profile and roles) matching
// filter, and the number of matching accounts across all pages.
func (r *AccountReadRepository) Search(ctx context.Context, filter models.AccountFilter, page models.Pagination) ([]models.Account, int, error) {
	where, args := searchConditions(filter)

	var total int
	countQuery := `SELECT COUNT(*) ` + profileJoin + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	listQuery := fmt.Sprintf(`SELECT %s, %s %s%s ORDER BY u.created_at, u.id LIMIT $%d OFFSET $%d`,
		accountColumns, profileColumns, profileJoin, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0, page.PageSize)
	for rows.Next() {
		account, err := scanAccount(rows, true)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to search accounts: %w", err)
	}

	if err := loadRoles(ctx, r.db, accounts...); err != nil {
		return nil, 0, err
	}

	items := make([]models.Account, len(accounts))
	for i, a := range accounts {
		items[i] = *a
	}
	return items, total, nil
}

func (r *AccountReadRepository) findWithProfileAndRoles(ctx context.Context, column, value string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `, ` + profileColumns + ` ` + profileJoin + ` WHERE ` + column + ` = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, value), true)
	if err != nil {
		return nil, err
	}
	if err := loadRoles(ctx, r.db, account); err != nil {
		return nil, err
	}
	return account, nil
}

func searchConditions(filter models.AccountFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Username != "" {
		add("u.username = $%d", filter.Username)
	}
	if filter.Email != "" {
		add("u.email = $%d", filter.Email)
	}
	if filter.Gender != nil {
		add("p.gender = $%d", string(*filter.Gender))
	}
	if filter.RoleID != nil {
		add("EXISTS (SELECT 1 FROM users_roles ur WHERE ur.user_id = u.id AND ur.role_id = $%d)", *filter.RoleID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner, withProfile bool) (*models.Account, error) {
	var a models.Account
	var email, password, githubID sql.NullString
	dest := []any{&a.ID, &a.Username, &email, &password, &githubID, &a.CreatedAt, &a.UpdatedAt}

	var gender string
	var address, description, avatar, photo sql.NullString
	if withProfile {
		dest = append(dest, &gender, &address, &description, &avatar, &photo)
	}

	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	a.Email = email.String
	a.Password = password.String
	a.ExternalID = githubID.String
	if withProfile {
		a.Profile = &models.Profile{
			Gender:      models.Gender(gender),
			Address:     address.String,
			Description: description.String,
			Avatar:      avatar.String,
			Photo:       photo.String,
		}
	}
	return &a, nil
}

// loadRoles resolves the role identifiers of every given account with one query.
func loadRoles(ctx context.Context, db dbtx, accounts ...*models.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	byID := make(map[string]*models.Account, len(accounts))
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		a.RoleIDs = []int{}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT user_id, role_id FROM users_roles WHERE user_id = ANY($1) ORDER BY role_id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var roleID int
		if err := rows.Scan(&userID, &roleID); err != nil {
			return fmt.Errorf("failed to load roles: %w", err)
		}
		if a, ok := byID[userID]; ok {
			a.RoleIDs = append(a.RoleIDs, roleID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	return nil
}
