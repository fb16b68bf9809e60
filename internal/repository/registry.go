package repository

import (
	"context"
	"database/sql"

	"github.com/docscopilot/user-service/shared/models"
	sharedredis "github.com/docscopilot/user-service/shared/redis"
)

// AccountRegistry is the persistence boundary over the account, profile and
// role model. Absent rows are reported as models.ErrNotFound and unique
// violations as models.ErrConflict.
type AccountRegistry interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindProfile(ctx context.Context, id string) (*models.Account, error)
	Search(ctx context.Context, filter models.AccountFilter, page models.Pagination) ([]models.Account, int, error)

	CreateWithProfile(ctx context.Context, account *models.Account) error
	UpdatePartial(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) (*models.Account, error)
	Delete(ctx context.Context, id string) error
}

// Registry joins the write and read repositories over one database and one
// profile view cache.
type Registry struct {
	*AccountWriteRepository
	*AccountReadRepository
}

var _ AccountRegistry = (*Registry)(nil)

func NewRegistry(db *sql.DB, cache *sharedredis.ViewCache[models.Account]) *Registry {
	return &Registry{
		AccountWriteRepository: NewAccountWriteRepository(db, cache),
		AccountReadRepository:  NewAccountReadRepository(db, cache),
	}
}
