package query

import (
	"context"
	"fmt"
	"math"

	"github.com/docscopilot/user-service/internal/repository"
	"github.com/docscopilot/user-service/shared/cqrs"
	"github.com/docscopilot/user-service/shared/models"
)

// AccountQueryService answers account reads. Profiles are served from the
// Redis view cache when the registry has one.
type AccountQueryService struct {
	registry repository.AccountRegistry
}

func NewAccountQueryService(registry repository.AccountRegistry) *AccountQueryService {
	return &AccountQueryService{registry: registry}
}

// ListAccounts returns one page of accounts matching q.Filter, each with
// profile and roles, ordered by creation time.
func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) (*models.AccountPage, error) {
	page := q.Pagination
	if page.Page < 1 || page.PageSize < 1 {
		return nil, fmt.Errorf("page and page size must be positive: %w", models.ErrInvalidInput)
	}
	if page.Page > math.MaxInt/page.PageSize {
		return nil, fmt.Errorf("page %d is out of range: %w", page.Page, models.ErrInvalidInput)
	}
	if q.Filter.Gender != nil && !q.Filter.Gender.Valid() {
		return nil, fmt.Errorf("gender %q: %w", *q.Filter.Gender, models.ErrInvalidInput)
	}

	accounts, total, err := s.registry.Search(ctx, q.Filter, page)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}

	return &models.AccountPage{
		Data:       accounts,
		Total:      total,
		TotalPages: (total + page.PageSize - 1) / page.PageSize,
	}, nil
}

// GetByUsername returns the account with its roles.
func (s *AccountQueryService) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.registry.FindByUsername(ctx, username)
}

// GetByEmail returns the account with its profile and roles.
func (s *AccountQueryService) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.registry.FindByEmail(ctx, email)
}

// GetByExternalID returns the account linked to a GitHub identity, with its
// profile and roles.
func (s *AccountQueryService) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return s.registry.FindByExternalID(ctx, externalID)
}

// GetByID returns the bare account row.
func (s *AccountQueryService) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return s.registry.FindByID(ctx, id)
}

func (s *AccountQueryService) GetProfile(ctx context.Context, q cqrs.GetProfileQuery) (*models.Account, error) {
	return s.registry.FindProfile(ctx, q.UserID)
}

// Lookup dispatches to the read matching the single key set in q.
func (s *AccountQueryService) Lookup(ctx context.Context, q cqrs.LookupQuery) (*models.Account, error) {
	set := 0
	for _, v := range []string{q.Username, q.Email, q.ExternalID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of username, email or githubId is required: %w", models.ErrInvalidInput)
	}

	switch {
	case q.Username != "":
		return s.GetByUsername(ctx, q.Username)
	case q.Email != "":
		return s.GetByEmail(ctx, q.Email)
	default:
		return s.GetByExternalID(ctx, q.ExternalID)
	}
}
