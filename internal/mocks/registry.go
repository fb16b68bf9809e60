// Package mocks provides in-memory stand-ins for the service's external
// stores, for use in tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docscopilot/user-service/internal/repository"
	"github.com/docscopilot/user-service/shared/models"
)

var _ repository.AccountRegistry = (*AccountRegistry)(nil)

// AccountRegistry is an in-memory repository.AccountRegistry that enforces
// the same uniqueness constraints as the Postgres schema and reproduces the
// include semantics of each lookup.
type AccountRegistry struct {
	mu       sync.Mutex
	accounts map[string]*models.Account

	// Err, when set, is returned by every call.
	Err error
	// Creates counts successful CreateWithProfile calls.
	Creates int
}

func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{accounts: make(map[string]*models.Account)}
}

// Len returns the number of stored accounts.
func (r *AccountRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

// Stored returns a copy of the stored account, including its password hash.
func (r *AccountRegistry) Stored(id string) (models.Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return models.Account{}, false
	}
	return *clone(a, true, true), true
}

func (r *AccountRegistry) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Username == username }, false, true)
}

func (r *AccountRegistry) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email != "" && a.Email == email }, true, true)
}

func (r *AccountRegistry) FindByExternalID(_ context.Context, externalID string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.ExternalID != "" && a.ExternalID == externalID }, true, true)
}

func (r *AccountRegistry) FindByID(_ context.Context, id string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.ID == id }, false, false)
}

func (r *AccountRegistry) FindProfile(_ context.Context, id string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.ID == id }, true, false)
}

func (r *AccountRegistry) Search(_ context.Context, filter models.AccountFilter, page models.Pagination) ([]models.Account, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}

	var matched []*models.Account
	for _, a := range r.ordered() {
		if filter.Username != "" && a.Username != filter.Username {
			continue
		}
		if filter.Email != "" && a.Email != filter.Email {
			continue
		}
		if filter.Gender != nil && a.Profile.Gender != *filter.Gender {
			continue
		}
		if filter.RoleID != nil && !a.HasRole(*filter.RoleID) {
			continue
		}
		matched = append(matched, a)
	}

	items := []models.Account{}
	for i := page.Offset(); i < len(matched) && i < page.Offset()+page.PageSize; i++ {
		items = append(items, *clone(matched[i], true, true))
	}
	return items, len(matched), nil
}

func (r *AccountRegistry) CreateWithProfile(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	for _, a := range r.accounts {
		if a.Username == account.Username {
			return fmt.Errorf("%w: users_username_key", models.ErrConflict)
		}
		if account.Email != "" && a.Email == account.Email {
			return fmt.Errorf("%w: users_email_key", models.ErrConflict)
		}
		if account.ExternalID != "" && a.ExternalID == account.ExternalID {
			return fmt.Errorf("%w: users_github_id_key", models.ErrConflict)
		}
	}

	stored := clone(account, true, true)
	if stored.Profile == nil {
		stored.Profile = &models.Profile{Gender: models.GenderOther}
	}
	r.accounts[stored.ID] = stored
	r.Creates++
	return nil
}

func (r *AccountRegistry) UpdatePartial(_ context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %w", models.ErrNotFound)
	}
	for _, other := range r.accounts {
		if other.ID == id {
			continue
		}
		if patch.Username != nil && other.Username == *patch.Username {
			return nil, fmt.Errorf("%w: users_username_key", models.ErrConflict)
		}
		if patch.Email != nil && other.Email == *patch.Email {
			return nil, fmt.Errorf("%w: users_email_key", models.ErrConflict)
		}
	}

	if patch.Username != nil {
		a.Username = *patch.Username
	}
	if patch.Email != nil {
		a.Email = *patch.Email
	}
	patch.Profile.Apply(a.Profile)
	return clone(a, true, false), nil
}

func (r *AccountRegistry) UpdatePassword(_ context.Context, email, passwordHash string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	for _, a := range r.accounts {
		if a.Email != "" && a.Email == email {
			a.Password = passwordHash
			return clone(a, false, false), nil
		}
	}
	return nil, fmt.Errorf("account %w", models.ErrNotFound)
}

func (r *AccountRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	if _, ok := r.accounts[id]; !ok {
		return fmt.Errorf("account %w", models.ErrNotFound)
	}
	delete(r.accounts, id)
	return nil
}

func (r *AccountRegistry) find(match func(*models.Account) bool, withProfile, withRoles bool) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	for _, a := range r.accounts {
		if match(a) {
			return clone(a, withProfile, withRoles), nil
		}
	}
	return nil, fmt.Errorf("account %w", models.ErrNotFound)
}

func (r *AccountRegistry) ordered() []*models.Account {
	list := make([]*models.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		list = append(list, a)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func clone(a *models.Account, withProfile, withRoles bool) *models.Account {
	c := *a
	c.Profile = nil
	c.RoleIDs = nil
	if withProfile && a.Profile != nil {
		p := *a.Profile
		c.Profile = &p
	}
	if withRoles {
		c.RoleIDs = append([]int{}, a.RoleIDs...)
	}
	return &c
}
