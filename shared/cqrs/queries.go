package cqrs

import "github.com/docscopilot/user-service/shared/models"

// ListAccountsQuery is a filtered, paginated search.
type ListAccountsQuery struct {
	Filter     models.AccountFilter
	Pagination models.Pagination
}

// GetProfileQuery fetches an account with its profile.
type GetProfileQuery struct {
	UserID string
}

// LookupQuery selects exactly one lookup key. Used by the boundary to
// dispatch to the matching pass-through read.
type LookupQuery struct {
	Username   string
	Email      string
	ExternalID string
}
