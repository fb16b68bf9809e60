package cqrs

import "github.com/docscopilot/user-service/shared/models"

// RegisterAccountCommand creates an account together with its profile.
// Password and Email are optional; accounts created from a third-party
// identity may carry only ExternalID.
type RegisterAccountCommand struct {
	Username   string
	Email      string
	Password   string
	ExternalID string
	RoleIDs    []int
	Profile    models.Profile
}

// UpdateProfileCommand patches an account. Empty strings are treated as not
// supplied.
type UpdateProfileCommand struct {
	UserID      string
	Username    string
	Email       string
	Gender      models.Gender
	Address     string
	Description string
	Avatar      string
	Photo       string
}

type ResetPasswordCommand struct {
	Email    string
	Code     string
	Password string
}

type DeleteAccountCommand struct {
	UserID string
}

// BootstrapConfig is the read-only configuration consumed by the admin
// bootstrap at process start.
type BootstrapConfig struct {
	AdminEmail string
	DBPassword string
}
