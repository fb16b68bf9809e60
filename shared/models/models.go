package models

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the enumerated genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Role identifiers as stored in the roles table.
const (
	RoleSuper = 0
	RoleAdmin = 1
	RoleUser  = 2
)

type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Profile struct {
	Gender      Gender `json:"gender"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Photo       string `json:"photo,omitempty"`
}

// Account is the identity record. Password only ever holds a hash and is
// never serialised. Device, log and project references are owned by other
// modules and are left empty by this service's reads.
type Account struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	Password   string    `json:"-"`
	ExternalID string    `json:"githubId,omitempty"`
	RoleIDs    []int     `json:"roles"`
	DeviceIDs  []string  `json:"devices,omitempty"`
	LogIDs     []string  `json:"logs,omitempty"`
	ProjectIDs []string  `json:"projects,omitempty"`
	Profile    *Profile  `json:"profile,omitempty"`
	CreatedAt  time.Time `json:"createdTimestamp"`
	UpdatedAt  time.Time `json:"updatedTimestamp"`
}

// HasRole reports whether the account carries the given role identifier.
func (a *Account) HasRole(id int) bool {
	for _, r := range a.RoleIDs {
		if r == id {
			return true
		}
	}
	return false
}
