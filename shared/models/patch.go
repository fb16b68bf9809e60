package models

// ProfilePatch carries the profile fields of a partial update. A nil field is
// left untouched; a non-nil field is written as given, even when empty.
type ProfilePatch struct {
	Gender      *Gender
	Address     *string
	Description *string
	Avatar      *string
	Photo       *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Gender == nil && p.Address == nil && p.Description == nil &&
		p.Avatar == nil && p.Photo == nil
}

// Apply merges the non-nil fields of p into profile.
func (p ProfilePatch) Apply(profile *Profile) {
	if p.Gender != nil {
		profile.Gender = *p.Gender
	}
	if p.Address != nil {
		profile.Address = *p.Address
	}
	if p.Description != nil {
		profile.Description = *p.Description
	}
	if p.Avatar != nil {
		profile.Avatar = *p.Avatar
	}
	if p.Photo != nil {
		profile.Photo = *p.Photo
	}
}

// AccountPatch is a partial update of an account and its profile.
type AccountPatch struct {
	Username *string
	Email    *string
	Profile  ProfilePatch
}

func (p AccountPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Profile.Empty()
}
