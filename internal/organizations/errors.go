package organizations

import "errors"

// Membership registry errors.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrAlreadyMember        = errors.New("user is already a member of this organization")
	ErrSelfRemoval          = errors.New("you cannot remove yourself")
	ErrSlugTaken            = errors.New("slug already taken")
	ErrSlugExhausted        = errors.New("could not allocate a unique slug")
	ErrInvalidName          = errors.New("organization name must contain letters or digits")
	ErrInvalidRole          = errors.New("invalid role")
)
