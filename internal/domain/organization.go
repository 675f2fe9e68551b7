package domain

import "time"

// Organization is the tenant that owns services, incidents and memberships.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrganizationMembership is an organization as seen by one of its members.
type OrganizationMembership struct {
	Organization
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
