// Package authz holds the organization-scoped permission matrix.
package authz

import (
	"errors"
	"slices"

	"github.com/outager/outager/internal/domain"
)

// ErrForbidden is returned when the caller has no membership in the
// organization or its role does not permit the action.
var ErrForbidden = errors.New("insufficient permissions")

// Action names an operation guarded by organization role.
type Action string

// Guarded actions.
const (
	ActionServiceCreate       Action = "service.create"
	ActionServiceDelete       Action = "service.delete"
	ActionServiceUpdateStatus Action = "service.update_status"
	ActionIncidentCreate      Action = "incident.create"
	ActionIncidentUpdate      Action = "incident.update"
	ActionMembersManage       Action = "members.manage"
	ActionMembersRead         Action = "members.read"
)

var (
	adminOnly      = []domain.Role{domain.RoleAdmin}
	contributors   = []domain.Role{domain.RoleAdmin, domain.RoleMember}
	anyMemberRoles = []domain.Role{domain.RoleAdmin, domain.RoleMember, domain.RoleViewer}
)

// Policy maps every action to the roles allowed to perform it.
var Policy = map[Action][]domain.Role{
	ActionServiceCreate:       contributors,
	ActionServiceDelete:       adminOnly,
	ActionServiceUpdateStatus: contributors,
	ActionIncidentCreate:      contributors,
	ActionIncidentUpdate:      contributors,
	ActionMembersManage:       adminOnly,
	ActionMembersRead:         anyMemberRoles,
}

// Allowed reports whether role may perform action. Unknown actions are denied.
func Allowed(action Action, role domain.Role) bool {
	return slices.Contains(Policy[action], role)
}

// RolesFor returns a copy of the roles allowed to perform action.
func RolesFor(action Action) []domain.Role {
	return slices.Clone(Policy[action])
}
