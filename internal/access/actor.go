// Package access decides whether an actor may read or change a task or an
// organization resource. Roles come from organization memberships; the
// superuser flag only bypasses task ownership, never organization admin checks.
package access

import (
	"org-task-management-api/internal/models"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID      string
	Name        string
	Email       string
	Superuser   bool
	Memberships []models.Membership
}

// ActorFromUser builds an Actor from a user loaded with memberships.
func ActorFromUser(u *models.User) Actor {
	return Actor{
		UserID:      u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Superuser:   u.Superuser,
		Memberships: append([]models.Membership(nil), u.Memberships...),
	}
}

// RoleIn returns the actor's role in orgID.
func (a Actor) RoleIn(orgID string) (models.OrgRole, bool) {
	for _, m := range a.Memberships {
		if m.OrganizationID == orgID {
			return m.Role, true
		}
	}
	return "", false
}

func (a Actor) IsMember(orgID string) bool {
	_, ok := a.RoleIn(orgID)
	return ok
}

func (a Actor) IsOrgAdmin(orgID string) bool {
	role, ok := a.RoleIn(orgID)
	return ok && role == models.RoleAdmin
}

// IsTaskAdmin reports admin rights over tasks of orgID: an org admin there, or a superuser.
func (a Actor) IsTaskAdmin(orgID string) bool {
	return a.Superuser || a.IsOrgAdmin(orgID)
}

// Onboarded reports whether the actor belongs to at least one organization.
func (a Actor) Onboarded() bool {
	return len(a.Memberships) > 0
}
