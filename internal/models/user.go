package models

import (
	"time"
)

// OrgRole is a user's role inside one organization.
type OrgRole string

const (
	RoleAdmin  OrgRole = "admin"
	RoleMember OrgRole = "member"
)

// User represents a user in the system
type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-"`
	// Superuser bypasses task ownership checks. It never grants organization admin rights.
	Superuser   bool         `json:"superuser,omitempty" gorm:"not null;default:false"`
	Memberships []Membership `json:"memberships,omitempty" gorm:"foreignKey:UserID"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// Membership links a user to an organization with a role scoped to that organization.
type Membership struct {
	ID             uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	UserID         string    `json:"-" gorm:"column:user_id;not null;uniqueIndex:idx_membership_user_org"`
	OrganizationID string    `json:"organizationId" gorm:"column:organization_id;not null;uniqueIndex:idx_membership_user_org;index"`
	Role           OrgRole   `json:"role" gorm:"not null;default:'member'"`
	CreatedAt      time.Time `json:"joinedAt"`
}

func (Membership) TableName() string {
	return "memberships"
}

// RoleIn reports the user's role in orgID, if any.
func (u *User) RoleIn(orgID string) (OrgRole, bool) {
	for _, m := range u.Memberships {
		if m.OrganizationID == orgID {
			return m.Role, true
		}
	}
	return "", false
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
