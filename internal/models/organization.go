package models

import (
	"time"
)

// Organization is a tenant. Users join it through memberships.
type Organization struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	Name         string        `json:"name" gorm:"not null"`
	OwnerID      string        `json:"owner" gorm:"column:owner_id;not null;index"`
	InviteSlug   string        `json:"inviteSlug" gorm:"uniqueIndex;not null"`
	JoinRequests []JoinRequest `json:"joinRequests,omitempty" gorm:"foreignKey:OrganizationID"`
	// Members duplicates the memberships table for quick org-side lookups.
	Members   []User    `json:"members,omitempty" gorm:"many2many:organization_members;joinForeignKey:OrganizationID;joinReferences:UserID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Organization) TableName() string {
	return "organizations"
}

// OrganizationMember is the join row behind Organization.Members.
type OrganizationMember struct {
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
	UserID         string `gorm:"column:user_id;primaryKey"`
	CreatedAt      time.Time
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}

// JoinRequest is a pending request by a user to join an organization.
type JoinRequest struct {
	ID             uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	OrganizationID string    `json:"organizationId" gorm:"column:organization_id;not null;uniqueIndex:idx_join_request_org_user"`
	UserID         string    `json:"userId" gorm:"column:user_id;not null;uniqueIndex:idx_join_request_org_user"`
	User           *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	RequestedAt    time.Time `json:"requestedAt"`
}

func (JoinRequest) TableName() string {
	return "join_requests"
}
