package store

import (
	"context"
	"time"

	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/models"

	"gorm.io/gorm/clause"
)

// Member is one row of an organization's member listing.
type Member struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Role     models.OrgRole `json:"role"`
	JoinedAt time.Time      `json:"joinedAt"`
}

// OrganizationWithRole is an organization as seen by one of its members.
type OrganizationWithRole struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	OwnerID string         `json:"owner"`
	Role    models.OrgRole `json:"role"`
}

func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	err := s.conn(ctx).Omit(clause.Associations).Create(org).Error
	return translateUnique(err, apperr.Conflict, "Invite slug is already taken")
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	return s.conn(ctx).Delete(&models.Organization{}, "id = ?", id).Error
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := s.conn(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Organization")
	}
	return &org, nil
}

func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	if err := s.conn(ctx).First(&org, "invite_slug = ?", slug).Error; err != nil {
		return nil, translate(err, "Organization")
	}
	return &org, nil
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Organization{}).Where("invite_slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// ListUserOrganizations returns the organizations userID belongs to, in join order.
func (s *Store) ListUserOrganizations(ctx context.Context, userID string) ([]OrganizationWithRole, error) {
	var out []OrganizationWithRole
	err := s.conn(ctx).Table("memberships").
		Select("organizations.id, organizations.name, organizations.owner_id, memberships.role").
		Joins("JOIN organizations ON organizations.id = memberships.organization_id").
		Where("memberships.user_id = ?", userID).
		Order("memberships.created_at ASC").
		Scan(&out).Error
	return out, err
}

// AddMembership gives userID a role in orgID.
func (s *Store) AddMembership(ctx context.Context, userID, orgID string, role models.OrgRole) error {
	m := models.Membership{UserID: userID, OrganizationID: orgID, Role: role}
	return s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error
}

func (s *Store) RemoveMembership(ctx context.Context, userID, orgID string) error {
	return s.conn(ctx).Where("user_id = ? AND organization_id = ?", userID, orgID).Delete(&models.Membership{}).Error
}

// AddOrgMember appends userID to the organization's member list.
func (s *Store) AddOrgMember(ctx context.Context, orgID, userID string) error {
	row := models.OrganizationMember{OrganizationID: orgID, UserID: userID}
	return s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Store) RemoveOrgMember(ctx context.Context, orgID, userID string) error {
	return s.conn(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).Delete(&models.OrganizationMember{}).Error
}

// ListMembers returns every member of orgID with their role.
func (s *Store) ListMembers(ctx context.Context, orgID string) ([]Member, error) {
	var out []Member
	err := s.conn(ctx).Table("memberships").
		Select("users.id, users.name, users.email, memberships.role, memberships.created_at AS joined_at").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.organization_id = ?", orgID).
		Order("memberships.created_at ASC").
		Scan(&out).Error
	return out, err
}

// MemberSet reports which of userIDs hold a membership in orgID.
func (s *Store) MemberSet(ctx context.Context, orgID string, userIDs []string) (map[string]bool, error) {
	set := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return set, nil
	}
	var found []string
	err := s.conn(ctx).Model(&models.Membership{}).
		Where("organization_id = ? AND user_id IN ?", orgID, userIDs).
		Pluck("user_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

func (s *Store) CreateJoinRequest(ctx context.Context, req *models.JoinRequest) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	err := s.conn(ctx).Omit(clause.Associations).Create(req).Error
	return translateUnique(err, apperr.DuplicateRequest, "You already have a pending request for this organization")
}

func (s *Store) HasJoinRequest(ctx context.Context, orgID, userID string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.JoinRequest{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).Count(&count).Error
	return count > 0, err
}

func (s *Store) GetJoinRequest(ctx context.Context, orgID, userID string) (*models.JoinRequest, error) {
	var req models.JoinRequest
	err := s.conn(ctx).First(&req, "organization_id = ? AND user_id = ?", orgID, userID).Error
	if err != nil {
		return nil, translate(err, "Join request")
	}
	return &req, nil
}

// DeleteJoinRequest removes a pending request, failing with NotFound if there is none.
func (s *Store) DeleteJoinRequest(ctx context.Context, orgID, userID string) error {
	res := s.conn(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).Delete(&models.JoinRequest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("Join request not found")
	}
	return nil
}

// ListJoinRequests returns pending requests of orgID with the requesting users.
func (s *Store) ListJoinRequests(ctx context.Context, orgID string) ([]models.JoinRequest, error) {
	var out []models.JoinRequest
	err := s.conn(ctx).Preload("User").
		Where("organization_id = ?", orgID).
		Order("requested_at ASC").
		Find(&out).Error
	return out, err
}
