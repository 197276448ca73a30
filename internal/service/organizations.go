package service

import (
	"context"
	"regexp"
	"strings"

	"org-task-management-api/internal/access"
	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/models"
	"org-task-management-api/internal/realtime"
	"org-task-management-api/internal/saga"
	"org-task-management-api/internal/store"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,63}$`)

// ActorInvalidator drops cached actors after their memberships change.
type ActorInvalidator interface {
	Invalidate(userIDs ...string)
}

type OrgService struct {
	store      *store.Store
	actors     ActorInvalidator
	events     realtime.Publisher
	inviteLink func(slug string) string
}

func NewOrgService(st *store.Store, actors ActorInvalidator, events realtime.Publisher, inviteLink func(string) string) *OrgService {
	return &OrgService{store: st, actors: actors, events: publisherOrNoop(events), inviteLink: inviteLink}
}

// InviteLink is the shareable join link of an organization.
type InviteLink struct {
	OrganizationID string `json:"organizationId"`
	InviteSlug     string `json:"inviteSlug"`
	InviteLink     string `json:"inviteLink"`
}

func newSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *OrgService) pickSlug(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		requested = strings.ToLower(strings.TrimSpace(requested))
		if !slugPattern.MatchString(requested) {
			return "", apperr.Invalidf("Invite slug must be 3-64 lowercase letters, digits or dashes")
		}
		taken, err := s.store.SlugExists(ctx, requested)
		if err != nil {
			return "", err
		}
		if taken {
			return "", apperr.New(apperr.Conflict, "Invite slug is already taken")
		}
		return requested, nil
	}
	for i := 0; i < 5; i++ {
		slug := newSlug()
		taken, err := s.store.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
	}
	return "", apperr.New(apperr.Conflict, "Could not generate a unique invite slug")
}

// Create makes a new organization owned and administered by the actor.
func (s *OrgService) Create(ctx context.Context, actor access.Actor, name, slug string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalidf("Organization name is required")
	}
	slug, err := s.pickSlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	org := &models.Organization{ID: uuid.NewString(), Name: name, OwnerID: actor.UserID, InviteSlug: slug}

	err = saga.New("create-organization",
		saga.Step{
			Name:       "create organization",
			Do:         func(ctx context.Context) error { return s.store.CreateOrganization(ctx, org) },
			Compensate: func(ctx context.Context) error { return s.store.DeleteOrganization(ctx, org.ID) },
		},
		saga.Step{
			Name:       "add owner to members",
			Do:         func(ctx context.Context) error { return s.store.AddOrgMember(ctx, org.ID, actor.UserID) },
			Compensate: func(ctx context.Context) error { return s.store.RemoveOrgMember(ctx, org.ID, actor.UserID) },
		},
		saga.Step{
			Name: "grant owner admin membership",
			Do: func(ctx context.Context) error {
				return s.store.AddMembership(ctx, actor.UserID, org.ID, models.RoleAdmin)
			},
		},
	).Run(ctx)
	if err != nil {
		return nil, err
	}
	s.actors.Invalidate(actor.UserID)
	return org, nil
}

// RequestJoin files a join request for the organization behind slug.
func (s *OrgService) RequestJoin(ctx context.Context, actor access.Actor, slug string) (*models.JoinRequest, error) {
	org, err := s.store.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.HasJoinRequest(ctx, org.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := access.CanRequestJoin(actor, org.ID, pending); err != nil {
		return nil, err
	}
	req := &models.JoinRequest{OrganizationID: org.ID, UserID: actor.UserID}
	if err := s.store.CreateJoinRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// InviteLink returns the organization's invite slug and link to one of its admins.
func (s *OrgService) InviteLink(ctx context.Context, actor access.Actor, orgID string) (*InviteLink, error) {
	if err := access.RequireOrgAdmin(actor, orgID); err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &InviteLink{OrganizationID: org.ID, InviteSlug: org.InviteSlug, InviteLink: s.inviteLink(org.InviteSlug)}, nil
}

// Approve consumes userID's pending request and makes them a member. The
// request is removed first, then the organization's member list and the
// user's memberships are updated; a failure restores what it can.
func (s *OrgService) Approve(ctx context.Context, actor access.Actor, orgID, userID string) ([]store.Member, error) {
	if err := access.RequireOrgAdmin(actor, orgID); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperr.Invalidf("userId is required")
	}
	req, err := s.store.GetJoinRequest(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	err = saga.New("approve-join-request",
		saga.Step{
			Name: "remove join request",
			Do:   func(ctx context.Context) error { return s.store.DeleteJoinRequest(ctx, orgID, userID) },
			Compensate: func(ctx context.Context) error {
				restored := models.JoinRequest{OrganizationID: orgID, UserID: userID, RequestedAt: req.RequestedAt}
				return s.store.CreateJoinRequest(ctx, &restored)
			},
		},
		saga.Step{
			Name:       "add to organization members",
			Do:         func(ctx context.Context) error { return s.store.AddOrgMember(ctx, orgID, userID) },
			Compensate: func(ctx context.Context) error { return s.store.RemoveOrgMember(ctx, orgID, userID) },
		},
		saga.Step{
			Name: "add user membership",
			Do:   func(ctx context.Context) error { return s.store.AddMembership(ctx, userID, orgID, models.RoleMember) },
		},
	).Run(ctx)
	if err != nil {
		return nil, err
	}

	s.actors.Invalidate(userID)
	s.events.Publish(realtime.Event{Type: realtime.MembershipApproved, OrganizationID: orgID, ActorID: actor.UserID}, userID)
	return s.store.ListMembers(ctx, orgID)
}

// Reject drops userID's pending request.
func (s *OrgService) Reject(ctx context.Context, actor access.Actor, orgID, userID string) error {
	if err := access.RequireOrgAdmin(actor, orgID); err != nil {
		return err
	}
	return s.store.DeleteJoinRequest(ctx, orgID, userID)
}

// JoinRequests lists pending requests to an admin.
func (s *OrgService) JoinRequests(ctx context.Context, actor access.Actor, orgID string) ([]models.JoinRequest, error) {
	if err := access.RequireOrgAdmin(actor, orgID); err != nil {
		return nil, err
	}
	return s.store.ListJoinRequests(ctx, orgID)
}

// Members lists the organization's members to any member.
func (s *OrgService) Members(ctx context.Context, actor access.Actor, orgID string) ([]store.Member, error) {
	if err := access.RequireOrgMember(actor, orgID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, orgID)
}

// Mine lists the actor's organizations.
func (s *OrgService) Mine(ctx context.Context, actor access.Actor) ([]store.OrganizationWithRole, error) {
	return s.store.ListUserOrganizations(ctx, actor.UserID)
}
