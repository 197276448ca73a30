package handlers

import (
	"net/http"

	"org-task-management-api/internal/service"

	"github.com/gin-gonic/gin"
)

type OrgHandler struct {
	orgs *service.OrgService
}

func NewOrgHandler(orgs *service.OrgService) *OrgHandler {
	return &OrgHandler{orgs: orgs}
}

type CreateOrgRequest struct {
	Name       string `json:"name" binding:"required"`
	InviteSlug string `json:"inviteSlug"`
}

// MemberRequest names the user an admin acts on.
type MemberRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// CreateOrganization handles POST /api/orgs
func (h *OrgHandler) CreateOrganization(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}
	org, err := h.orgs.Create(c.Request.Context(), a, req.Name, req.InviteSlug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

// GetMyOrganizations handles GET /api/orgs
func (h *OrgHandler) GetMyOrganizations(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	orgs, err := h.orgs.Mine(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs, "count": len(orgs)})
}

// RequestToJoin handles POST /api/orgs/join/:inviteSlug
func (h *OrgHandler) RequestToJoin(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	req, err := h.orgs.RequestJoin(c.Request.Context(), a, c.Param("inviteSlug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":        "Join request sent",
		"organizationId": req.OrganizationID,
		"requestedAt":    req.RequestedAt,
	})
}

// GetInviteLink handles GET /api/orgs/:orgId/invite-link
func (h *OrgHandler) GetInviteLink(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	link, err := h.orgs.InviteLink(c.Request.Context(), a, c.Param("orgId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// ApproveJoinRequest handles POST /api/orgs/:orgId/approve
func (h *OrgHandler) ApproveJoinRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId is required")
		return
	}
	members, err := h.orgs.Approve(c.Request.Context(), a, c.Param("orgId"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User approved", "members": members})
}

// RejectJoinRequest handles POST /api/orgs/:orgId/reject
func (h *OrgHandler) RejectJoinRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId is required")
		return
	}
	if err := h.orgs.Reject(c.Request.Context(), a, c.Param("orgId"), req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Join request rejected"})
}

// GetMembers handles GET /api/orgs/:orgId/members
func (h *OrgHandler) GetMembers(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	members, err := h.orgs.Members(c.Request.Context(), a, c.Param("orgId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "count": len(members)})
}

// GetJoinRequests handles GET /api/orgs/:orgId/join-requests
func (h *OrgHandler) GetJoinRequests(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	reqs, err := h.orgs.JoinRequests(c.Request.Context(), a, c.Param("orgId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"joinRequests": reqs, "count": len(reqs)})
}
