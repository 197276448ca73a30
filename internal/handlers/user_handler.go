package handlers

import (
	"net/http"

	"org-task-management-api/internal/middleware"
	"org-task-management-api/internal/models"

	"github.com/gin-gonic/gin"
)

// ProfileResponse is the signed-in user with their memberships.
type ProfileResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Superuser   bool                `json:"superuser"`
	Memberships []models.Membership `json:"memberships"`
	Onboarded   bool                `json:"onboarded"`
}

// GetProfile handles GET /api/auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	u, err := h.auth.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	memberships := u.Memberships
	if memberships == nil {
		memberships = []models.Membership{}
	}
	c.JSON(http.StatusOK, ProfileResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Superuser:   u.Superuser,
		Memberships: memberships,
		Onboarded:   len(memberships) > 0,
	})
}
