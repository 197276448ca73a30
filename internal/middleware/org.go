package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"org-task-management-api/internal/access"
	"org-task-management-api/internal/apperr"

	"github.com/gin-gonic/gin"
)

const (
	// OrgHeader carries the organization a request acts in.
	OrgHeader = "x-org-id"

	orgIDKey = "org_id"
	actorKey = "actor"
)

// OrgContext copies the x-org-id header into the context. Operations decide
// whether they need it.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if orgID := strings.TrimSpace(c.GetHeader(OrgHeader)); orgID != "" {
			c.Set(orgIDKey, orgID)
		}
		c.Next()
	}
}

// OrgID returns the organization context of the request, or "".
func OrgID(c *gin.Context) string {
	return c.GetString(orgIDKey)
}

// ActorResolver loads the acting user with memberships.
type ActorResolver interface {
	Resolve(ctx context.Context, userID string) (access.Actor, error)
}

// LoadActor resolves the authenticated user into an access.Actor. It must run
// after JWTAuthMiddleware.
func LoadActor(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User ID not found in token",
				"code":  apperr.Unauthorized,
			})
			return
		}
		actor, err := resolver.Resolve(c.Request.Context(), userID)
		if err != nil {
			if apperr.KindOf(err) == apperr.NotFound {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "User no longer exists",
					"code":  apperr.Unauthorized,
				})
				return
			}
			log.Printf("resolve actor %s: %v", userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
				"code":  apperr.Internal,
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor set by LoadActor.
func ActorFrom(c *gin.Context) (access.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return access.Actor{}, false
	}
	actor, ok := v.(access.Actor)
	return actor, ok
}
