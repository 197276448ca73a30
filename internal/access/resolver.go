package access

import (
	"context"
	"time"

	"org-task-management-api/internal/cache"
	"org-task-management-api/internal/models"
)

// UserLoader loads a user together with its memberships.
type UserLoader interface {
	GetUserWithMemberships(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns a token's user id into an Actor, caching the result for a short TTL.
type Resolver struct {
	users UserLoader
	cache cache.Cache[string, Actor]
	ttl   time.Duration
}

func NewResolver(users UserLoader, ttl time.Duration) *Resolver {
	return &Resolver{
		users: users,
		cache: cache.NewTTLCache[string, Actor](),
		ttl:   ttl,
	}
}

// Resolve returns the actor for userID.
func (r *Resolver) Resolve(ctx context.Context, userID string) (Actor, error) {
	if r.ttl > 0 {
		if a, ok := r.cache.Get(userID); ok {
			return a, nil
		}
	}
	u, err := r.users.GetUserWithMemberships(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	a := ActorFromUser(u)
	if r.ttl > 0 {
		r.cache.Set(userID, a, r.ttl)
	}
	return a, nil
}

// Invalidate drops cached actors whose memberships just changed.
func (r *Resolver) Invalidate(userIDs ...string) {
	for _, id := range userIDs {
		r.cache.Delete(id)
	}
}

// Sweep removes expired entries.
func (r *Resolver) Sweep() {
	r.cache.PurgeExpired()
}
