package service

import (
	"context"
	"errors"
	"strings"

	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/auth"
	"org-task-management-api/internal/models"
	"org-task-management-api/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const minPasswordLength = 8

var validate = validator.New()

type AuthService struct {
	store *store.Store
}

func NewAuthService(st *store.Store) *AuthService {
	return &AuthService{store: st}
}

// Session is a signed-in user with their bearer token.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
	// Onboarded is false until the user belongs to an organization.
	Onboarded bool `json:"onboarded"`
}

func newSession(u *models.User) (*Session, error) {
	token, err := auth.GenerateToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u, Onboarded: len(u.Memberships) > 0}, nil
}

// Register creates an org-less user with a password.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalidf("Name is required")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, apperr.Invalidf("A valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Invalidf("Password must be at least %d characters", minPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{ID: uuid.NewString(), Name: name, Email: email, Password: hash}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return newSession(u)
}

// Login checks credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, apperr.New(apperr.Unauthorized, "Invalid email or password")
		}
		return nil, err
	}
	if err := auth.CheckPassword(u.Password, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperr.New(apperr.Unauthorized, "Invalid email or password")
		}
		return nil, err
	}
	return newSession(u)
}

// Profile returns the user with memberships.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUserWithMemberships(ctx, userID)
}
