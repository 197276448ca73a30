package store

import (
	"context"
	"strings"

	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const duplicateEmail = "A user with this email already exists"

func preloadMemberships(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// CreateUser inserts a user. Emails are unique, case-insensitively.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	var count int64
	if err := s.conn(ctx).Model(&models.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.New(apperr.Conflict, duplicateEmail)
	}
	err := s.conn(ctx).Omit(clause.Associations).Create(u).Error
	return translateUnique(err, apperr.Conflict, duplicateEmail)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &u, nil
}

// GetUserWithMemberships loads a user and its memberships in join order.
func (s *Store) GetUserWithMemberships(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Preload("Memberships", preloadMemberships).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.conn(ctx).Preload("Memberships", preloadMemberships).
		First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, translate(err, "User")
	}
	return &u, nil
}

// SetSuperuser flips the superuser flag of the user with the given email.
func (s *Store) SetSuperuser(ctx context.Context, email string, on bool) (*models.User, error) {
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.conn(ctx).Model(u).Update("superuser", on).Error; err != nil {
		return nil, err
	}
	u.Superuser = on
	return u, nil
}
