// Package store persists users, organizations and tasks through gorm.
// A task row together with its checklist and assignee rows is written in one
// transaction; everything spanning several tasks or an organization and a
// user is left to the caller.
package store

import (
	"context"
	"errors"

	"org-task-management-api/internal/apperr"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Extended sqlite result codes and the postgres SQLSTATE for a unique violation.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
	pgUniqueViolation          = "23505"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(err, apperr.NotFound, what+" not found")
	}
	return err
}

// isUniqueViolation reports whether err is a unique or primary key conflict
// from either supported driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var liteErr *gosqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqliteConstraintUnique || liteErr.Code() == sqliteConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return false
}

// translateUnique maps a unique conflict to an error of the given kind.
func translateUnique(err error, kind apperr.Kind, msg string) error {
	if isUniqueViolation(err) {
		return apperr.Wrap(err, kind, msg)
	}
	return err
}
