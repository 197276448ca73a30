package database

import (
	"fmt"
	"log"
	"strings"

	"org-task-management-api/internal/config"
	"org-task-management-api/internal/models"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database without migrating it.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		// glebarez/sqlite is a pure Go implementation (no CGO required)
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		// lib/pq registers itself as the "postgres" database/sql driver
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: cfg.DSN})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
		// rows reference each other by id only; referential cleanup is done by the store
		DisableForeignKeyConstraintWhenMigrating: true,
	})
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Task{}, "AssignedTo", &models.TaskAssignee{}); err != nil {
		return fmt.Errorf("setup task_assignees: %w", err)
	}
	if err := db.SetupJoinTable(&models.Organization{}, "Members", &models.OrganizationMember{}); err != nil {
		return fmt.Errorf("setup organization_members: %w", err)
	}
	return db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Membership{},
		&models.OrganizationMember{},
		&models.JoinRequest{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.ChecklistItem{},
	)
}

// InitDB initializes the database connection and runs migrations
func InitDB(cfg config.DatabaseConfig) error {
	db, err := Open(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	DB = db
	log.Printf("Database (%s) connected and migrated", cfg.Driver)
	return nil
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
