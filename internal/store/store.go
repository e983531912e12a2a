package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/songsmith/api/internal/model"
)

var ErrNotFound = errors.New("not found")

// Store is the durable record store for tracks and their notification log.
type Store struct {
	db *gorm.DB
}

// New opens the database selected by dbType ("sqlite" or "postgres") and
// returns a Store ready for Migrate.
func New(dbType, dbConn string, debug bool) (*Store, error) {
	var open gorm.Dialector
	switch dbType {
	case "postgres":
		open = postgres.Open(dbConn)
	case "sqlite":
		open = sqlite.Open(dbConn)
	default:
		return nil, fmt.Errorf("store: unknown db type: %s", dbType)
	}

	l := logger.Default.LogMode(logger.Silent)
	if debug {
		l = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(open, &gorm.Config{Logger: l})
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&model.Track{},
		&model.TrackUpdate{},
	); err != nil {
		return fmt.Errorf("store: failed to migrate database: %w", err)
	}
	return nil
}
