package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/devghori1264/aerophoenix/showcase/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store persists rendered page snapshots and per-post view counters.
type Store interface {
	SavePage(ctx context.Context, s *models.PageSnapshot) error
	GetPage(ctx context.Context, key string) (*models.PageSnapshot, error)
	DeletePage(ctx context.Context, key string) error
	IncrementViews(ctx context.Context, id string) (int64, error)
	Views(ctx context.Context, id string) (int64, error)
	Close() error
}

const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open returns the store selected by driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverBadger, "":
		return NewBadgerStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
