// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"city_bot/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	// RegisterUser stores a user the first time it is seen and refreshes its
	// names afterwards. It reports whether the user was new.
	RegisterUser(ctx context.Context, u *model.User) (bool, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	TouchUser(ctx context.Context, id int64, at time.Time) error

	// SaveState keeps a free-form dialog state per chat.
	SaveState(ctx context.Context, chatID int64, state string) error
	// GetState returns the dialog state of a chat, or "" if none is set.
	GetState(ctx context.Context, chatID int64) (string, error)
	ClearState(ctx context.Context, chatID int64) error

	Close() error
}
