// Package store persists the last reconciled inbox lists so the next
// session can show them before the first poll completes.
package store

import (
	"context"
	"time"

	"github.com/nhle/recruit-inbox/internal/model"
)

// Resource names of the cached lists.
const (
	ResourceThreads       = "threads"
	ResourceNotifications = "notifications"
)

// Store defines the snapshot cache.
type Store interface {
	// SaveThreads replaces the cached thread list.
	SaveThreads(ctx context.Context, threads []model.Thread) error

	// LoadThreads returns the cached threads, newest activity first.
	LoadThreads(ctx context.Context) ([]model.Thread, error)

	// SaveNotifications replaces the cached notification list.
	SaveNotifications(ctx context.Context, ns []model.Notification) error

	// LoadNotifications returns the cached notifications, newest first.
	LoadNotifications(ctx context.Context) ([]model.Notification, error)

	// SavedAt returns when resource was last saved. The zero time means
	// it was never saved.
	SavedAt(ctx context.Context, resource string) (time.Time, error)

	Close() error
}
