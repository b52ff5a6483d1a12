// Package remote defines the conversation service the sync engine polls
// and the error taxonomy every adapter converts its failures into.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/recruit-inbox/internal/model"
)

// Resource names a polled collection.
type Resource string

const (
	ResourceThreads       Resource = "threads"
	ResourceMessages      Resource = "messages"
	ResourceNotifications Resource = "notifications"
)

// Service is the remote conversation API. Implementations return
// authoritative snapshots, never deltas.
//
// There is no endpoint that persists thread read state; it is tracked on the
// client only.
type Service interface {
	// ListThreads returns every thread visible to the viewer.
	ListThreads(ctx context.Context) ([]model.Thread, error)

	// ListMessages returns the complete message list of one thread.
	ListMessages(ctx context.Context, threadID string) ([]model.Message, error)

	// ListNotifications returns the viewer's notifications.
	ListNotifications(ctx context.Context) ([]model.Notification, error)

	// SendMessage posts content to a thread. It must not be retried
	// automatically: a retry may duplicate the message.
	SendMessage(ctx context.Context, threadID, content string) error

	// MarkNotificationRead marks one notification read.
	MarkNotificationRead(ctx context.Context, id string) error

	// MarkAllNotificationsRead marks every notification read.
	MarkAllNotificationsRead(ctx context.Context) error
}

// AuthError indicates that the API rejected the credential.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// FetchError is a transient failure of a list call. Polling swallows it;
// the next tick tries again.
type FetchError struct {
	Resource Resource
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError is a failed send or mark-read call. It is always reported
// to the user; optimistic local changes are not rolled back.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether err is a FetchError.
func IsTransient(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// IsMutationError reports whether err is a MutationError.
func IsMutationError(err error) bool {
	var mutErr *MutationError
	return errors.As(err, &mutErr)
}
