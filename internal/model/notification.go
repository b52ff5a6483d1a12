package model

import (
	"sort"
	"strings"
	"time"
)

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationInterviewScheduled NotificationType = "interview_scheduled"
	NotificationMessageReceived    NotificationType = "message_received"
	NotificationGeneric            NotificationType = "generic"
)

// ParseNotificationType maps the API's type names onto the known set.
// Anything unrecognized is Generic.
func ParseNotificationType(s string) NotificationType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interview_scheduled":
		return NotificationInterviewScheduled
	case "message_received":
		return NotificationMessageReceived
	default:
		return NotificationGeneric
	}
}

// Notification represents an alert surfaced to the viewer by the platform.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" yaml:"id"`

	// Type is the notification category.
	Type NotificationType `json:"type" yaml:"type"`

	// Title is the short headline.
	Title string `json:"title" yaml:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message" yaml:"message"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// IsRead indicates whether the viewer has seen this notification.
	// The client only ever moves it from false to true.
	IsRead bool `json:"is_read" yaml:"is_read"`
}

// SortNotifications orders notifications newest first.
func SortNotifications(ns []Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
}

// CountUnreadNotifications returns how many notifications are unread.
func CountUnreadNotifications(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if !x.IsRead {
			n++
		}
	}
	return n
}
