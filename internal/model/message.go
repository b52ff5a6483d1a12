package model

import (
	"sort"
	"strings"
	"time"
)

// SenderRole identifies who authored a message.
type SenderRole string

const (
	RoleApplicant SenderRole = "applicant"
	RoleRecruiter SenderRole = "recruiter"
	RoleSystem    SenderRole = "system"
)

// ParseSenderRole normalizes a role name as sent by the API
// ("APPLICANT", "Recruiter", ...). Unknown values map to RoleSystem so
// that they are never attributed to the viewer.
func ParseSenderRole(s string) SenderRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "applicant":
		return RoleApplicant
	case "recruiter":
		return RoleRecruiter
	default:
		return RoleSystem
	}
}

// Valid reports whether r is one of the participant roles a viewer can hold.
func (r SenderRole) Valid() bool {
	return r == RoleApplicant || r == RoleRecruiter
}

// Message is a single entry in a thread.
type Message struct {
	// ID is the server-assigned message identifier.
	ID string `json:"id"`

	// ThreadID is the owning thread.
	ThreadID string `json:"thread_id"`

	// SenderRole is the role of the author.
	SenderRole SenderRole `json:"sender_role"`

	// SenderID is the author's user id, when the server provides it.
	SenderID string `json:"sender_id,omitempty"`

	// Content is the message text.
	Content string `json:"content"`

	// SentAt is the server timestamp of the message.
	SentAt time.Time `json:"sent_at"`

	// IsMine is derived locally from the Viewer; see Viewer.Owns.
	IsMine bool `json:"is_mine"`
}

// IsSystem reports whether the message is a system announcement.
func (m Message) IsSystem() bool {
	return m.SenderRole == RoleSystem
}

// SortMessages orders messages by SentAt ascending. Ties keep their server
// order.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}

// Viewer describes the signed-in party the engine synchronizes for.
type Viewer struct {
	Role   SenderRole `mapstructure:"role" yaml:"role"`
	UserID string     `mapstructure:"user_id" yaml:"user_id"`
}

// Owns reports whether m was authored by the viewer. System messages are
// never owned. When both the message and the viewer carry a user id the ids
// must match; otherwise the role decides.
func (v Viewer) Owns(m Message) bool {
	if m.IsSystem() || m.SenderRole != v.Role {
		return false
	}
	if m.SenderID != "" && v.UserID != "" {
		return m.SenderID == v.UserID
	}
	return true
}
