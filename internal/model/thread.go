package model

import (
	"sort"
	"time"
)

// Party is the participant on the other side of a conversation.
type Party struct {
	// Name is the display name of the participant.
	Name string `json:"name" yaml:"name"`

	// AvatarURL optionally references the participant's avatar image.
	AvatarURL string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
}

// Thread is a conversation between the viewer and one other party.
type Thread struct {
	// ID is the server-assigned thread identifier.
	ID string `json:"id" yaml:"id"`

	// Subject is the free-text topic of the conversation.
	Subject string `json:"subject" yaml:"subject"`

	// OtherParty is who the viewer is talking to.
	OtherParty Party `json:"other_party" yaml:"other_party"`

	// LastMessageAt is when the most recent message in the thread was sent.
	LastMessageAt time.Time `json:"last_message_at" yaml:"last_message_at"`

	// HasUnread is derived by the server. Locally it may be overridden
	// while a read mutation is pending.
	HasUnread bool `json:"has_unread" yaml:"has_unread"`
}

// SortThreads orders threads by LastMessageAt, newest first. Ties keep
// their server order.
func SortThreads(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})
}

// CountUnreadThreads returns how many threads are flagged unread.
func CountUnreadThreads(threads []Thread) int {
	n := 0
	for _, t := range threads {
		if t.HasUnread {
			n++
		}
	}
	return n
}
