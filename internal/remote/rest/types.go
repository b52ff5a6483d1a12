package rest

import (
	"bytes"
	"encoding/json"
)

// ThreadDTO is a thread as returned by GET /threads.
type ThreadDTO struct {
	ID            string   `json:"id"`
	Subject       string   `json:"subject"`
	OtherParty    PartyDTO `json:"otherParty"`
	LastMessageAt string   `json:"lastMessageAt"`
	HasUnread     bool     `json:"hasUnread"`
}

// PartyDTO is the other participant of a thread.
type PartyDTO struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// MessageDTO is a message as returned by GET /threads/{id}/messages.
type MessageDTO struct {
	ID         string `json:"id"`
	ThreadID   string `json:"threadId"`
	SenderRole string `json:"senderRole"`
	SenderID   string `json:"senderId,omitempty"`
	Content    string `json:"content"`
	SentAt     string `json:"sentAt"`
}

// NotificationDTO is a notification as returned by GET /notifications.
type NotificationDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
	IsRead    bool   `json:"isRead"`
}

// SendMessageRequest is the body of POST /threads/{id}/message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ErrorResponse is the error body the API returns on 4xx.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// listResponse accepts either a bare JSON array or a {"data": [...]}
// envelope.
type listResponse[T any] struct {
	Items []T
}

func (l *listResponse[T]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &l.Items)
	}
	var env struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	l.Items = env.Data
	return nil
}
