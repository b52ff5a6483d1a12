package rest

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/recruit-inbox/internal/model"
	"github.com/nhle/recruit-inbox/internal/remote"
)

// Adapter implements remote.Service over the platform's REST API. Every
// failure leaves the adapter as a remote.FetchError or remote.MutationError.
type Adapter struct {
	client *Client
	log    zerolog.Logger
}

var _ remote.Service = (*Adapter)(nil)

// NewAdapter creates a REST conversation service adapter.
func NewAdapter(baseURL, token string, opts ClientOptions) *Adapter {
	return &Adapter{
		client: NewClient(baseURL, token, opts),
		log:    opts.Logger,
	}
}

// ListThreads calls GET /threads.
func (a *Adapter) ListThreads(ctx context.Context) ([]model.Thread, error) {
	var resp listResponse[ThreadDTO]
	if err := a.client.Get(ctx, "/threads", &resp); err != nil {
		return nil, &remote.FetchError{Resource: remote.ResourceThreads, Err: err}
	}

	threads := make([]model.Thread, 0, len(resp.Items))
	for _, dto := range resp.Items {
		threads = append(threads, a.dtoToThread(dto))
	}
	return threads, nil
}

// ListMessages calls GET /threads/{id}/messages.
func (a *Adapter) ListMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	path := fmt.Sprintf("/threads/%s/messages", url.PathEscape(threadID))

	var resp listResponse[MessageDTO]
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, &remote.FetchError{Resource: remote.ResourceMessages, Err: err}
	}

	msgs := make([]model.Message, 0, len(resp.Items))
	for _, dto := range resp.Items {
		msg := a.dtoToMessage(dto)
		if msg.ThreadID == "" {
			msg.ThreadID = threadID
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// ListNotifications calls GET /notifications.
func (a *Adapter) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var resp listResponse[NotificationDTO]
	if err := a.client.Get(ctx, "/notifications", &resp); err != nil {
		return nil, &remote.FetchError{Resource: remote.ResourceNotifications, Err: err}
	}

	ns := make([]model.Notification, 0, len(resp.Items))
	for _, dto := range resp.Items {
		ns = append(ns, a.dtoToNotification(dto))
	}
	return ns, nil
}

// SendMessage calls POST /threads/{id}/message once.
func (a *Adapter) SendMessage(ctx context.Context, threadID, content string) error {
	path := fmt.Sprintf("/threads/%s/message", url.PathEscape(threadID))
	if err := a.client.Post(ctx, path, SendMessageRequest{Content: content}, nil); err != nil {
		return &remote.MutationError{Op: "send message", Err: err}
	}
	return nil
}

// MarkNotificationRead calls PATCH /notifications/{id}/read.
func (a *Adapter) MarkNotificationRead(ctx context.Context, id string) error {
	path := fmt.Sprintf("/notifications/%s/read", url.PathEscape(id))
	if err := a.client.Patch(ctx, path, nil, nil); err != nil {
		return &remote.MutationError{Op: "mark notification read", Err: err}
	}
	return nil
}

// MarkAllNotificationsRead calls PATCH /notifications/read-all.
func (a *Adapter) MarkAllNotificationsRead(ctx context.Context) error {
	if err := a.client.Patch(ctx, "/notifications/read-all", nil, nil); err != nil {
		return &remote.MutationError{Op: "mark all notifications read", Err: err}
	}
	return nil
}

func (a *Adapter) dtoToThread(dto ThreadDTO) model.Thread {
	return model.Thread{
		ID:      dto.ID,
		Subject: dto.Subject,
		OtherParty: model.Party{
			Name:      dto.OtherParty.Name,
			AvatarURL: dto.OtherParty.AvatarURL,
		},
		LastMessageAt: a.parseTime(dto.LastMessageAt, "thread", dto.ID),
		HasUnread:     dto.HasUnread,
	}
}

func (a *Adapter) dtoToMessage(dto MessageDTO) model.Message {
	return model.Message{
		ID:         dto.ID,
		ThreadID:   dto.ThreadID,
		SenderRole: model.ParseSenderRole(dto.SenderRole),
		SenderID:   dto.SenderID,
		Content:    dto.Content,
		SentAt:     a.parseTime(dto.SentAt, "message", dto.ID),
	}
}

func (a *Adapter) dtoToNotification(dto NotificationDTO) model.Notification {
	return model.Notification{
		ID:        dto.ID,
		Type:      model.ParseNotificationType(dto.Type),
		Title:     dto.Title,
		Message:   dto.Message,
		CreatedAt: a.parseTime(dto.CreatedAt, "notification", dto.ID),
		IsRead:    dto.IsRead,
	}
}

// timeLayouts are the timestamp formats the API is known to emit.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// parseTime parses an API timestamp. Unparseable values become the zero
// time so a single malformed entity does not fail the whole snapshot.
func (a *Adapter) parseTime(s, kind, id string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	a.log.Warn().Str("kind", kind).Str("id", id).Str("value", s).Msg("unparseable timestamp")
	return time.Time{}
}
