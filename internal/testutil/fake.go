package testutil

import (
	"context"
	"sync"

	"github.com/nhle/recruit-inbox/internal/model"
	"github.com/nhle/recruit-inbox/internal/remote"
)

// SentMessage records one FakeService.SendMessage call.
type SentMessage struct {
	ThreadID string
	Content  string
}

// FakeService is an in-memory remote.Service. Message fetches for a
// thread can be held back with Hold and let through with Release, which
// lets tests control the order in which responses land.
type FakeService struct {
	mu sync.Mutex

	threads       []model.Thread
	messages      map[string][]model.Message
	notifications []model.Notification

	// Errors returned by the matching call when set.
	ListThreadsErr       error
	ListMessagesErr      error
	ListNotificationsErr error
	SendErr              error
	MarkReadErr          error
	MarkAllErr           error

	gates map[string]chan struct{}

	calls         map[string]int
	sent          []SentMessage
	markedRead    []string
	markAllCalls  int
	messageWaiter chan string
}

var _ remote.Service = (*FakeService)(nil)

// NewFakeService creates an empty fake.
func NewFakeService() *FakeService {
	return &FakeService{
		messages:      make(map[string][]model.Message),
		gates:         make(map[string]chan struct{}),
		calls:         make(map[string]int),
		messageWaiter: make(chan string, 64),
	}
}

// SetThreads replaces the server's thread list.
func (f *FakeService) SetThreads(threads ...model.Thread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append([]model.Thread(nil), threads...)
}

// SetMessages replaces the server's messages for threadID.
func (f *FakeService) SetMessages(threadID string, msgs ...model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[threadID] = append([]model.Message(nil), msgs...)
}

// SetNotifications replaces the server's notification list.
func (f *FakeService) SetNotifications(ns ...model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append([]model.Notification(nil), ns...)
}

// SetError sets the error of one call under lock.
func (f *FakeService) SetError(target *error, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*target = err
}

// Hold makes ListMessages for threadID block until Release.
func (f *FakeService) Hold(threadID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[threadID] = make(chan struct{})
}

// Release unblocks every held ListMessages call for threadID.
func (f *FakeService) Release(threadID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.gates[threadID]; ok {
		close(g)
		delete(f.gates, threadID)
	}
}

// MessageRequests receives the thread id of every ListMessages call as
// soon as it starts.
func (f *FakeService) MessageRequests() <-chan string {
	return f.messageWaiter
}

// Calls returns how often op was called.
func (f *FakeService) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Sent returns every delivered message.
func (f *FakeService) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}

// MarkedRead returns the notification ids marked read one by one.
func (f *FakeService) MarkedRead() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.markedRead...)
}

// MarkAllCalls returns how often MarkAllNotificationsRead succeeded.
func (f *FakeService) MarkAllCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markAllCalls
}

func (f *FakeService) ListThreads(ctx context.Context) ([]model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListThreads"]++
	if f.ListThreadsErr != nil {
		return nil, f.ListThreadsErr
	}
	return append([]model.Thread(nil), f.threads...), nil
}

func (f *FakeService) ListMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	f.mu.Lock()
	f.calls["ListMessages"]++
	gate := f.gates[threadID]
	// Snapshot the response at request time, as a server would.
	msgs := append([]model.Message(nil), f.messages[threadID]...)
	err := f.ListMessagesErr
	f.mu.Unlock()

	select {
	case f.messageWaiter <- threadID:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (f *FakeService) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListNotifications"]++
	if f.ListNotificationsErr != nil {
		return nil, f.ListNotificationsErr
	}
	return append([]model.Notification(nil), f.notifications...), nil
}

func (f *FakeService) SendMessage(ctx context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SendMessage"]++
	if f.SendErr != nil {
		return f.SendErr
	}
	f.sent = append(f.sent, SentMessage{ThreadID: threadID, Content: content})
	return nil
}

func (f *FakeService) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["MarkNotificationRead"]++
	if f.MarkReadErr != nil {
		return f.MarkReadErr
	}
	f.markedRead = append(f.markedRead, id)
	return nil
}

func (f *FakeService) MarkAllNotificationsRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["MarkAllNotificationsRead"]++
	if f.MarkAllErr != nil {
		return f.MarkAllErr
	}
	f.markAllCalls++
	return nil
}
