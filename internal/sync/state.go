package sync

import (
	gosync "sync"
	"time"

	"github.com/nhle/recruit-inbox/internal/metrics"
	"github.com/nhle/recruit-inbox/internal/model"
)

// Snapshot is a consistent, read-only copy of the synchronized state.
type Snapshot struct {
	Selection model.Selection

	Threads []model.Thread

	// Messages belong to MessagesThreadID, which is always the selected
	// thread or empty.
	Messages         []model.Message
	MessagesThreadID string
	MessagesLoading  bool

	Notifications []model.Notification

	UnreadThreadCount       int
	UnreadNotificationCount int

	// Warning is a non-blocking message about the last failed refresh.
	Warning string

	LastSync time.Time

	// FromCache is true while a list still comes from the local cache
	// because no live response for it has landed yet.
	FromCache bool

	PendingMutations int
}

// Attached reports whether the snapshot belongs to a live session.
func (s Snapshot) Attached() bool {
	return s.Selection.Session != 0
}

// SelectedThread returns the open thread from the thread list.
func (s Snapshot) SelectedThread() (model.Thread, bool) {
	for _, t := range s.Threads {
		if t.ID == s.Selection.ThreadID {
			return t, s.Selection.ThreadID != ""
		}
	}
	return model.Thread{}, false
}

// State is the reconciled store the presentation layer reads. Every
// mutation holds the write lock for its whole duration, so readers never
// observe a partial merge.
type State struct {
	mu       gosync.RWMutex
	viewer   model.Viewer
	tracker  *Tracker
	sessions uint64

	selection        model.Selection
	threads          []model.Thread
	messages         []model.Message
	messagesThreadID string
	messagesLoading  bool
	notifications    []model.Notification
	warning          string
	lastSync         time.Time
	threadsLive      bool
	notifsLive       bool
	threadsCached    bool
	notifsCached     bool

	updates chan struct{}
}

// NewState creates a detached store.
func NewState(viewer model.Viewer, maxPasses int) *State {
	return &State{
		viewer:  viewer,
		tracker: NewTracker(maxPasses),
		updates: make(chan struct{}, 1),
	}
}

// Updates returns a channel that receives after every change. Bursts of
// changes coalesce into one signal.
func (s *State) Updates() <-chan struct{} {
	return s.updates
}

func (s *State) notify() {
	metrics.PendingMutations.Set(float64(s.tracker.Len()))
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Attach starts a new session with an empty state and the Messages tab.
func (s *State) Attach() model.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions++
	s.reset()
	s.selection = model.Selection{Tab: model.TabMessages, Session: s.sessions}
	s.notify()
	return s.selection
}

// Detach ends the session. Responses still in flight will be dropped.
func (s *State) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions++
	s.reset()
	s.selection = model.Selection{}
	s.notify()
}

func (s *State) reset() {
	s.threads = nil
	s.messages = nil
	s.messagesThreadID = ""
	s.messagesLoading = false
	s.notifications = nil
	s.warning = ""
	s.lastSync = time.Time{}
	s.threadsLive = false
	s.notifsLive = false
	s.threadsCached = false
	s.notifsCached = false
	s.tracker.Reset()
}

// Selection returns the current selection context.
func (s *State) Selection() model.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// Tag stamps a fetch about to be dispatched.
func (s *State) Tag() FetchTag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tagLocked()
}

func (s *State) tagLocked() FetchTag {
	return FetchTag{
		Session:  s.selection.Session,
		ThreadID: s.selection.ThreadID,
		Seq:      s.tracker.Seq(),
	}
}

// SelectTab switches the active tab.
func (s *State) SelectTab(tab model.Tab) FetchTag {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection.Tab != tab {
		s.selection.Tab = tab
		s.notify()
	}
	return s.tagLocked()
}

// SelectThread opens a thread. Messages of a previously open thread are
// cleared before the returned tag is used to fetch the new ones, and the
// thread is marked read optimistically.
func (s *State) SelectThread(threadID string) FetchTag {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection.Tab = model.TabMessages
	if s.selection.ThreadID != threadID || s.messagesThreadID != threadID {
		s.messages = nil
		s.messagesLoading = true
	}
	s.selection.ThreadID = threadID
	s.messagesThreadID = threadID

	s.applyOptimisticLocked(Mutation{Kind: MarkThreadRead, TargetID: threadID})
	s.notify()
	return s.tagLocked()
}

// ClearSelection closes the open thread.
func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection.ThreadID = ""
	s.messages = nil
	s.messagesThreadID = ""
	s.messagesLoading = false
	s.notify()
}

// ApplyThreads merges a thread list fetched under tag. It returns the
// reconciled list and whether the response was accepted.
func (s *State) ApplyThreads(tag FetchTag, threads []model.Thread) ([]model.Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !tag.acceptsList(s.selection) {
		metrics.StaleResponses.Inc()
		return nil, false
	}

	merged := s.tracker.ReconcileThreads(threads, tag.Seq, s.selection.ThreadID)
	model.SortThreads(merged)
	s.threads = merged
	s.threadsLive = true
	s.threadsCached = false
	s.lastSync = time.Now()
	s.notify()

	return cloneThreads(merged), true
}

// ApplyNotifications merges a notification list fetched under tag.
func (s *State) ApplyNotifications(tag FetchTag, ns []model.Notification) ([]model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !tag.acceptsList(s.selection) {
		metrics.StaleResponses.Inc()
		return nil, false
	}

	merged := s.tracker.ReconcileNotifications(ns, tag.Seq)
	model.SortNotifications(merged)
	s.notifications = merged
	s.notifsLive = true
	s.notifsCached = false
	s.lastSync = time.Now()
	s.notify()

	return cloneNotifications(merged), true
}

// ApplyMessages replaces the open thread's messages with a list fetched
// under tag. Responses for any thread other than the open one are dropped.
func (s *State) ApplyMessages(tag FetchTag, msgs []model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !tag.acceptsMessages(s.selection) {
		metrics.StaleResponses.Inc()
		return false
	}

	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if out[i].ThreadID == "" {
			out[i].ThreadID = tag.ThreadID
		}
		out[i].IsMine = s.viewer.Owns(out[i])
	}
	model.SortMessages(out)

	s.messages = out
	s.messagesThreadID = tag.ThreadID
	s.messagesLoading = false

	// The viewer is looking at these messages, so the thread stays read.
	s.applyOptimisticLocked(Mutation{Kind: MarkThreadRead, TargetID: tag.ThreadID})
	if n := len(out); n > 0 {
		s.raiseBaselineLocked(tag.ThreadID, out[n-1].SentAt)
	}
	s.notify()
	return true
}

// FailMessages ends the loading state of a message fetch that failed,
// provided it still belongs to the open thread.
func (s *State) FailMessages(tag FetchTag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !tag.acceptsMessages(s.selection) || !s.messagesLoading {
		return
	}
	s.messagesLoading = false
	s.notify()
}

// ApplyOptimistic applies m locally and records it for reconciliation.
func (s *State) ApplyOptimistic(m Mutation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyOptimisticLocked(m)
	s.notify()
}

func (s *State) applyOptimisticLocked(m Mutation) {
	switch m.Kind {
	case MarkThreadRead, MessageSent:
		var baseline time.Time
		for i := range s.threads {
			if s.threads[i].ID == m.TargetID {
				baseline = s.threads[i].LastMessageAt
				s.threads[i].HasUnread = false
			}
		}
		s.tracker.Record(m, baseline, nil)

	case MarkNotificationRead:
		for i := range s.notifications {
			if s.notifications[i].ID == m.TargetID {
				s.notifications[i].IsRead = true
			}
		}
		s.tracker.Record(m, time.Time{}, nil)

	case MarkAllNotificationsRead:
		var targets []string
		for i := range s.notifications {
			if !s.notifications[i].IsRead {
				targets = append(targets, s.notifications[i].ID)
				s.notifications[i].IsRead = true
			}
		}
		if len(targets) == 0 {
			return
		}
		s.tracker.Record(m, time.Time{}, targets)
	}
}

// raiseBaselineLocked moves a live read record's baseline forward to at,
// so a thread list that has caught up with messages already shown does
// not supersede it.
func (s *State) raiseBaselineLocked(threadID string, at time.Time) {
	for _, p := range s.tracker.pending {
		if p.Kind == MarkThreadRead && p.TargetID == threadID && at.After(p.baseline) {
			p.baseline = at
		}
	}
}

// PrimeFromCache seeds the lists from a local cache. Lists that already
// received a live response are left alone.
func (s *State) PrimeFromCache(threads []model.Thread, ns []model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection.Session == 0 {
		return
	}
	primed := false
	if !s.threadsLive && len(threads) > 0 {
		s.threads = cloneThreads(threads)
		model.SortThreads(s.threads)
		s.threadsCached = true
		primed = true
	}
	if !s.notifsLive && len(ns) > 0 {
		s.notifications = cloneNotifications(ns)
		model.SortNotifications(s.notifications)
		s.notifsCached = true
		primed = true
	}
	if primed {
		s.notify()
	}
}

// SetWarning records a soft failure. An empty string clears it.
func (s *State) SetWarning(w string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.warning == w {
		return
	}
	s.warning = w
	s.notify()
}

// Pending returns the live mutation records.
func (s *State) Pending() []PendingMutation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Pending()
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]model.Message, len(s.messages))
	copy(msgs, s.messages)

	return Snapshot{
		Selection:               s.selection,
		Threads:                 cloneThreads(s.threads),
		Messages:                msgs,
		MessagesThreadID:        s.messagesThreadID,
		MessagesLoading:         s.messagesLoading,
		Notifications:           cloneNotifications(s.notifications),
		UnreadThreadCount:       model.CountUnreadThreads(s.threads),
		UnreadNotificationCount: model.CountUnreadNotifications(s.notifications),
		Warning:                 s.warning,
		LastSync:                s.lastSync,
		FromCache:               s.threadsCached || s.notifsCached,
		PendingMutations:        s.tracker.Len(),
	}
}

func cloneThreads(in []model.Thread) []model.Thread {
	out := make([]model.Thread, len(in))
	copy(out, in)
	return out
}

func cloneNotifications(in []model.Notification) []model.Notification {
	out := make([]model.Notification, len(in))
	copy(out, in)
	return out
}
