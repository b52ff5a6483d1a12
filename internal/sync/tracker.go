package sync

import (
	"time"

	"github.com/nhle/recruit-inbox/internal/model"
)

// MutationKind identifies an optimistic local change.
type MutationKind int

const (
	MarkThreadRead MutationKind = iota + 1
	MarkNotificationRead
	MarkAllNotificationsRead
	MessageSent
)

func (k MutationKind) String() string {
	switch k {
	case MarkThreadRead:
		return "mark_thread_read"
	case MarkNotificationRead:
		return "mark_notification_read"
	case MarkAllNotificationsRead:
		return "mark_all_notifications_read"
	case MessageSent:
		return "message_sent"
	default:
		return "unknown"
	}
}

func (k MutationKind) affectsThreads() bool {
	return k == MarkThreadRead || k == MessageSent
}

// Mutation is a local change applied ahead of the server.
type Mutation struct {
	Kind MutationKind

	// TargetID is the thread or notification id. It is empty for
	// MarkAllNotificationsRead.
	TargetID string
}

// PendingMutation is a Mutation awaiting confirmation by a poll snapshot.
type PendingMutation struct {
	Mutation

	// IssuedAt is the tracker sequence number the mutation was recorded at.
	IssuedAt uint64

	// Passes counts reconciliations that disagreed with the mutation
	// although their fetch was dispatched after it.
	Passes int

	// baseline is the thread's LastMessageAt when it was marked read.
	baseline time.Time

	// targets are the notifications a mark-all covered when issued.
	targets map[string]struct{}
}

// Tracker remembers optimistic mutations so that poll snapshots taken
// before the server caught up do not revert them. Records retire once a
// snapshot agrees, once the entity disappears, or after a bounded number
// of disagreeing passes. Tracker is not safe for concurrent use; State
// serializes access.
type Tracker struct {
	seq       uint64
	maxPasses int
	pending   []*PendingMutation
}

// NewTracker creates a tracker whose records survive at most maxPasses
// disagreeing snapshots.
func NewTracker(maxPasses int) *Tracker {
	if maxPasses < 1 {
		maxPasses = 1
	}
	return &Tracker{maxPasses: maxPasses}
}

// Seq returns the sequence number of the most recent mutation.
func (t *Tracker) Seq() uint64 {
	return t.seq
}

// Len returns the number of live records.
func (t *Tracker) Len() int {
	return len(t.pending)
}

// Pending returns a copy of the live records, oldest first.
func (t *Tracker) Pending() []PendingMutation {
	out := make([]PendingMutation, len(t.pending))
	for i, p := range t.pending {
		out[i] = *p
	}
	return out
}

// Reset drops every record.
func (t *Tracker) Reset() {
	t.pending = nil
}

// Record registers m. Recording the same kind and target again refreshes
// the existing record instead of adding a second one; a repeated mark-all
// extends its target set.
func (t *Tracker) Record(m Mutation, baseline time.Time, targets []string) *PendingMutation {
	t.seq++

	for _, p := range t.pending {
		if p.Kind != m.Kind || p.TargetID != m.TargetID {
			continue
		}
		p.IssuedAt = t.seq
		p.Passes = 0
		if baseline.After(p.baseline) {
			p.baseline = baseline
		}
		for _, id := range targets {
			p.targets[id] = struct{}{}
		}
		return p
	}

	p := &PendingMutation{
		Mutation: m,
		IssuedAt: t.seq,
		baseline: baseline,
		targets:  make(map[string]struct{}, len(targets)),
	}
	for _, id := range targets {
		p.targets[id] = struct{}{}
	}
	t.pending = append(t.pending, p)
	return p
}

// limit returns how many counted passes a record of kind survives.
// A sent message only needs to outlive the next thread list snapshot.
func (t *Tracker) limit(kind MutationKind) int {
	if kind == MessageSent {
		return 1
	}
	return t.maxPasses
}

// countPass records a disagreeing pass and reports whether p is still live.
func (t *Tracker) countPass(p *PendingMutation, dispatched uint64) bool {
	if dispatched < p.IssuedAt {
		return true
	}
	p.Passes++
	return p.Passes < t.limit(p.Kind)
}

// ReconcileThreads merges a thread snapshot fetched at sequence
// dispatched with the live thread records and returns the list to show.
// selectedThreadID is the thread currently open; its read record is never
// superseded by newer messages because the viewer is looking at them.
func (t *Tracker) ReconcileThreads(
	snapshot []model.Thread,
	dispatched uint64,
	selectedThreadID string,
) []model.Thread {
	out := make([]model.Thread, len(snapshot))
	copy(out, snapshot)

	index := make(map[string]int, len(snapshot))
	for i, th := range snapshot {
		index[th.ID] = i
	}

	kept := make([]*PendingMutation, 0, len(t.pending))
	for _, p := range t.pending {
		if !p.Kind.affectsThreads() {
			kept = append(kept, p)
			continue
		}

		i, ok := index[p.TargetID]
		if !ok {
			continue
		}
		server := snapshot[i]

		if p.Kind == MarkThreadRead {
			if p.baseline.IsZero() {
				p.baseline = server.LastMessageAt
			}
			if p.TargetID != selectedThreadID && server.LastMessageAt.After(p.baseline) {
				// A newer message arrived after the thread was read.
				continue
			}
		}

		if !server.HasUnread {
			continue
		}

		out[i].HasUnread = false
		if t.countPass(p, dispatched) {
			kept = append(kept, p)
		}
	}
	t.pending = kept

	return out
}

// ReconcileNotifications merges a notification snapshot fetched at
// sequence dispatched with the live notification records.
func (t *Tracker) ReconcileNotifications(
	snapshot []model.Notification,
	dispatched uint64,
) []model.Notification {
	out := make([]model.Notification, len(snapshot))
	copy(out, snapshot)

	index := make(map[string]int, len(snapshot))
	for i, n := range snapshot {
		index[n.ID] = i
	}

	kept := make([]*PendingMutation, 0, len(t.pending))
	for _, p := range t.pending {
		switch p.Kind {
		case MarkNotificationRead:
			i, ok := index[p.TargetID]
			if !ok || snapshot[i].IsRead {
				continue
			}
			out[i].IsRead = true
			if t.countPass(p, dispatched) {
				kept = append(kept, p)
			}

		case MarkAllNotificationsRead:
			disagrees := false
			for id := range p.targets {
				i, ok := index[id]
				if !ok || snapshot[i].IsRead {
					continue
				}
				out[i].IsRead = true
				disagrees = true
			}
			if disagrees && t.countPass(p, dispatched) {
				kept = append(kept, p)
			}

		default:
			kept = append(kept, p)
		}
	}
	t.pending = kept

	return out
}
