package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/recruit-inbox/internal/model"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func unreadThread(id string, at time.Time) model.Thread {
	return model.Thread{ID: id, Subject: id, LastMessageAt: at, HasUnread: true}
}

func TestTracker_RecordDedupes(t *testing.T) {
	tr := NewTracker(10)

	first := tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "a"}, t0, nil)
	first.Passes = 4
	second := tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "a"}, t0, nil)

	assert.Same(t, first, second)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, uint64(2), second.IssuedAt)
	assert.Zero(t, second.Passes)

	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "b"}, t0, nil)
	assert.Equal(t, 2, tr.Len())
}

func TestTracker_ThreadReadHoldsAgainstLaggingSnapshots(t *testing.T) {
	tr := NewTracker(3)
	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "a"}, t0, nil)

	snapshot := []model.Thread{unreadThread("a", t0), unreadThread("b", t0)}

	for i := 0; i < 3; i++ {
		out := tr.ReconcileThreads(snapshot, tr.Seq(), "")
		assert.False(t, out[0].HasUnread, "pass %d", i+1)
		assert.True(t, out[1].HasUnread)
	}
	assert.Zero(t, tr.Len(), "record retires after the pass limit")

	out := tr.ReconcileThreads(snapshot, tr.Seq(), "")
	assert.True(t, out[0].HasUnread)
	assert.True(t, snapshot[0].HasUnread, "input is not modified")
}

func TestTracker_EarlierDispatchDoesNotCount(t *testing.T) {
	tr := NewTracker(1)
	before := tr.Seq()
	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "a"}, t0, nil)

	snapshot := []model.Thread{unreadThread("a", t0)}
	for i := 0; i < 5; i++ {
		out := tr.ReconcileThreads(snapshot, before, "")
		assert.False(t, out[0].HasUnread)
	}
	require.Equal(t, 1, tr.Len())
	assert.Zero(t, tr.Pending()[0].Passes)
}

func TestTracker_RetiresOnAgreementOrAbsence(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "a"}, t0, nil)
	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "gone"}, t0, nil)

	out := tr.ReconcileThreads([]model.Thread{{ID: "a", LastMessageAt: t0}}, tr.Seq(), "")

	assert.False(t, out[0].HasUnread)
	assert.Zero(t, tr.Len())
}

func TestTracker_NewerMessageSupersedesRead(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "a"}, t0, nil)

	out := tr.ReconcileThreads([]model.Thread{unreadThread("a", t0.Add(time.Minute))}, tr.Seq(), "")

	assert.True(t, out[0].HasUnread)
	assert.Zero(t, tr.Len())
}

func TestTracker_SelectedThreadIsNotSuperseded(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "a"}, t0, nil)

	out := tr.ReconcileThreads([]model.Thread{unreadThread("a", t0.Add(time.Minute))}, tr.Seq(), "a")

	assert.False(t, out[0].HasUnread)
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_ZeroBaselineAdoptsSnapshot(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "a"}, time.Time{}, nil)

	out := tr.ReconcileThreads([]model.Thread{unreadThread("a", t0)}, tr.Seq(), "")
	assert.False(t, out[0].HasUnread)

	out = tr.ReconcileThreads([]model.Thread{unreadThread("a", t0.Add(time.Second))}, tr.Seq(), "")
	assert.True(t, out[0].HasUnread)
}

func TestTracker_MessageSentLastsOnePass(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Mutation{Kind: MessageSent, TargetID: "a"}, t0, nil)

	snapshot := []model.Thread{unreadThread("a", t0)}

	out := tr.ReconcileThreads(snapshot, tr.Seq(), "")
	assert.False(t, out[0].HasUnread)
	assert.Zero(t, tr.Len())

	out = tr.ReconcileThreads(snapshot, tr.Seq(), "")
	assert.True(t, out[0].HasUnread)
}

func TestTracker_MarkAllOnlyCoversCapturedIDs(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Mutation{Kind: MarkAllNotificationsRead}, time.Time{}, []string{"n1", "n2"})

	snapshot := []model.Notification{
		{ID: "n1"},
		{ID: "n2", IsRead: true},
		{ID: "n3"},
	}
	out := tr.ReconcileNotifications(snapshot, tr.Seq())

	assert.True(t, out[0].IsRead)
	assert.True(t, out[1].IsRead)
	assert.False(t, out[2].IsRead, "notifications arriving later are not suppressed")
	assert.Equal(t, 1, tr.Len())

	all := []model.Notification{{ID: "n1", IsRead: true}, {ID: "n2", IsRead: true}}
	tr.ReconcileNotifications(all, tr.Seq())
	assert.Zero(t, tr.Len())
}

func TestTracker_MarkAllUnionsTargets(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Mutation{Kind: MarkAllNotificationsRead}, time.Time{}, []string{"n1"})
	tr.Record(Mutation{Kind: MarkAllNotificationsRead}, time.Time{}, []string{"n2"})

	require.Equal(t, 1, tr.Len())
	out := tr.ReconcileNotifications([]model.Notification{{ID: "n1"}, {ID: "n2"}}, tr.Seq())
	assert.True(t, out[0].IsRead)
	assert.True(t, out[1].IsRead)
}

func TestTracker_NotificationRead(t *testing.T) {
	tr := NewTracker(2)
	tr.Record(Mutation{Kind: MarkNotificationRead, TargetID: "n1"}, time.Time{}, nil)

	snapshot := []model.Notification{{ID: "n1"}, {ID: "n2"}}

	out := tr.ReconcileNotifications(snapshot, tr.Seq())
	assert.True(t, out[0].IsRead)
	assert.False(t, out[1].IsRead)

	tr.ReconcileNotifications(snapshot, tr.Seq())
	assert.Zero(t, tr.Len())
}

func TestTracker_KindsDoNotCrossResources(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Mutation{Kind: MarkThreadRead, TargetID: "x"}, t0, nil)
	tr.Record(Mutation{Kind: MarkNotificationRead, TargetID: "x"}, time.Time{}, nil)

	tr.ReconcileThreads(nil, tr.Seq(), "")
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, MarkNotificationRead, tr.Pending()[0].Kind)

	tr.ReconcileNotifications(nil, tr.Seq())
	assert.Zero(t, tr.Len())
}
