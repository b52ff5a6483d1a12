package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/recruit-inbox/internal/model"
	"github.com/nhle/recruit-inbox/internal/remote"
	"github.com/nhle/recruit-inbox/internal/testutil"
)

func newEngine(t *testing.T, svc remote.Service, opts Options) *Engine {
	t.Helper()
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Hour
	}
	if opts.Viewer.Role == "" {
		opts.Viewer = model.Viewer{Role: model.RoleApplicant}
	}
	opts.Logger = zerolog.Nop()

	e := New(svc, opts)
	t.Cleanup(e.Detach)
	return e
}

func attach(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.Attach(context.Background()))
}

func threadByID(t *testing.T, snap Snapshot, id string) model.Thread {
	t.Helper()
	for _, th := range snap.Threads {
		if th.ID == id {
			return th
		}
	}
	t.Fatalf("thread %s not in snapshot", id)
	return model.Thread{}
}

func waitForRequest(t *testing.T, svc *testutil.FakeService, threadID string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case id := <-svc.MessageRequests():
			if id == threadID {
				return
			}
		case <-timeout:
			t.Fatalf("no message request for %s", threadID)
		}
	}
}

func TestEngine_CommandsRequireAttach(t *testing.T) {
	e := newEngine(t, testutil.NewFakeService(), Options{})
	ctx := context.Background()

	assert.ErrorIs(t, e.Refresh(ctx), ErrNotAttached)
	assert.ErrorIs(t, e.SelectThread(ctx, "a"), ErrNotAttached)
	assert.ErrorIs(t, e.SendMessageTo(ctx, "a", "hi"), ErrNotAttached)
	assert.ErrorIs(t, e.MarkAllRead(ctx), ErrNotAttached)
}

func TestEngine_AttachLoadsBothLists(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(unreadThread("a", t0), model.Thread{ID: "b", LastMessageAt: t0.Add(time.Hour)})
	svc.SetNotifications(model.Notification{ID: "n1", CreatedAt: t0})

	e := newEngine(t, svc, Options{})
	attach(t, e)

	snap := e.Snapshot()
	assert.True(t, snap.Attached())
	assert.Equal(t, "b", snap.Threads[0].ID)
	assert.Equal(t, 1, snap.UnreadThreadCount)
	assert.Equal(t, 1, snap.UnreadNotificationCount)
	assert.False(t, snap.LastSync.IsZero())
	assert.Empty(t, snap.Warning)
}

func TestEngine_StaleMessagesDiscarded(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "a"}, model.Thread{ID: "b"})
	svc.SetMessages("a", msg("a1", "a", model.RoleRecruiter, t0))
	svc.SetMessages("b", msg("b1", "b", model.RoleRecruiter, t0))

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	svc.Hold("a")
	done := make(chan error, 1)
	go func() { done <- e.SelectThread(ctx, "a") }()
	waitForRequest(t, svc, "a")

	require.NoError(t, e.SelectThread(ctx, "b"))
	svc.Release("a")
	require.NoError(t, <-done)

	snap := e.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "b1", snap.Messages[0].ID)
	assert.Equal(t, "b", snap.MessagesThreadID)
}

func TestEngine_ReselectAcceptsSlowResponse(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "a"}, model.Thread{ID: "b"})
	svc.SetMessages("a", msg("a1", "a", model.RoleRecruiter, t0))
	svc.SetMessages("b", msg("b1", "b", model.RoleRecruiter, t0))

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	svc.Hold("a")
	done := make(chan error, 1)
	go func() { done <- e.SelectThread(ctx, "a") }()
	waitForRequest(t, svc, "a")

	require.NoError(t, e.SelectThread(ctx, "b"))

	// Re-selecting a issues a second fetch, which is held as well.
	again := make(chan error, 1)
	go func() { again <- e.SelectThread(ctx, "a") }()
	waitForRequest(t, svc, "a")

	svc.Release("a")
	require.NoError(t, <-done)
	require.NoError(t, <-again)

	snap := e.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "a1", snap.Messages[0].ID)
}

func TestEngine_SelectedThreadStaysRead(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(unreadThread("t", t0), unreadThread("u", t0))
	svc.SetMessages("t", msg("m1", "t", model.RoleRecruiter, t0))

	e := newEngine(t, svc, Options{MaxReconcilePasses: 3})
	attach(t, e)
	ctx := context.Background()

	require.NoError(t, e.SelectThread(ctx, "t"))
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Refresh(ctx))
		assert.False(t, threadByID(t, e.Snapshot(), "t").HasUnread, "refresh %d", i+1)
	}
	assert.True(t, threadByID(t, e.Snapshot(), "u").HasUnread)
}

func TestEngine_ReadRetentionWindow(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(unreadThread("t", t0))
	svc.SetMessages("t", msg("m1", "t", model.RoleRecruiter, t0))

	e := newEngine(t, svc, Options{MaxReconcilePasses: 3})
	attach(t, e)
	ctx := context.Background()

	require.NoError(t, e.SelectThread(ctx, "t"))
	require.NoError(t, e.SelectThread(ctx, ""))

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Refresh(ctx))
		assert.False(t, threadByID(t, e.Snapshot(), "t").HasUnread, "refresh %d", i+1)
	}

	require.NoError(t, e.Refresh(ctx))
	assert.True(t, threadByID(t, e.Snapshot(), "t").HasUnread, "server wins once the window is over")
	assert.Zero(t, e.Snapshot().PendingMutations)
}

func TestEngine_NewMessageMakesClosedThreadUnread(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(unreadThread("t", t0))
	svc.SetMessages("t", msg("m1", "t", model.RoleRecruiter, t0))

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	require.NoError(t, e.SelectThread(ctx, "t"))
	e.ClearSelection()

	svc.SetThreads(unreadThread("t", t0.Add(time.Minute)))
	require.NoError(t, e.Refresh(ctx))

	assert.True(t, threadByID(t, e.Snapshot(), "t").HasUnread)
}

func TestEngine_NewMessageInOpenThreadStaysRead(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(unreadThread("t", t0))
	svc.SetMessages("t", msg("m1", "t", model.RoleRecruiter, t0))

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	require.NoError(t, e.SelectThread(ctx, "t"))

	later := t0.Add(time.Minute)
	svc.SetThreads(unreadThread("t", later))
	svc.SetMessages("t", msg("m1", "t", model.RoleRecruiter, t0), msg("m2", "t", model.RoleRecruiter, later))
	require.NoError(t, e.Refresh(ctx))

	snap := e.Snapshot()
	assert.False(t, threadByID(t, snap, "t").HasUnread)
	assert.Len(t, snap.Messages, 2)
	assert.False(t, snap.MessagesLoading, "poll refreshes are quiet")
}

func TestEngine_MessagesOrdered(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "t"})
	svc.SetMessages("t",
		msg("m3", "t", model.RoleRecruiter, t0.Add(3*time.Minute)),
		msg("m1", "t", model.RoleApplicant, t0.Add(time.Minute)),
		msg("m2", "t", model.RoleSystem, t0.Add(2*time.Minute)),
	)

	e := newEngine(t, svc, Options{})
	attach(t, e)
	require.NoError(t, e.SelectThread(context.Background(), "t"))

	snap := e.Snapshot()
	require.Len(t, snap.Messages, 3)
	for i := 1; i < len(snap.Messages); i++ {
		assert.False(t, snap.Messages[i].SentAt.Before(snap.Messages[i-1].SentAt))
	}
	assert.True(t, snap.Messages[0].IsMine)
}

func TestEngine_SendRefetchesWithoutFabricating(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "t", LastMessageAt: t0})
	svc.SetMessages("t", msg("m1", "t", model.RoleRecruiter, t0))

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()
	require.NoError(t, e.SelectThread(ctx, "t"))

	threadsBefore := svc.Calls("ListThreads")
	messagesBefore := svc.Calls("ListMessages")

	require.NoError(t, e.SendMessage(ctx, "  hello  "))

	assert.Equal(t, []testutil.SentMessage{{ThreadID: "t", Content: "hello"}}, svc.Sent())
	assert.Equal(t, threadsBefore+1, svc.Calls("ListThreads"))
	assert.Equal(t, messagesBefore+1, svc.Calls("ListMessages"))

	snap := e.Snapshot()
	require.Len(t, snap.Messages, 1, "no locally fabricated message")
	assert.Equal(t, "m1", snap.Messages[0].ID)
}

func TestEngine_SendToOtherThreadSkipsMessageRefetch(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "t"}, model.Thread{ID: "u"})

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	require.NoError(t, e.SendMessageTo(ctx, "u", "hello"))
	assert.Zero(t, svc.Calls("ListMessages"))
	assert.Equal(t, 2, svc.Calls("ListThreads"))
}

func TestEngine_SendValidation(t *testing.T) {
	svc := testutil.NewFakeService()
	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	assert.ErrorIs(t, e.SendMessage(ctx, "hello"), ErrNoThreadSelected)
	assert.ErrorIs(t, e.SendMessageTo(ctx, "t", " \n\t "), ErrEmptyMessage)
	assert.Zero(t, svc.Calls("SendMessage"))
}

func TestEngine_SendFailureIsNotRetried(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "t"})
	svc.SetError(&svc.SendErr, errors.New("connection reset"))

	e := newEngine(t, svc, Options{})
	attach(t, e)

	err := e.SendMessageTo(context.Background(), "t", "hello")
	require.Error(t, err)
	assert.True(t, remote.IsMutationError(err))
	assert.Equal(t, 1, svc.Calls("SendMessage"))
	assert.Empty(t, svc.Sent())
}

func TestEngine_MarkAllReadIdempotent(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetNotifications(
		model.Notification{ID: "n1", CreatedAt: t0},
		model.Notification{ID: "n2", CreatedAt: t0.Add(time.Minute)},
	)

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	require.NoError(t, e.MarkAllRead(ctx))
	once := e.Snapshot()
	require.NoError(t, e.MarkAllRead(ctx))
	twice := e.Snapshot()

	assert.Equal(t, once.Notifications, twice.Notifications)
	assert.Equal(t, once.PendingMutations, twice.PendingMutations)
	assert.Zero(t, twice.UnreadNotificationCount)
}

func TestEngine_MarkAllReadKeepsLaterNotifications(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetNotifications(model.Notification{ID: "n1", CreatedAt: t0})

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	require.NoError(t, e.SelectTab(ctx, model.TabNotifications))
	require.NoError(t, e.MarkAllRead(ctx))

	svc.SetNotifications(
		model.Notification{ID: "n1", CreatedAt: t0},
		model.Notification{ID: "n2", CreatedAt: t0.Add(time.Minute)},
	)
	require.NoError(t, e.Refresh(ctx))

	snap := e.Snapshot()
	require.Len(t, snap.Notifications, 2)
	assert.Equal(t, "n2", snap.Notifications[0].ID)
	assert.False(t, snap.Notifications[0].IsRead)
	assert.True(t, snap.Notifications[1].IsRead)
}

func TestEngine_MarkReadFailureKeepsOptimisticState(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetNotifications(model.Notification{ID: "n1", CreatedAt: t0})
	svc.SetError(&svc.MarkReadErr, &remote.AuthError{Message: "expired"})

	e := newEngine(t, svc, Options{})
	attach(t, e)

	err := e.MarkNotificationRead(context.Background(), "n1")
	require.Error(t, err)
	assert.True(t, remote.IsMutationError(err))
	assert.True(t, remote.IsAuthError(err))
	assert.True(t, e.Snapshot().Notifications[0].IsRead)
}

func TestEngine_RefreshFailureSetsWarning(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "t"})

	e := newEngine(t, svc, Options{})
	attach(t, e)
	ctx := context.Background()

	svc.SetError(&svc.ListThreadsErr, errors.New("503"))
	err := e.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err))

	snap := e.Snapshot()
	assert.NotEmpty(t, snap.Warning)
	require.Len(t, snap.Threads, 1, "failed refresh keeps the last good list")

	svc.SetError(&svc.ListThreadsErr, nil)
	require.NoError(t, e.Refresh(ctx))
	assert.Empty(t, e.Snapshot().Warning)
}

func TestEngine_DetachDropsInFlightResponse(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "a"})
	svc.SetMessages("a", msg("a1", "a", model.RoleRecruiter, t0))

	e := newEngine(t, svc, Options{})
	attach(t, e)

	svc.Hold("a")
	done := make(chan error, 1)
	go func() { done <- e.SelectThread(context.Background(), "a") }()
	waitForRequest(t, svc, "a")

	e.Detach()
	svc.Release("a")
	require.NoError(t, <-done)

	snap := e.Snapshot()
	assert.False(t, snap.Attached())
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.Threads)
}

func TestEngine_PrimesFromCache(t *testing.T) {
	ctx := context.Background()
	cache := testutil.NewTestCache(t)
	require.NoError(t, cache.SaveThreads(ctx, []model.Thread{{ID: "cached", LastMessageAt: t0}}))

	svc := testutil.NewFakeService()
	svc.SetError(&svc.ListThreadsErr, errors.New("offline"))

	e := newEngine(t, svc, Options{Cache: cache})
	require.Error(t, e.Attach(ctx))

	snap := e.Snapshot()
	assert.True(t, snap.Attached(), "engine stays attached when the first load fails")
	assert.True(t, snap.FromCache)
	require.Len(t, snap.Threads, 1)
	assert.Equal(t, "cached", snap.Threads[0].ID)
	assert.NotEmpty(t, snap.Warning)

	svc.SetError(&svc.ListThreadsErr, nil)
	svc.SetThreads(model.Thread{ID: "live", LastMessageAt: t0})
	require.NoError(t, e.Refresh(ctx))

	snap = e.Snapshot()
	assert.False(t, snap.FromCache)
	assert.Equal(t, "live", snap.Threads[0].ID)

	cached, err := cache.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "live", cached[0].ID)
}

func TestEngine_PollsOnSchedule(t *testing.T) {
	svc := testutil.NewFakeService()
	e := newEngine(t, svc, Options{PollInterval: 10 * time.Millisecond})
	attach(t, e)

	require.Eventually(t, func() bool {
		return svc.Calls("ListThreads") >= 3
	}, 2*time.Second, 5*time.Millisecond)

	e.Detach()
	calls := svc.Calls("ListThreads")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, svc.Calls("ListThreads"), "no polling after detach")
}

func TestEngine_WaitForUpdate(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetThreads(model.Thread{ID: "a"})
	e := newEngine(t, svc, Options{})
	attach(t, e)

	got := e.WaitForUpdate()()
	update, ok := got.(UpdateMsg)
	require.True(t, ok)
	assert.Len(t, update.Snapshot.Threads, 1)
}
