package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/recruit-inbox/internal/model"
	"github.com/nhle/recruit-inbox/internal/store"
	"github.com/nhle/recruit-inbox/internal/testutil"
)

var base = time.Date(2026, 3, 1, 9, 30, 0, 123000000, time.UTC)

func TestSQLiteStore_Migrations(t *testing.T) {
	s := testutil.NewTestCache(t)

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inbox.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveThreads(ctx, []model.Thread{{ID: "t1", Subject: "Offer", LastMessageAt: base}}))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	threads, err := s.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "Offer", threads[0].Subject)
}

func TestSQLiteStore_Threads(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestCache(t)

	in := []model.Thread{
		{
			ID:            "t1",
			Subject:       "Backend role",
			OtherParty:    model.Party{Name: "Acme HR", AvatarURL: "https://cdn.example/a.png"},
			LastMessageAt: base,
			HasUnread:     true,
		},
		{ID: "t2", Subject: "Design role", LastMessageAt: base.Add(time.Hour)},
		{ID: "t3", Subject: "Tie", LastMessageAt: base},
	}
	require.NoError(t, s.SaveThreads(ctx, in))

	got, err := s.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"t2", "t1", "t3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "Acme HR", got[1].OtherParty.Name)
	assert.Equal(t, "https://cdn.example/a.png", got[1].OtherParty.AvatarURL)
	assert.True(t, got[1].HasUnread)
	assert.False(t, got[0].HasUnread)
	assert.True(t, got[1].LastMessageAt.Equal(base))
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestCache(t)

	require.NoError(t, s.SaveThreads(ctx, []model.Thread{{ID: "old"}}))
	require.NoError(t, s.SaveThreads(ctx, []model.Thread{{ID: "new"}}))

	got, err := s.LoadThreads(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
	assert.True(t, got[0].LastMessageAt.IsZero())
}

func TestSQLiteStore_Notifications(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestCache(t)

	in := []model.Notification{
		{ID: "n1", Type: model.NotificationInterviewScheduled, Title: "Interview", CreatedAt: base},
		{ID: "n2", Type: model.NotificationGeneric, Title: "Welcome", CreatedAt: base.Add(time.Minute), IsRead: true},
	}
	require.NoError(t, s.SaveNotifications(ctx, in))

	got, err := s.LoadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n2", got[0].ID)
	assert.True(t, got[0].IsRead)
	assert.Equal(t, model.NotificationInterviewScheduled, got[1].Type)
	assert.False(t, got[1].IsRead)
}

func TestSQLiteStore_SavedAt(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestCache(t)

	at, err := s.SavedAt(ctx, store.ResourceThreads)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	require.NoError(t, s.SaveThreads(ctx, nil))

	at, err = s.SavedAt(ctx, store.ResourceThreads)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), at, time.Minute)

	at, err = s.SavedAt(ctx, store.ResourceNotifications)
	require.NoError(t, err)
	assert.True(t, at.IsZero())
}
