package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbutil "github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// setupTestManager opens an in-memory database with the schema initialized.
func setupTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := Open(dbutil.Memory, nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func sampleQueue() playback.SavedQueue {
	return playback.SavedQueue{
		Items: []playlist.MediaItem{
			{ID: "a", URI: "/music/a.mp3", Title: "A", Artist: "Artist", Album: "Album", Duration: 3 * time.Minute},
			{ID: "b", URI: "https://example.com/b.mp3", Title: "B", IsPodcast: true},
			{ID: "c", URI: "/music/c.mkv", IsVideo: true, ArtworkRef: "/covers/c.jpg"},
		},
		Index:    1,
		Position: 42500 * time.Millisecond,
		Repeat:   playlist.RepeatAll,
		Shuffle:  true,
	}
}

func TestLoadQueue_Empty(t *testing.T) {
	m := setupTestManager(t)

	q, err := m.LoadQueue()
	if err != nil {
		t.Fatalf("LoadQueue failed: %v", err)
	}
	if q != nil {
		t.Errorf("expected nil queue on empty db, got %+v", q)
	}
}

func TestSaveAndLoadQueue(t *testing.T) {
	m := setupTestManager(t)
	want := sampleQueue()

	require.NoError(t, m.SaveQueue(want))
	got, err := m.LoadQueue()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSaveQueue_ReplacesPrevious(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.SaveQueue(sampleQueue()))
	require.NoError(t, m.Flush())

	smaller := playback.SavedQueue{
		Items: []playlist.MediaItem{{ID: "z", URI: "/music/z.flac"}},
		Index: 0,
	}
	require.NoError(t, m.SaveQueue(smaller))
	require.NoError(t, m.Flush())

	got, err := getQueue(m.DB())
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "z", got.Items[0].ID)
	assert.Equal(t, playlist.RepeatNone, got.Repeat)
	assert.False(t, got.Shuffle)
}

func TestSaveQueue_Debounced(t *testing.T) {
	m := setupTestManager(t)

	q := sampleQueue()
	require.NoError(t, m.SaveQueue(q))
	q.Index = 2
	require.NoError(t, m.SaveQueue(q))

	got, err := getQueue(m.DB())
	require.NoError(t, err)
	assert.Nil(t, got, "nothing written before the debounce")

	require.Eventually(t, func() bool {
		got, err := getQueue(m.DB())
		return err == nil && got != nil && got.Index == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestGetQueue_ClampsIndex(t *testing.T) {
	m := setupTestManager(t)
	q := sampleQueue()
	q.Index = 9
	require.NoError(t, saveQueue(m.DB(), q))

	got, err := getQueue(m.DB())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Index)
}

func TestRate(t *testing.T) {
	m := setupTestManager(t)

	rate, err := m.LoadRate()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rate, 0)

	require.NoError(t, m.SaveRate(1.5))
	rate, err = m.LoadRate()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, rate, 0)

	require.NoError(t, m.setSetting(keyRate, "fast"))
	rate, err = m.LoadRate()
	assert.Error(t, err)
	assert.InDelta(t, 1.0, rate, 0)
}

func TestBookmarks(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.AddBookmark("ep1", 90*time.Second))
	require.NoError(t, m.AddBookmark("ep1", 30*time.Second))
	require.NoError(t, m.AddBookmark("ep1", 30*time.Second))
	require.NoError(t, m.AddBookmark("ep2", time.Second))

	got, err := m.Bookmarks("ep1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 30*time.Second, got[0].Position)
	assert.Equal(t, 90*time.Second, got[1].Position)
}

func TestLastfmSession(t *testing.T) {
	m := setupTestManager(t)

	sess, err := m.GetLastfmSession()
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, m.SaveLastfmSession("user1", "key1"))
	require.NoError(t, m.SaveLastfmSession("user2", "key2"))

	sess, err = m.GetLastfmSession()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "user2", sess.Username)
	assert.Equal(t, "key2", sess.SessionKey)
	assert.WithinDuration(t, time.Now(), sess.LinkedAt, time.Minute)

	require.NoError(t, m.DeleteLastfmSession())
	sess, err = m.GetLastfmSession()
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, m.DeleteLastfmSession(), "unlinking twice")
}

func TestLastfmSession_KeepsRate(t *testing.T) {
	m := setupTestManager(t)
	require.NoError(t, m.SaveRate(1.25))
	require.NoError(t, m.SaveLastfmSession("user", "key"))

	require.NoError(t, m.DeleteLastfmSession())

	rate, err := m.LoadRate()
	require.NoError(t, err)
	assert.InDelta(t, 1.25, rate, 0)
}

func TestPendingScrobbles(t *testing.T) {
	m := setupTestManager(t)
	started := time.Unix(1700000000, 0)

	require.NoError(t, m.AddPendingScrobble(PendingScrobble{
		Artist: "Artist 1", Title: "Title 1", Album: "Album 1",
		Length: 3*time.Minute + 500*time.Millisecond, StartedAt: started,
	}))
	require.NoError(t, m.AddPendingScrobble(PendingScrobble{
		Artist: "Artist 2", Title: "Title 2", StartedAt: started.Add(time.Hour),
	}))

	got, err := m.GetPendingScrobbles()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Title 1", got[0].Title)
	assert.Equal(t, "Album 1", got[0].Album)
	assert.Equal(t, 3*time.Minute+500*time.Millisecond, got[0].Length)
	assert.True(t, got[0].StartedAt.Equal(started))
	assert.Empty(t, got[1].Album)
	assert.Zero(t, got[1].Attempts)

	require.NoError(t, m.UpdatePendingScrobbleAttempt(got[0].ID, "connection error"))
	require.NoError(t, m.UpdatePendingScrobbleAttempt(got[0].ID, "timeout"))
	require.NoError(t, m.DeletePendingScrobble(got[1].ID))

	got, err = m.GetPendingScrobbles()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Attempts)
	assert.Equal(t, "timeout", got[0].LastError)
}

func TestDeleteOldPendingScrobbles(t *testing.T) {
	m := setupTestManager(t)
	require.NoError(t, m.AddPendingScrobble(PendingScrobble{Artist: "A", Title: "T", StartedAt: time.Now()}))

	require.NoError(t, m.DeleteOldPendingScrobbles(time.Hour))
	got, err := m.GetPendingScrobbles()
	require.NoError(t, err)
	assert.Len(t, got, 1, "recent entry kept")

	_, err = m.db.Exec(`UPDATE lastfm_pending_scrobbles SET created_at = ?`, time.Now().Add(-2*time.Hour).Unix())
	require.NoError(t, err)

	require.NoError(t, m.DeleteOldPendingScrobbles(time.Hour))
	got, err = m.GetPendingScrobbles()
	require.NoError(t, err)
	assert.Empty(t, got)
}
