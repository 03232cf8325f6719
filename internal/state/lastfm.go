package state

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

const (
	keyLastfmUser     = "lastfm.username"
	keyLastfmSession  = "lastfm.session_key"
	keyLastfmLinkedAt = "lastfm.linked_at"
)

// LastfmSession is the linked Last.fm account.
type LastfmSession struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

// PendingScrobble is a play Last.fm has not accepted yet.
type PendingScrobble struct {
	ID        int64
	Artist    string
	Title     string
	Album     string
	Length    time.Duration
	StartedAt time.Time
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// GetLastfmSession returns the linked account, or nil when none is linked.
func (m *Manager) GetLastfmSession() (*LastfmSession, error) {
	key, ok, err := m.setting(keyLastfmSession)
	if err != nil || !ok || key == "" {
		return nil, err
	}
	user, _, err := m.setting(keyLastfmUser)
	if err != nil {
		return nil, err
	}
	s := &LastfmSession{Username: user, SessionKey: key}
	if v, ok, err := m.setting(keyLastfmLinkedAt); err == nil && ok {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.LinkedAt = time.Unix(unix, 0)
		}
	}
	return s, nil
}

// SaveLastfmSession links an account, replacing any previous one.
func (m *Manager) SaveLastfmSession(username, sessionKey string) error {
	linkedAt := strconv.FormatInt(time.Now().Unix(), 10)
	return dbutil.WithTx(context.Background(), m.db, func(tx *sql.Tx) error {
		for key, value := range map[string]string{
			keyLastfmUser:     username,
			keyLastfmSession:  sessionKey,
			keyLastfmLinkedAt: linkedAt,
		} {
			if err := putSetting(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteLastfmSession unlinks the account. Pending scrobbles are kept.
func (m *Manager) DeleteLastfmSession() error {
	_, err := m.db.Exec(`DELETE FROM settings WHERE key IN (?, ?, ?)`,
		keyLastfmUser, keyLastfmSession, keyLastfmLinkedAt)
	return err
}

// AddPendingScrobble queues a play for a later retry.
func (m *Manager) AddPendingScrobble(s PendingScrobble) error {
	_, err := m.db.Exec(`
		INSERT INTO lastfm_pending_scrobbles (artist, title, album, length_ms, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.Artist, s.Title, s.Album, s.Length.Milliseconds(), s.StartedAt.Unix(), time.Now().Unix())
	return err
}

// GetPendingScrobbles returns the queued plays, oldest first.
func (m *Manager) GetPendingScrobbles() ([]PendingScrobble, error) {
	rows, err := m.db.Query(`
		SELECT id, artist, title, album, length_ms, started_at, attempts, last_error, created_at
		FROM lastfm_pending_scrobbles
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingScrobble
	for rows.Next() {
		var s PendingScrobble
		var album, lastError sql.Null[string]
		var lengthMS, startedAt, createdAt int64
		if err := rows.Scan(&s.ID, &s.Artist, &s.Title, &album, &lengthMS,
			&startedAt, &s.Attempts, &lastError, &createdAt); err != nil {
			return nil, err
		}
		s.Album = dbutil.Value(album)
		s.LastError = dbutil.Value(lastError)
		s.Length = time.Duration(lengthMS) * time.Millisecond
		s.StartedAt = time.Unix(startedAt, 0)
		s.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeletePendingScrobble drops a play once submitted.
func (m *Manager) DeletePendingScrobble(id int64) error {
	_, err := m.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE id = ?`, id)
	return err
}

// UpdatePendingScrobbleAttempt records a failed retry.
func (m *Manager) UpdatePendingScrobbleAttempt(id int64, errMsg string) error {
	_, err := m.db.Exec(`
		UPDATE lastfm_pending_scrobbles SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`, errMsg, id)
	return err
}

// DeleteOldPendingScrobbles drops plays queued longer than maxAge ago.
// Last.fm rejects scrobbles older than two weeks.
func (m *Manager) DeleteOldPendingScrobbles(maxAge time.Duration) error {
	_, err := m.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE created_at < ?`,
		time.Now().Add(-maxAge).Unix())
	return err
}
