package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/askbetter/internal/storage"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		theme      TEXT NOT NULL DEFAULT '',
		language   TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		timestamp  INTEGER NOT NULL,
		chat_log   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, timestamp DESC)`,
}

// SQLiteStore keeps documents in the shared SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore migrates the document tables and returns the store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if err := storage.Migrate(db, sqliteSchema...); err != nil {
		return nil, fmt.Errorf("document store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, email, theme, language FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.Name, &p.Email, &p.Theme, &p.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) PutProfile(ctx context.Context, p *Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("put profile: empty user id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, email, theme, language, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			theme = excluded.theme,
			language = excluded.language,
			updated_at = excluded.updated_at`,
		p.UserID, p.Name, p.Email, p.Theme, p.Language, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendSession(ctx context.Context, userID string, cs ChatSession) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	log, err := json.Marshal(cs.ChatLog)
	if err != nil {
		return fmt.Errorf("marshal chat log: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions WHERE id = ?`, cs.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("session %s: %w", cs.ID, ErrExists)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, timestamp, chat_log) VALUES (?, ?, ?, ?)`,
		cs.ID, userID, cs.Timestamp.UnixNano(), string(log),
	)
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, chat_log FROM chat_sessions
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`, userID, MaxChatHistory)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var (
			cs  = ChatSession{UserID: userID}
			ts  int64
			log string
		)
		if err := rows.Scan(&cs.ID, &ts, &log); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		cs.Timestamp = time.Unix(0, ts)
		if err := json.Unmarshal([]byte(log), &cs.ChatLog); err != nil {
			return nil, fmt.Errorf("unmarshal chat log %s: %w", cs.ID, err)
		}
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
