package docstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore persists documents under baseDir:
//
//	<user>/profile.json
//	<user>/sessions/<id>/meta.json
//	<user>/sessions/<id>/messages.jsonl
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// sessionMeta is the on-disk header of a session.
type sessionMeta struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	MessageCount int       `json:"message_count"`
}

// NewFileStore creates a FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (fs *FileStore) userDir(userID string) string {
	return filepath.Join(fs.baseDir, userID)
}

func (fs *FileStore) profilePath(userID string) string {
	return filepath.Join(fs.userDir(userID), "profile.json")
}

func (fs *FileStore) sessionsDir(userID string) string {
	return filepath.Join(fs.userDir(userID), "sessions")
}

func (fs *FileStore) GetProfile(_ context.Context, userID string) (*Profile, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.profilePath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, nil
}

func (fs *FileStore) PutProfile(_ context.Context, p *Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("put profile: empty user id")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.userDir(p.UserID), 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	return writeJSONAtomic(fs.profilePath(p.UserID), p)
}

func (fs *FileStore) AppendSession(_ context.Context, userID string, s ChatSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := filepath.Join(fs.sessionsDir(userID), s.ID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("session %s: %w", s.ID, ErrExists)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	var buf []byte
	for _, m := range s.ChatLog {
		line, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	if err := os.WriteFile(filepath.Join(dir, "messages.jsonl"), buf, 0o644); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}

	// meta.json is written last: a session without it is incomplete and skipped.
	meta := sessionMeta{
		ID:           s.ID,
		UserID:       userID,
		Timestamp:    s.Timestamp,
		MessageCount: len(s.ChatLog),
	}
	return writeJSONAtomic(filepath.Join(dir, "meta.json"), meta)
}

func (fs *FileStore) ListSessions(_ context.Context, userID string) ([]ChatSession, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	root := fs.sessionsDir(userID)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions dir: %w", err)
	}

	var metas []sessionMeta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := readMeta(filepath.Join(root, entry.Name(), "meta.json"))
		if err != nil {
			continue // skip incomplete or corrupted sessions
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Timestamp.After(metas[j].Timestamp)
	})
	if len(metas) > MaxChatHistory {
		metas = metas[:MaxChatHistory]
	}

	sessions := make([]ChatSession, 0, len(metas))
	for _, meta := range metas {
		msgs, err := loadMessages(filepath.Join(root, meta.ID, "messages.jsonl"))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, ChatSession{
			ID:        meta.ID,
			UserID:    meta.UserID,
			Timestamp: meta.Timestamp,
			ChatLog:   msgs,
		})
	}
	return sessions, nil
}

func readMeta(path string) (sessionMeta, error) {
	var meta sessionMeta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

func loadMessages(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open messages file: %w", err)
	}
	defer f.Close()

	var messages []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue // skip corrupted lines
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return messages, nil
}

// writeJSONAtomic writes v to path using a temp file + rename.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s tmp: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
