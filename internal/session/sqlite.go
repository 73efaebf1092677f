package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS session_kv (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
)`

// SQLiteStore persists the session in a local sqlite database so it
// survives client restarts. All operations are synchronous.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates (or opens) the session database at path and ensures the
// schema exists.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("session: create state dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an existing database handle. The schema must already
// exist; used by tests to inject a mock handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get() (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return Session{}, false, ErrClosed
	}

	rows, err := s.db.Query(`SELECT k, v FROM session_kv`)
	if err != nil {
		return Session{}, false, fmt.Errorf("session: read: %w", err)
	}
	defer rows.Close()

	kv := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Session{}, false, fmt.Errorf("session: scan: %w", err)
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return Session{}, false, fmt.Errorf("session: read: %w", err)
	}
	if len(kv) == 0 {
		return Session{}, false, nil
	}

	sess := Session{
		AccessToken:  kv[keyAccess],
		RefreshToken: kv[keyRefresh],
	}
	if raw, ok := kv[keyUser]; ok && raw != "" {
		var user UserProfile
		// A corrupt profile blob is not fatal; tokens decide authentication.
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			sess.User = &user
		}
	}
	return sess, true, nil
}

func (s *SQLiteStore) Set(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	userJSON := ""
	if sess.User != nil {
		raw, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("session: encode profile: %w", err)
		}
		userJSON = string(raw)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("session: begin: %w", err)
	}
	for _, pair := range [][2]string{
		{keyAccess, sess.AccessToken},
		{keyRefresh, sess.RefreshToken},
		{keyUser, userJSON},
	} {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO session_kv(k, v) VALUES(?, ?)`, pair[0], pair[1]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("session: write %s: %w", pair[0], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.Exec(`DELETE FROM session_kv`); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}
