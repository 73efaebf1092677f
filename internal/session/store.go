package session

import (
	"errors"
	"sync"
)

// Persistence keys. The layout is three independently readable values:
// two token strings and one JSON profile blob, cleared together on logout.
const (
	keyAccess  = "access"
	keyRefresh = "refresh"
	keyUser    = "user"
)

var ErrClosed = errors.New("session: store is closed")

// Store is the process-wide holder for the current session. It has no
// network awareness. Callers must re-read on every authorization check
// rather than caching a previous result; the session may have been cleared
// elsewhere in the meantime.
type Store interface {
	// Get returns the stored session. ok is false when nothing at all is
	// stored. A partial session (some keys missing) is returned as-is with
	// ok=true; Session.Valid decides whether it counts as authenticated.
	Get() (Session, bool, error)
	Set(Session) error
	Clear() error
}

// MemStore is an ephemeral Store used in tests and for --no-persist runs.
type MemStore struct {
	mu      sync.Mutex
	sess    Session
	present bool
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Get() (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return Session{}, false, nil
	}
	return m.sess, true, nil
}

func (m *MemStore) Set(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s
	m.present = true
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = Session{}
	m.present = false
	return nil
}
