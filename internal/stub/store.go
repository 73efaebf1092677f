package stub

import (
	"strings"
	"sync"
	"time"

	"huntlab.org/internal/reports"
	"huntlab.org/internal/session"
)

type account struct {
	profile  session.UserProfile
	password string
}

// store is the in-memory state behind the stub. Everything resets on
// restart; that is the point.
type store struct {
	mu         sync.Mutex
	accounts   map[string]*account
	records    []*reports.Record
	nextUserID int64
	nextRecID  int64
}

func newStore() *store {
	return &store{
		accounts:   map[string]*account{},
		nextUserID: 1,
		nextRecID:  1,
	}
}

func (s *store) addAccount(username, email, password, phone string, role session.Role) (session.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(username)
	if _, exists := s.accounts[key]; exists {
		return session.UserProfile{}, false
	}
	acct := &account{
		profile: session.UserProfile{
			ID:          s.nextUserID,
			Username:    username,
			Email:       email,
			PhoneNumber: phone,
			Role:        role,
		},
		password: password,
	}
	s.nextUserID++
	s.accounts[key] = acct
	return acct.profile, true
}

func (s *store) authenticate(username, password string) (session.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(username)]
	if !ok || acct.password != password {
		return session.UserProfile{}, false
	}
	return acct.profile, true
}

func (s *store) lookup(username string) (session.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(username)]
	if !ok {
		return session.UserProfile{}, false
	}
	return acct.profile, true
}

func (s *store) addRecord(rec reports.Record) reports.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextRecID
	s.nextRecID++
	if rec.Status == "" {
		rec.Status = reports.StatusNew
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, &rec)
	return rec
}

func (s *store) record(id int64) (reports.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return *rec, true
		}
	}
	return reports.Record{}, false
}

func (s *store) update(id int64, patch reports.Patch) (reports.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID != id {
			continue
		}
		if patch.Status != nil {
			rec.Status = *patch.Status
		}
		if patch.Rating != nil {
			rec.Rating = reports.ClampRating(float64(*patch.Rating))
		}
		return *rec, true
	}
	return reports.Record{}, false
}

func (s *store) remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.records {
		if rec.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true
		}
	}
	return false
}

// list returns all records, optionally filtered to one owner and/or one
// status, in insertion order.
func (s *store) list(owner int64, status reports.Status) []reports.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reports.Record, 0, len(s.records))
	for _, rec := range s.records {
		if owner != 0 && rec.CreatedBy != owner {
			continue
		}
		if status != "" && status != reports.StatusAll && rec.Status != status {
			continue
		}
		out = append(out, *rec)
	}
	return out
}
