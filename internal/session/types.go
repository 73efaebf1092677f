package session

import "strings"

// Role is a coarse-grained permission class. The set is extensible; unknown
// roles still authenticate but route policy decides where they may go.
type Role string

const (
	RoleHunter  Role = "hunter"
	RoleAnalyst Role = "analyst"
)

// NormalizeRole lower-cases and trims a role value coming from the backend
// or a decoded token.
func NormalizeRole(v string) Role {
	return Role(strings.TrimSpace(strings.ToLower(v)))
}

// UserProfile is the last-known profile of the authenticated user. It is
// refreshed opportunistically from the backend and merged, never replaced.
type UserProfile struct {
	ID          int64   `json:"id,omitempty"`
	Username    string  `json:"username"`
	Email       string  `json:"email,omitempty"`
	PhoneNumber string  `json:"phone_number,omitempty"`
	Role        Role    `json:"role,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

// Merge applies the non-zero fields of in over p and returns the result.
// Fields the incoming payload does not carry keep their stored value.
func (p UserProfile) Merge(in UserProfile) UserProfile {
	out := p
	if in.ID != 0 {
		out.ID = in.ID
	}
	if strings.TrimSpace(in.Username) != "" {
		out.Username = in.Username
	}
	if strings.TrimSpace(in.Email) != "" {
		out.Email = in.Email
	}
	if strings.TrimSpace(in.PhoneNumber) != "" {
		out.PhoneNumber = in.PhoneNumber
	}
	if in.Role != "" {
		out.Role = NormalizeRole(string(in.Role))
	}
	if in.Rating != 0 {
		out.Rating = in.Rating
	}
	return out
}

// Session holds the current credentials and the cached user profile.
// Access claims are not stored here; they are decoded from AccessToken on
// demand so the token remains the single source of truth.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
}

// Valid reports whether the session is fully present. A partially persisted
// session is never treated as authenticated.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.AccessToken) != "" && strings.TrimSpace(s.RefreshToken) != ""
}

// Role returns the cached role, or the empty role when no profile is known.
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// MergeUser folds an opportunistic profile fetch into the session.
func (s *Session) MergeUser(in UserProfile) {
	if s.User == nil {
		merged := UserProfile{}.Merge(in)
		s.User = &merged
		return
	}
	merged := s.User.Merge(in)
	s.User = &merged
}
