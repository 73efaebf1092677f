package session

import "testing"

func TestSessionValid(t *testing.T) {
	if (Session{}).Valid() {
		t.Fatalf("empty session reported valid")
	}
	if (Session{AccessToken: "a"}).Valid() {
		t.Fatalf("session without refresh token reported valid")
	}
	if (Session{RefreshToken: "r"}).Valid() {
		t.Fatalf("session without access token reported valid")
	}
	if !(Session{AccessToken: "a", RefreshToken: "r"}).Valid() {
		t.Fatalf("complete session reported invalid")
	}
}

func TestProfileMergeKeepsLocalFields(t *testing.T) {
	local := UserProfile{Username: "h1", Email: "h1@example.test", PhoneNumber: "+380501112233", Role: RoleHunter, Rating: 12}
	incoming := UserProfile{Username: "h1", Rating: 14}

	merged := local.Merge(incoming)
	if merged.Email != "h1@example.test" {
		t.Fatalf("email destroyed by merge: %q", merged.Email)
	}
	if merged.PhoneNumber != "+380501112233" {
		t.Fatalf("phone destroyed by merge: %q", merged.PhoneNumber)
	}
	if merged.Role != RoleHunter {
		t.Fatalf("role destroyed by merge: %q", merged.Role)
	}
	if merged.Rating != 14 {
		t.Fatalf("rating not updated: %v", merged.Rating)
	}
}

func TestProfileMergeNormalizesRole(t *testing.T) {
	merged := UserProfile{}.Merge(UserProfile{Role: Role(" Analyst ")})
	if merged.Role != RoleAnalyst {
		t.Fatalf("role not normalized: %q", merged.Role)
	}
}

func TestSessionMergeUserFromNil(t *testing.T) {
	s := Session{AccessToken: "a", RefreshToken: "r"}
	s.MergeUser(UserProfile{Username: "an1", Role: RoleAnalyst})
	if s.User == nil || s.User.Username != "an1" || s.User.Role != RoleAnalyst {
		t.Fatalf("profile not attached: %+v", s.User)
	}
	if s.Role() != RoleAnalyst {
		t.Fatalf("unexpected role: %q", s.Role())
	}
}
