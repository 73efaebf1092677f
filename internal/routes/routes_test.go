package routes

import (
	"testing"

	"huntlab.org/internal/session"
)

func TestPolicyIsTotalOverGuardedDestinations(t *testing.T) {
	for _, dest := range Guarded() {
		if _, ok := Allowed(dest); !ok {
			t.Fatalf("no policy entry for %s", dest)
		}
	}
}

func TestPermits(t *testing.T) {
	if !Permits(DestDashboard, session.RoleHunter) {
		t.Fatalf("hunter must enter %s", DestDashboard)
	}
	if Permits(DestDashboard, session.RoleAnalyst) {
		t.Fatalf("analyst must not enter %s", DestDashboard)
	}
	if !Permits(DestAnalyst, session.RoleAnalyst) {
		t.Fatalf("analyst must enter %s", DestAnalyst)
	}
	if Permits(DestAnalyst, session.RoleHunter) {
		t.Fatalf("hunter must not enter %s", DestAnalyst)
	}
	// Empty allow-list admits any authenticated role.
	if !Permits(DestProfile, session.RoleHunter) || !Permits(DestProfile, session.RoleAnalyst) {
		t.Fatalf("profile must admit any authenticated role")
	}
	if !Permits(DestProfile, session.Role("auditor")) {
		t.Fatalf("profile must admit unrecognized authenticated roles")
	}
	// Unguarded destinations are closed.
	if Permits(Destination("/nowhere"), session.RoleHunter) {
		t.Fatalf("unknown destination must be closed")
	}
}

func TestHomeIsTotal(t *testing.T) {
	if Home(session.RoleHunter) != DestDashboard {
		t.Fatalf("hunter home: %s", Home(session.RoleHunter))
	}
	if Home(session.RoleAnalyst) != DestAnalyst {
		t.Fatalf("analyst home: %s", Home(session.RoleAnalyst))
	}
	if Home(session.Role("auditor")) != DestLogin {
		t.Fatalf("unknown role must land on login, got %s", Home(session.Role("auditor")))
	}
	if Home("") != DestLogin {
		t.Fatalf("empty role must land on login")
	}
}
