// Package routes holds the static authorization policy for guarded
// destinations: which roles may enter, and where each role lands when
// it is turned away.
package routes

import "huntlab.org/internal/session"

// Destination names a navigable view of the client.
type Destination string

const (
	DestLanding   Destination = "/"
	DestLogin     Destination = "/login"
	DestRegister  Destination = "/register"
	DestDashboard Destination = "/app"
	DestProfile   Destination = "/profile"
	DestAnalyst   Destination = "/analyst"
)

// allowedRoles maps every guarded destination to the roles permitted to
// enter it. An empty list means any authenticated role. The table must stay
// total over the destinations the guard is asked about.
var allowedRoles = map[Destination][]session.Role{
	DestDashboard: {session.RoleHunter},
	DestProfile:   {}, // any authenticated role
	DestAnalyst:   {session.RoleAnalyst},
}

// roleHomes is a total function Role -> Destination. Roles without an entry
// fall back to the unauthenticated entry point so an unrecognized role can
// never be silently mis-redirected.
var roleHomes = map[session.Role]Destination{
	session.RoleHunter:  DestDashboard,
	session.RoleAnalyst: DestAnalyst,
}

// Allowed returns the allow-list for dest. ok is false for destinations the
// policy does not guard.
func Allowed(dest Destination) ([]session.Role, bool) {
	roles, ok := allowedRoles[dest]
	return roles, ok
}

// Permits reports whether role may enter dest. Unknown destinations are
// closed; an empty allow-list admits any authenticated role.
func Permits(dest Destination, role session.Role) bool {
	roles, ok := allowedRoles[dest]
	if !ok {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Home returns the landing destination for a role. Unrecognized roles land
// on the login view.
func Home(role session.Role) Destination {
	if home, ok := roleHomes[role]; ok {
		return home
	}
	return DestLogin
}

// Guarded lists every destination the policy covers, in stable order.
func Guarded() []Destination {
	return []Destination{DestDashboard, DestProfile, DestAnalyst}
}
