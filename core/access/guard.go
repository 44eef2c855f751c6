package access

import (
	"github.com/shikshahub/portal/core/session"
)

// Action is the guard's navigation directive. The guard never navigates
// itself; the caller translates redirects into history-replacing moves.
type Action int

const (
	// Wait: the session is still initializing; render a loading affordance,
	// no redirect decision yet.
	Wait Action = iota
	Render
	RedirectToLogin
	RedirectToRoleHome
)

func (a Action) String() string {
	switch a {
	case Wait:
		return "wait"
	case Render:
		return "render"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToRoleHome:
		return "redirect-to-role-home"
	}
	return "unknown"
}

// Requirement is the declarative policy attached to a destination.
// An empty AllowedRoles means "any authenticated role".
type Requirement struct {
	AuthRequired bool
	AllowedRoles []session.Role
}

// Destinations.
const (
	LoginPath       = "/login"
	StudentHomePath = "/student-dashboard"
	TeacherHomePath = "/teacher-dashboard"
)

// RoleHome is the default landing destination for an authenticated session,
// determined solely by role.
func RoleHome(role session.Role) string {
	if role == session.RoleTeacher {
		return TeacherHomePath
	}
	return StudentHomePath
}

// Decide resolves a session against a route requirement. The precedence is
// fixed: login gate before anonymous-only gate before role gate.
func Decide(sess session.Session, req Requirement) Action {
	if sess.Phase == session.PhaseInitializing {
		return Wait
	}
	if req.AuthRequired && !sess.IsAuthenticated() {
		return RedirectToLogin
	}
	// authenticated users may not view anonymous-only destinations
	if !req.AuthRequired && sess.IsAuthenticated() {
		return RedirectToRoleHome
	}
	if req.AuthRequired && len(req.AllowedRoles) > 0 && !roleAllowed(sess.Role, req.AllowedRoles) {
		return RedirectToRoleHome
	}
	return Render
}

func roleAllowed(role session.Role, allowed []session.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Routes is the portal's static requirement table, consumed by the guard at
// navigation time.
var Routes = map[string]Requirement{
	"/":                    {AuthRequired: false},
	LoginPath:              {AuthRequired: false},
	TeacherHomePath:        {AuthRequired: true, AllowedRoles: []session.Role{session.RoleTeacher}},
	"/content-management":  {AuthRequired: true, AllowedRoles: []session.Role{session.RoleTeacher}},
	StudentHomePath:        {AuthRequired: true, AllowedRoles: []session.Role{session.RoleStudent}},
	"/progress-tracking":   {AuthRequired: true, AllowedRoles: []session.Role{session.RoleStudent, session.RoleTeacher}},
	"/quiz-assessment":     {AuthRequired: true, AllowedRoles: []session.Role{session.RoleStudent, session.RoleTeacher}},
	"/lesson-content":      {AuthRequired: true, AllowedRoles: []session.Role{session.RoleStudent, session.RoleTeacher}},
}
