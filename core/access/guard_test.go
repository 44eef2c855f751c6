package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shikshahub/portal/core/session"
)

func TestDecide(t *testing.T) {
	student := session.Session{Identity: "u1", Role: session.RoleStudent, Phase: session.PhaseResolved}
	teacher := session.Session{Identity: "u2", Role: session.RoleTeacher, Phase: session.PhaseResolved}
	anonymous := session.Session{Phase: session.PhaseResolved}
	initializing := session.Session{Phase: session.PhaseInitializing}

	teacherOnly := Requirement{AuthRequired: true, AllowedRoles: []session.Role{session.RoleTeacher}}
	studentOnly := Requirement{AuthRequired: true, AllowedRoles: []session.Role{session.RoleStudent}}
	anyAuthed := Requirement{AuthRequired: true}
	anonOnly := Requirement{AuthRequired: false}

	tests := []struct {
		name string
		sess session.Session
		req  Requirement
		want Action
	}{
		{"initializing waits regardless of requirement", initializing, teacherOnly, Wait},
		{"initializing waits on anon-only routes too", initializing, anonOnly, Wait},
		{"anonymous on auth-required redirects to login", anonymous, anyAuthed, RedirectToLogin},
		{"anonymous on role-gated route still redirects to login", anonymous, teacherOnly, RedirectToLogin},
		{"anonymous on anon-only route renders", anonymous, anonOnly, Render},
		{"authenticated on anon-only route redirects home", teacher, anonOnly, RedirectToRoleHome},
		{"student on anon-only route redirects home", student, anonOnly, RedirectToRoleHome},
		{"wrong role redirects home, never renders", student, teacherOnly, RedirectToRoleHome},
		{"teacher on student-only route redirects home", teacher, studentOnly, RedirectToRoleHome},
		{"matching role renders", teacher, teacherOnly, Render},
		{"empty allowed roles admits any authenticated role", student, anyAuthed, Render},
		{"unknown role fails role gate", session.Session{Identity: "u3", Phase: session.PhaseResolved}, teacherOnly, RedirectToRoleHome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.sess, tt.req))
		})
	}
}

func TestDecide_routeTableScenarios(t *testing.T) {
	student := session.Session{Identity: "U", Role: session.RoleStudent, Phase: session.PhaseResolved}
	teacher := session.Session{Identity: "U", Role: session.RoleTeacher, Phase: session.PhaseResolved}
	anonymous := session.Session{Phase: session.PhaseResolved}

	tests := []struct {
		name     string
		sess     session.Session
		path     string
		want     Action
		wantHome string
	}{
		{"anonymous teacher-dashboard", anonymous, TeacherHomePath, RedirectToLogin, ""},
		{"student content-management", student, "/content-management", RedirectToRoleHome, StudentHomePath},
		{"teacher login", teacher, LoginPath, RedirectToRoleHome, TeacherHomePath},
		{"student progress-tracking", student, "/progress-tracking", Render, ""},
		{"teacher quiz-assessment", teacher, "/quiz-assessment", Render, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := Routes[tt.path]
			if !ok {
				t.Fatalf("route %q not in table", tt.path)
			}
			assert.Equal(t, tt.want, Decide(tt.sess, req))
			if tt.wantHome != "" {
				assert.Equal(t, tt.wantHome, RoleHome(tt.sess.Role))
			}
		})
	}
}

func TestRoleHome(t *testing.T) {
	assert.Equal(t, TeacherHomePath, RoleHome(session.RoleTeacher))
	assert.Equal(t, StudentHomePath, RoleHome(session.RoleStudent))
	// unknown roles land on the student dashboard
	assert.Equal(t, StudentHomePath, RoleHome(session.RoleUnknown))
}
