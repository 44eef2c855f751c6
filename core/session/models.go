package session

import (
	"github.com/shikshahub/portal/core"
)

// Role classifies a session for access control.
type Role string

const (
	RoleUnknown Role = ""
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Phase tracks session lifecycle; consumers must not make access decisions
// before the first credential event has been handled.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseResolved
)

// Session is the authoritative authentication/authorization state.
// Role is only ever set when Identity is present; both are cleared together.
type Session struct {
	Identity core.Identity `json:"identity"`
	Role     Role          `json:"role"`
	Phase    Phase         `json:"-"`
}

func (s Session) IsAuthenticated() bool { return s.Identity.Present() }
func (s Session) IsTeacher() bool       { return s.Role == RoleTeacher }
func (s Session) IsStudent() bool       { return s.Role == RoleStudent }

// ProfileCollection is the Profile Store partition holding user profiles,
// keyed by identity.
const ProfileCollection = "users"

// Profile is the stored authorization record for an identity.
type Profile struct {
	Role Role `json:"role" validate:"required,oneof=student teacher"`
}

// ParseProfile validates a raw profile document. An identity whose profile
// is missing or malformed is not a valid session.
func ParseProfile(doc core.Document) (Profile, error) {
	var p Profile
	if role, ok := doc.Data["role"].(string); ok {
		p.Role = Role(core.CleanString(role, true /* lower */))
	}
	if err := core.Validate.Struct(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}
