package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/shikshahub/portal/core"
)

// Manager wraps the Credential Store and resolves each reported identity
// into a Session through a Profile Store lookup. It is the single writer of
// the Session; consumers read copies via Session() or observe transitions
// via OnChange.
type Manager struct {
	creds    core.CredentialStore
	profiles core.ProfileStore
	logger   core.Logger

	mutex     sync.Mutex
	sub       core.Subscription
	closed    bool
	epoch     uint64 // bumped on every credential event; tags in-flight lookups
	session   Session
	observers []func(Session)
}

func NewManager(creds core.CredentialStore, profiles core.ProfileStore, logger core.Logger) *Manager {
	return &Manager{
		creds:    creds,
		profiles: profiles,
		logger:   logger,
		session:  Session{Phase: PhaseInitializing},
	}
}

// Initialize registers the credential subscription. It is idempotent:
// re-initializing tears down any prior subscription first, so exactly one
// is ever active.
func (m *Manager) Initialize() {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	prev := m.sub
	m.sub = nil
	m.mutex.Unlock()

	if prev != nil {
		prev.Close()
	}

	sub := m.creds.Subscribe(m.handleChange)

	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		sub.Close()
		return
	}
	m.sub = sub
	m.mutex.Unlock()
}

// Close tears down the credential subscription. No profile lookup may land
// on the session afterwards.
func (m *Manager) Close() {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	m.closed = true
	sub := m.sub
	m.sub = nil
	m.mutex.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.session
}

// OnChange registers an observer notified after every session transition.
func (m *Manager) OnChange(fn func(Session)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.observers = append(m.observers, fn)
}

// Logout signs out of the Credential Store and proactively clears the
// session so consumers never see a flash of the authenticated state. On
// failure the session is left unchanged and the error is returned for
// logging; the user may retry.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.creds.SignOut(ctx); err != nil {
		return errors.Wrap(err, "signing out")
	}

	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return nil
	}
	m.epoch++
	epoch := m.epoch
	m.mutex.Unlock()

	m.apply(epoch, Session{Phase: PhaseResolved})
	return nil
}

// handleChange processes one session-change event from the Credential Store.
// Profile lookup failures are non-fatal and degrade to "unauthenticated":
// identity-provider success does not imply authorization.
func (m *Manager) handleChange(id core.Identity) {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	m.epoch++
	epoch := m.epoch
	m.mutex.Unlock()

	if !id.Present() {
		m.apply(epoch, Session{Phase: PhaseResolved})
		return
	}

	doc, err := m.profiles.GetDocument(context.Background(), ProfileCollection, string(id))
	if err != nil {
		m.logger.Warn(fmt.Sprintf("profile lookup failed, treating %q as unauthenticated", id), err, id)
		m.apply(epoch, Session{Phase: PhaseResolved})
		return
	}
	if !doc.Exists {
		m.logger.Warn(fmt.Sprintf("identity %q has no profile record, treating as unauthenticated", id), id)
		m.apply(epoch, Session{Phase: PhaseResolved})
		return
	}

	prof, err := ParseProfile(doc)
	if err != nil {
		m.logger.Warn(fmt.Sprintf("malformed profile for %q, treating as unauthenticated", id), err, id)
		m.apply(epoch, Session{Phase: PhaseResolved})
		return
	}

	m.apply(epoch, Session{Identity: id, Role: prof.Role, Phase: PhaseResolved})
}

// apply commits a transition unless the originating event is stale, i.e. a
// newer credential event superseded it while its lookup was in flight.
// Stale results are discarded silently; they are expected under rapid
// sign-in/sign-out.
func (m *Manager) apply(epoch uint64, sess Session) {
	m.mutex.Lock()
	if m.closed || epoch != m.epoch {
		m.mutex.Unlock()
		return
	}
	m.session = sess
	observers := make([]func(Session), len(m.observers))
	copy(observers, m.observers)
	m.mutex.Unlock()

	for _, fn := range observers {
		fn(sess)
	}
}
