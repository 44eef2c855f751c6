package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/shikshahub/portal/core"
)

// State of the Synchronizer.
type State int

const (
	// StateAwaitingAuth: no subscription open; an authentication attempt is
	// triggered so every client has some identity before subscribing.
	StateAwaitingAuth State = iota
	StateSubscribing
	StateSynced
	// StateError: the query stream failed; merged list degraded to
	// baseline-only. No auto-retry.
	StateError
)

func (s State) String() string {
	switch s {
	case StateAwaitingAuth:
		return "awaiting-auth"
	case StateSubscribing:
		return "subscribing"
	case StateSynced:
		return "synced"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Config carries the environment-provided bootstrap values, read once at
// start and otherwise opaque.
type Config struct {
	AppID            string
	InitialAuthToken string
}

// Synchronizer maintains a live merged view of content items: a fixed
// baseline plus a per-identity quiz collection from the Profile Store.
// It runs its own identity flow against the Credential Store, independent
// of the portal session.
type Synchronizer struct {
	conf     Config
	creds    core.CredentialStore
	profiles core.ProfileStore
	logger   core.Logger
	baseline []ContentItem

	mutex     sync.Mutex
	closed    bool
	state     State
	identity  core.Identity
	credSub   core.Subscription
	querySub  core.Subscription
	items     []ContentItem
	observers []func([]ContentItem)
}

func NewSynchronizer(conf Config, creds core.CredentialStore, profiles core.ProfileStore, logger core.Logger) *Synchronizer {
	baseline := BaselineItems()
	return &Synchronizer{
		conf:     conf,
		creds:    creds,
		profiles: profiles,
		logger:   logger,
		baseline: baseline,
		state:    StateAwaitingAuth,
		items:    BaselineItems(),
	}
}

// Start opens the credential subscription that drives the state machine.
func (s *Synchronizer) Start() {
	sub := s.creds.Subscribe(s.handleIdentity)

	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		sub.Close()
		return
	}
	s.credSub = sub
	s.mutex.Unlock()
}

// Close tears down the query subscription and the credential subscription.
// Callbacks arriving afterwards are no-ops.
func (s *Synchronizer) Close() {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return
	}
	s.closed = true
	querySub := s.querySub
	credSub := s.credSub
	s.querySub = nil
	s.credSub = nil
	s.mutex.Unlock()

	if querySub != nil {
		querySub.Close()
	}
	if credSub != nil {
		credSub.Close()
	}
}

// State returns the current machine state.
func (s *Synchronizer) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Identity returns the identity the synchronizer is currently scoped to.
func (s *Synchronizer) Identity() core.Identity {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.identity
}

// Items returns a snapshot copy of the merged list. The first
// len(baseline) entries are always the baseline items in fixed order.
func (s *Synchronizer) Items() []ContentItem {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	items := make([]ContentItem, len(s.items))
	copy(items, s.items)
	return items
}

// OnChange registers an observer notified with a snapshot after every
// republication of the merged list.
func (s *Synchronizer) OnChange(fn func([]ContentItem)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Synchronizer) handleIdentity(id core.Identity) {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return
	}

	if !id.Present() {
		// identity lost: tear down, fall back to baseline, re-authenticate
		prev := s.querySub
		s.querySub = nil
		s.identity = core.NoIdentity
		s.state = StateAwaitingAuth
		s.items = BaselineItems()
		observers := s.observersLocked()
		s.mutex.Unlock()

		if prev != nil {
			prev.Close()
		}
		s.notify(observers)
		s.ensureIdentity()
		return
	}

	if id == s.identity && s.querySub != nil {
		s.mutex.Unlock()
		return
	}

	// only one live subscription per identity: close the previous one first
	prev := s.querySub
	s.querySub = nil
	s.identity = id
	s.state = StateSubscribing
	s.mutex.Unlock()

	if prev != nil {
		prev.Close()
	}

	collection := fmt.Sprintf("artifacts/%s/users/%s/quizzes", s.conf.AppID, id)
	sub := s.profiles.SubscribeQuery(
		collection,
		func(docs []core.Document) { s.applySnapshot(id, docs) },
		func(err error) { s.applyError(id, err) },
	)

	s.mutex.Lock()
	if s.closed || s.identity != id {
		s.mutex.Unlock()
		sub.Close()
		return
	}
	s.querySub = sub
	s.mutex.Unlock()
}

// ensureIdentity establishes an identity: a pre-supplied token is exchanged
// for a session, otherwise an anonymous session is opened. On failure the
// machine stays in AwaitingAuth; the next "no identity" event retries.
func (s *Synchronizer) ensureIdentity() {
	ctx := context.Background()
	var err error
	if s.conf.InitialAuthToken != "" {
		_, err = s.creds.SignInWithToken(ctx, s.conf.InitialAuthToken)
	} else {
		_, err = s.creds.SignInAnonymously(ctx)
	}
	if err != nil {
		s.logger.Error("content authentication failed", err)
	}
}

// applySnapshot recomputes the merged list as baseline ++ remote and
// republishes it atomically. Snapshots for a superseded identity are
// discarded.
func (s *Synchronizer) applySnapshot(id core.Identity, docs []core.Document) {
	remote := make([]ContentItem, 0, len(docs))
	var skipped []error
	for _, doc := range docs {
		item, err := mapQuizDocument(doc)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		remote = append(remote, item)
	}

	s.mutex.Lock()
	if s.closed || s.identity != id {
		s.mutex.Unlock()
		return
	}
	merged := make([]ContentItem, 0, len(s.baseline)+len(remote))
	merged = append(merged, s.baseline...)
	merged = append(merged, remote...)
	s.items = merged
	s.state = StateSynced
	observers := s.observersLocked()
	s.mutex.Unlock()

	for _, err := range skipped {
		s.logger.Warn("skipping malformed quiz document", err, id)
	}
	s.notify(observers)
}

// applyError degrades the merged list to baseline-only and closes the dead
// subscription. The error is logged, not thrown, and the subscription is
// not retried: degraded content beats silent failure or a retry loop.
func (s *Synchronizer) applyError(id core.Identity, err error) {
	s.mutex.Lock()
	if s.closed || s.identity != id {
		s.mutex.Unlock()
		return
	}
	sub := s.querySub
	s.querySub = nil
	s.items = BaselineItems()
	s.state = StateError
	observers := s.observersLocked()
	s.mutex.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.logger.Error("quiz subscription failed, serving baseline content only", err, id)
	s.notify(observers)
}

func (s *Synchronizer) observersLocked() []func([]ContentItem) {
	observers := make([]func([]ContentItem), len(s.observers))
	copy(observers, s.observers)
	return observers
}

func (s *Synchronizer) notify(observers []func([]ContentItem)) {
	if len(observers) == 0 {
		return
	}
	items := s.Items()
	for _, fn := range observers {
		fn(items)
	}
}
