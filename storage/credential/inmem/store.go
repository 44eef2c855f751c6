package inmemcreds

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/shikshahub/portal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("an account with this username or email already exists")
)

type account struct {
	identity     core.Identity
	username     string
	email        string
	passwordHash []byte
}

// Store is an in-memory Credential Store: a stand-in identity provider for
// local development and tests. It reproduces the provider's feed semantics:
// the current identity is delivered once on Subscribe, then on every
// transition.
type Store struct {
	secretKey []byte

	mutex      sync.Mutex
	accounts   map[string]*account // by username
	current    core.Identity
	subs       map[int]func(core.Identity)
	nextSubID  int
	signOutErr error
}

var _ core.CredentialStore = (*Store)(nil)

func New(secretKey []byte) *Store {
	return &Store{
		secretKey: secretKey,
		accounts:  make(map[string]*account),
		subs:      make(map[int]func(core.Identity)),
	}
}

// AddAccount registers a password account and returns its identity.
func (s *Store) AddAccount(username, email, password string) (core.Identity, error) {
	username = core.CleanString(username, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.NoIdentity, errors.Wrap(err, "hashing password")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, acc := range s.accounts {
		if acc.username == username || acc.email == email {
			return core.NoIdentity, ErrAccountExists
		}
	}
	acc := &account{
		identity:     core.Identity(uuid.New().String()),
		username:     username,
		email:        email,
		passwordHash: hash,
	}
	s.accounts[username] = acc
	return acc.identity, nil
}

func (s *Store) Subscribe(onChange func(core.Identity)) core.Subscription {
	s.mutex.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = onChange
	current := s.current
	s.mutex.Unlock()

	// deliver current state on registration
	onChange(current)
	return &subscription{store: s, id: id}
}

func (s *Store) SignIn(ctx context.Context, username, password string) (core.Identity, error) {
	username = core.CleanString(username, true /* lower */)

	s.mutex.Lock()
	var acc *account
	for _, a := range s.accounts {
		if a.username == username || a.email == username {
			acc = a
			break
		}
	}
	s.mutex.Unlock()

	if acc == nil {
		return core.NoIdentity, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return core.NoIdentity, ErrInvalidCredentials
	}
	s.setCurrent(acc.identity)
	return acc.identity, nil
}

func (s *Store) SignInWithToken(ctx context.Context, token string) (core.Identity, error) {
	id, err := VerifyToken(token, s.secretKey)
	if err != nil {
		return core.NoIdentity, err
	}
	s.setCurrent(id)
	return id, nil
}

func (s *Store) SignInAnonymously(ctx context.Context) (core.Identity, error) {
	id := core.Identity(uuid.New().String())
	s.setCurrent(id)
	return id, nil
}

func (s *Store) SignOut(ctx context.Context) error {
	s.mutex.Lock()
	err := s.signOutErr
	s.mutex.Unlock()
	if err != nil {
		return err
	}
	s.setCurrent(core.NoIdentity)
	return nil
}

// SetSignOutError forces SignOut failures; test hook.
func (s *Store) SetSignOutError(err error) {
	s.mutex.Lock()
	s.signOutErr = err
	s.mutex.Unlock()
}

// SubscriberCount reports active feed subscriptions; test hook.
func (s *Store) SubscriberCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.subs)
}

func (s *Store) setCurrent(id core.Identity) {
	s.mutex.Lock()
	s.current = id
	subs := make([]func(core.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mutex.Unlock()

	for _, fn := range subs {
		fn(id)
	}
}

type subscription struct {
	store *Store
	id    int
	once  sync.Once
}

func (sub *subscription) Close() {
	sub.once.Do(func() {
		sub.store.mutex.Lock()
		delete(sub.store.subs, sub.id)
		sub.store.mutex.Unlock()
	})
}
