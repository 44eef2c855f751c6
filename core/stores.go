package core

import "context"

// Identity is an opaque reference to an authenticated principal issued by
// the Credential Store. The zero value means "no identity".
type Identity string

const NoIdentity Identity = ""

func (id Identity) Present() bool { return id != NoIdentity }

// Subscription is a live registration with a store's change feed.
// Close unregisters it; no callbacks may fire after Close returns.
// Close is idempotent.
type Subscription interface {
	Close()
}

// CredentialStore is the external identity provider.
type CredentialStore interface {
	// Subscribe registers onChange for session-state changes. The current
	// identity is delivered once on registration, then on every transition.
	Subscribe(onChange func(Identity)) Subscription
	SignIn(ctx context.Context, username, password string) (Identity, error)
	SignInWithToken(ctx context.Context, token string) (Identity, error)
	SignInAnonymously(ctx context.Context) (Identity, error)
	SignOut(ctx context.Context) error
}

// Document is a record fetched from the Profile Store.
type Document struct {
	ID     string
	Exists bool
	Data   map[string]interface{}
}

// ProfileStore is the document-oriented remote store.
type ProfileStore interface {
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	// SubscribeQuery opens a live query on a collection. onSnapshot receives
	// the full result set on registration and after every change; onError
	// receives stream failures. Only errors flow to onError, never both for
	// the same event.
	SubscribeQuery(collection string, onSnapshot func([]Document), onError func(error)) Subscription
}
