package inmemcreds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikshahub/portal/core"
)

var secretKey = []byte("secret")

func TestStore_subscribeDeliversCurrentState(t *testing.T) {
	store := New(secretKey)

	var events []core.Identity
	sub := store.Subscribe(func(id core.Identity) { events = append(events, id) })
	defer sub.Close()

	require.Len(t, events, 1)
	assert.Equal(t, core.NoIdentity, events[0])

	id, err := store.SignInAnonymously(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, id, events[1])

	require.NoError(t, store.SignOut(context.Background()))
	require.Len(t, events, 3)
	assert.Equal(t, core.NoIdentity, events[2])
}

func TestStore_signIn(t *testing.T) {
	store := New(secretKey)
	ctx := context.Background()

	id, err := store.AddAccount("JDoe", "jdoe@test.com", "pass123")
	require.NoError(t, err)
	require.True(t, id.Present())

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"by username", "jdoe", "pass123", nil},
		{"by email", "jdoe@test.com", "pass123", nil},
		{"username is case-insensitive", "JDOE", "pass123", nil},
		{"wrong password", "jdoe", "nope", ErrInvalidCredentials},
		{"unknown account", "ghost", "pass123", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.SignIn(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Equal(t, core.NoIdentity, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, id, got)
			}
		})
	}
}

func TestStore_addAccountRejectsDuplicates(t *testing.T) {
	store := New(secretKey)

	_, err := store.AddAccount("jdoe", "jdoe@test.com", "pass123")
	require.NoError(t, err)

	_, err = store.AddAccount("jdoe", "other@test.com", "pass123")
	assert.Equal(t, ErrAccountExists, err)
	_, err = store.AddAccount("other", "jdoe@test.com", "pass123")
	assert.Equal(t, ErrAccountExists, err)
}

func TestStore_tokenRoundTrip(t *testing.T) {
	store := New(secretKey)
	id := core.Identity("teacher-1")

	token, err := MintToken(id, secretKey, time.Hour)
	require.NoError(t, err)

	got, err := store.SignInWithToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestStore_tokenRejection(t *testing.T) {
	store := New(secretKey)
	ctx := context.Background()

	// wrong key
	token, err := MintToken("teacher-1", []byte("other"), time.Hour)
	require.NoError(t, err)
	_, err = store.SignInWithToken(ctx, token)
	assert.Error(t, err)

	// expired
	token, err = MintToken("teacher-1", secretKey, -time.Hour)
	require.NoError(t, err)
	_, err = store.SignInWithToken(ctx, token)
	assert.Error(t, err)

	// garbage
	_, err = store.SignInWithToken(ctx, "not-a-token")
	assert.Error(t, err)
}

func TestStore_subscriptionCloseIsIdempotent(t *testing.T) {
	store := New(secretKey)

	sub := store.Subscribe(func(core.Identity) {})
	require.Equal(t, 1, store.SubscriberCount())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, store.SubscriberCount())
}
