package inmemprofile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikshahub/portal/core"
)

func TestStore_getDocument(t *testing.T) {
	store := New()
	ctx := context.Background()

	doc, err := store.GetDocument(ctx, "users", "u1")
	require.NoError(t, err)
	assert.False(t, doc.Exists)

	require.NoError(t, store.SetDocument(ctx, "users", "u1", map[string]interface{}{"role": "teacher"}))
	doc, err = store.GetDocument(ctx, "users", "u1")
	require.NoError(t, err)
	assert.True(t, doc.Exists)
	assert.Equal(t, "teacher", doc.Data["role"])

	// stored data is copied, not aliased
	doc.Data["role"] = "student"
	doc, err = store.GetDocument(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "teacher", doc.Data["role"])
}

func TestStore_subscribeQuery(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.SetDocument(ctx, "quizzes", "b", map[string]interface{}{"title": "B"}))

	var snapshots [][]core.Document
	sub := store.SubscribeQuery("quizzes",
		func(docs []core.Document) { snapshots = append(snapshots, docs) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	)

	// initial snapshot on registration
	require.Len(t, snapshots, 1)
	require.Len(t, snapshots[0], 1)

	require.NoError(t, store.SetDocument(ctx, "quizzes", "a", map[string]interface{}{"title": "A"}))
	require.Len(t, snapshots, 2)
	require.Len(t, snapshots[1], 2)
	// snapshots are ordered by document id
	assert.Equal(t, "a", snapshots[1][0].ID)
	assert.Equal(t, "b", snapshots[1][1].ID)

	require.NoError(t, store.DeleteDocument(ctx, "quizzes", "b"))
	require.Len(t, snapshots, 3)
	require.Len(t, snapshots[2], 1)

	sub.Close()
	require.NoError(t, store.SetDocument(ctx, "quizzes", "c", map[string]interface{}{"title": "C"}))
	assert.Len(t, snapshots, 3)
	assert.Equal(t, 0, store.WatcherCount("quizzes"))
}

func TestStore_collectionsAreIsolated(t *testing.T) {
	store := New()
	ctx := context.Background()

	var snapshots int
	sub := store.SubscribeQuery("quizzes", func([]core.Document) { snapshots++ }, func(error) {})
	defer sub.Close()
	require.Equal(t, 1, snapshots)

	require.NoError(t, store.SetDocument(ctx, "users", "u1", map[string]interface{}{"role": "student"}))
	assert.Equal(t, 1, snapshots)
}
