package inmemprofile

import (
	"context"
	"sort"
	"sync"

	"github.com/shikshahub/portal/core"
)

type watcher struct {
	onSnapshot func([]core.Document)
	onError    func(error)
}

// Store is an in-memory Profile Store: collections of documents with live
// query subscriptions. It doubles as the test fake and the DEV store.
type Store struct {
	mutex       sync.Mutex
	collections map[string]map[string]map[string]interface{}
	watchers    map[string]map[int]*watcher // by collection
	nextWatchID int
}

var _ core.ProfileStore = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]interface{}),
		watchers:    make(map[string]map[int]*watcher),
	}
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) (core.Document, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return core.Document{ID: id}, nil
	}
	return core.Document{ID: id, Exists: true, Data: copyData(data)}, nil
}

func (s *Store) SubscribeQuery(collection string, onSnapshot func([]core.Document), onError func(error)) core.Subscription {
	s.mutex.Lock()
	s.nextWatchID++
	id := s.nextWatchID
	if s.watchers[collection] == nil {
		s.watchers[collection] = make(map[int]*watcher)
	}
	s.watchers[collection][id] = &watcher{onSnapshot: onSnapshot, onError: onError}
	snapshot := s.snapshotLocked(collection)
	s.mutex.Unlock()

	// initial snapshot on registration
	onSnapshot(snapshot)
	return &querySubscription{store: s, collection: collection, id: id}
}

// SetDocument stores a copy of data and fires a snapshot to live queries.
func (s *Store) SetDocument(ctx context.Context, collection, id string, data map[string]interface{}) error {
	s.mutex.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]interface{})
	}
	s.collections[collection][id] = copyData(data)
	watchers, snapshot := s.watchersAndSnapshotLocked(collection)
	s.mutex.Unlock()

	for _, w := range watchers {
		w.onSnapshot(snapshot)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	s.mutex.Lock()
	delete(s.collections[collection], id)
	watchers, snapshot := s.watchersAndSnapshotLocked(collection)
	s.mutex.Unlock()

	for _, w := range watchers {
		w.onSnapshot(snapshot)
	}
	return nil
}

// FailQueries routes an error to every live query on a collection;
// test hook for stream failures.
func (s *Store) FailQueries(collection string, err error) {
	s.mutex.Lock()
	watchers := make([]*watcher, 0, len(s.watchers[collection]))
	for _, w := range s.watchers[collection] {
		watchers = append(watchers, w)
	}
	s.mutex.Unlock()

	for _, w := range watchers {
		w.onError(err)
	}
}

// WatcherCount reports live queries on a collection; test hook.
func (s *Store) WatcherCount(collection string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.watchers[collection])
}

func (s *Store) watchersAndSnapshotLocked(collection string) ([]*watcher, []core.Document) {
	watchers := make([]*watcher, 0, len(s.watchers[collection]))
	for _, w := range s.watchers[collection] {
		watchers = append(watchers, w)
	}
	return watchers, s.snapshotLocked(collection)
}

// snapshotLocked returns the collection ordered by document id so
// subscribers observe a deterministic order.
func (s *Store) snapshotLocked(collection string) []core.Document {
	docs := make([]core.Document, 0, len(s.collections[collection]))
	for id, data := range s.collections[collection] {
		docs = append(docs, core.Document{ID: id, Exists: true, Data: copyData(data)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func copyData(data map[string]interface{}) map[string]interface{} {
	cp := make(map[string]interface{}, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}

type querySubscription struct {
	store      *Store
	collection string
	id         int
	once       sync.Once
}

func (sub *querySubscription) Close() {
	sub.once.Do(func() {
		sub.store.mutex.Lock()
		delete(sub.store.watchers[sub.collection], sub.id)
		sub.store.mutex.Unlock()
	})
}
