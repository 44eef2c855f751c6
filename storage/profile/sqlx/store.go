package sqlxprofile

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/shikshahub/portal/core"
)

const notifyChannel = "documents_changed"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection text NOT NULL,
    id         text NOT NULL,
    data       jsonb NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE OR REPLACE FUNCTION notify_documents_changed() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('documents_changed', COALESCE(NEW.collection, OLD.collection));
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_changed ON documents;
CREATE TRIGGER documents_changed
    AFTER INSERT OR UPDATE OR DELETE ON documents
    FOR EACH ROW EXECUTE PROCEDURE notify_documents_changed();
`

// Store is the Postgres Profile Store adapter. Documents live in a single
// jsonb table partitioned by collection path; live queries are driven by a
// LISTEN/NOTIFY trigger with a requery-on-notify snapshot model.
type Store struct {
	db  *sqlx.DB
	dsn string
}

var _ core.ProfileStore = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to profile store")
	}
	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates the documents table and its change-notification
// trigger. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "creating profile store schema")
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) (core.Document, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err == sql.ErrNoRows {
		return core.Document{ID: id}, nil
	}
	if err != nil {
		return core.Document{}, errors.Wrap(err, "getting document")
	}

	data := make(map[string]interface{})
	if err = json.Unmarshal(raw, &data); err != nil {
		return core.Document{}, errors.Wrap(err, "decoding document data")
	}
	return core.Document{ID: id, Exists: true, Data: data}, nil
}

// SetDocument upserts a document; the trigger notifies live queries.
func (s *Store) SetDocument(ctx context.Context, collection, id string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding document data")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`,
		collection, id, raw)
	return errors.Wrap(err, "upserting document")
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	return errors.Wrap(err, "deleting document")
}

func (s *Store) SubscribeQuery(collection string, onSnapshot func([]core.Document), onError func(error)) core.Subscription {
	listener := pq.NewListener(s.dsn, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				onError(errors.Wrap(err, "profile store listener"))
			}
		})

	sub := &querySubscription{listener: listener, done: make(chan struct{})}

	go func() {
		if err := listener.Listen(notifyChannel); err != nil {
			onError(errors.Wrap(err, "listening for document changes"))
			return
		}
		// initial snapshot
		s.requery(collection, onSnapshot, onError)
		for {
			select {
			case n := <-listener.Notify:
				// n == nil after a connection loss; requery to resync
				if n == nil || n.Extra == collection {
					s.requery(collection, onSnapshot, onError)
				}
			case <-sub.done:
				return
			}
		}
	}()

	return sub
}

func (s *Store) requery(collection string, onSnapshot func([]core.Document), onError func(error)) {
	rows, err := s.db.Query(
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		onError(errors.Wrap(err, "querying collection"))
		return
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err = rows.Scan(&id, &raw); err != nil {
			onError(errors.Wrap(err, "scanning document row"))
			return
		}
		data := make(map[string]interface{})
		if err = json.Unmarshal(raw, &data); err != nil {
			onError(errors.Wrap(err, "decoding document data"))
			return
		}
		docs = append(docs, core.Document{ID: id, Exists: true, Data: data})
	}
	if err = rows.Err(); err != nil {
		onError(errors.Wrap(err, "iterating collection"))
		return
	}
	onSnapshot(docs)
}

type querySubscription struct {
	listener *pq.Listener
	done     chan struct{}
	once     sync.Once
}

func (sub *querySubscription) Close() {
	sub.once.Do(func() {
		close(sub.done)
		_ = sub.listener.Close()
	})
}
