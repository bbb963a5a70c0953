package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"
)

// ErrClosed is reported to subscribers opened after the store was closed.
var ErrClosed = errors.New("document store closed")

// documentRecord is the badgerhold representation of a document. Fields are
// stored as JSON so records of any shape share one type.
type documentRecord struct {
	Key        string `badgerhold:"key"`
	Collection string
	ID         string
	Data       []byte
}

func recordKey(collection, id string) string {
	return collection + "/" + id
}

// subscription is one standing query. Writes wake it; its goroutine re-runs
// the query and delivers the full result. Wakes that arrive while a delivery
// is in flight coalesce into one follow-up snapshot.
type subscription struct {
	query      interfaces.Query
	onSnapshot interfaces.SnapshotFunc
	onError    interfaces.ErrorFunc
	wake       chan struct{}
	done       chan struct{}
	once       sync.Once
}

func (s *subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// DocumentStore implements interfaces.DocumentGateway on BadgerDB.
type DocumentStore struct {
	db     *BadgerDB
	logger *common.Logger
	now    func() time.Time

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

// NewDocumentStore creates a document gateway over db.
func NewDocumentStore(db *BadgerDB, logger *common.Logger) *DocumentStore {
	return &DocumentStore{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		subs:   make(map[uint64]*subscription),
	}
}

// Subscribe opens a standing query. The first snapshot is delivered as soon
// as the delivery goroutine starts.
func (s *DocumentStore) Subscribe(q interfaces.Query, onSnapshot interfaces.SnapshotFunc, onError interfaces.ErrorFunc) interfaces.CancelFunc {
	sub := &subscription{
		query:      q,
		onSnapshot: onSnapshot,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if onError != nil {
			go onError(ErrClosed)
		}
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	sub.signal()
	go s.deliver(sub)

	s.logger.Debug().
		Str("collection", q.Collection).
		Int("filters", len(q.Where)).
		Msg("subscription opened")

	return func() {
		sub.stop()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *DocumentStore) deliver(sub *subscription) {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}
		if sub.cancelled() {
			return
		}

		docs, err := s.Find(context.Background(), sub.query)
		if sub.cancelled() {
			return
		}
		if err != nil {
			if sub.onError != nil {
				sub.onError(err)
			}
			continue
		}
		sub.onSnapshot(docs)
	}
}

// notify wakes every subscription on collection.
func (s *DocumentStore) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.query.Collection == collection {
			sub.signal()
		}
	}
}

// Find runs q once.
func (s *DocumentStore) Find(_ context.Context, q interfaces.Query) ([]interfaces.Document, error) {
	var records []documentRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("Collection").Eq(q.Collection)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}

	docs := make([]interfaces.Document, 0, len(records))
	for _, rec := range records {
		fields, err := decodeFields(rec.Data)
		if err != nil {
			s.logger.Warn().
				Str("collection", q.Collection).
				Str("id", rec.ID).
				Str("error", err.Error()).
				Msg("skipping undecodable document")
			continue
		}
		doc := interfaces.Document{ID: rec.ID, Fields: fields}
		if matches(doc, q.Where) {
			docs = append(docs, doc)
		}
	}

	sortDocuments(docs, q.OrderBy, q.Descending)
	return docs, nil
}

// GetOne returns the document or nil when it does not exist.
func (s *DocumentStore) GetOne(_ context.Context, collection, id string) (*interfaces.Document, error) {
	var rec documentRecord
	err := s.db.Store().Get(recordKey(collection, id), &rec)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(rec.Data)
	if err != nil {
		return nil, err
	}
	return &interfaces.Document{ID: rec.ID, Fields: fields}, nil
}

// Append inserts a new document under a generated ID.
func (s *DocumentStore) Append(_ context.Context, collection string, fields map[string]interface{}) (string, error) {
	id := uuid.New().String()
	data, err := encodeFields(fields, s.now())
	if err != nil {
		return "", err
	}

	rec := &documentRecord{Key: recordKey(collection, id), Collection: collection, ID: id, Data: data}
	if err := s.db.Store().Insert(rec.Key, rec); err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", collection, err)
	}

	s.notify(collection)
	return id, nil
}

// Set writes fields under id, merging into the existing document when merge
// is true.
func (s *DocumentStore) Set(_ context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	now := s.now()
	key := recordKey(collection, id)

	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		next := fields
		if merge {
			var existing documentRecord
			err := s.db.Store().TxGet(tx, key, &existing)
			switch {
			case errors.Is(err, badgerhold.ErrNotFound):
			case err != nil:
				return err
			default:
				current, err := decodeFields(existing.Data)
				if err != nil {
					return err
				}
				next = mergeFields(current, fields)
			}
		}

		data, err := encodeFields(next, now)
		if err != nil {
			return err
		}
		return s.db.Store().TxUpsert(tx, key, &documentRecord{Key: key, Collection: collection, ID: id, Data: data})
	})
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}

	s.notify(collection)
	return nil
}

// BatchUpdate merges fields into every listed document in one transaction.
func (s *DocumentStore) BatchUpdate(_ context.Context, collection string, ids []string, fields map[string]interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	now := s.now()

	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		for _, id := range ids {
			key := recordKey(collection, id)
			var rec documentRecord
			if err := s.db.Store().TxGet(tx, key, &rec); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return fmt.Errorf("%s/%s: %w", collection, id, interfaces.ErrNotFound)
				}
				return err
			}
			current, err := decodeFields(rec.Data)
			if err != nil {
				return err
			}
			data, err := encodeFields(mergeFields(current, fields), now)
			if err != nil {
				return err
			}
			rec.Data = data
			if err := s.db.Store().TxUpdate(tx, key, &rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch update on %s failed: %w", collection, err)
	}

	s.notify(collection)
	return nil
}

// Close stops every subscription. The underlying database is closed by the
// Manager.
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, sub := range s.subs {
		sub.stop()
		delete(s.subs, id)
	}
	return nil
}

func mergeFields(current, update map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(current)+len(update))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}
