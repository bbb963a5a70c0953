package interfaces

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a write targets a document that does not exist.
var ErrNotFound = errors.New("document not found")

// Collections held by the document store.
const (
	CollectionClients  = "clients"
	CollectionMessages = "messages"
	CollectionReports  = "reports"
	CollectionBrokers  = "brokers"
	CollectionAccounts = "accounts"
)

// serverTimestamp is the type of ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp, used as a field value on a write, is replaced by the
// gateway with the commit time in UTC.
var ServerTimestamp = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v interface{}) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Document is a raw stored record. Fields carry whatever the backend
// decoded; mappers turn them into typed entities.
type Document struct {
	ID     string
	Fields map[string]interface{}
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value interface{}
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	Where      []Filter
	OrderBy    string
	Descending bool
}

// SnapshotFunc receives the complete current result set of a subscription.
type SnapshotFunc func(docs []Document)

// ErrorFunc receives transport errors of a subscription.
type ErrorFunc func(err error)

// CancelFunc stops a subscription. It is safe to call more than once.
type CancelFunc func()

// DocumentGateway is the capability interface to the document store.
//
// Subscribe delivers an initial snapshot once the subscription is
// established and a fresh full snapshot after every write that touches the
// query's collection. Snapshots of one subscription arrive in order.
// Transport errors go to onError; Subscribe itself never fails.
type DocumentGateway interface {
	Subscribe(q Query, onSnapshot SnapshotFunc, onError ErrorFunc) CancelFunc
	Find(ctx context.Context, q Query) ([]Document, error)
	// GetOne returns nil, nil when the document does not exist.
	GetOne(ctx context.Context, collection, id string) (*Document, error)
	Append(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	// Set writes fields under id. With merge, existing fields not named in
	// fields are kept; without, the document is replaced.
	Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error
	// BatchUpdate applies fields to every id atomically. It fails with
	// ErrNotFound, writing nothing, if any id is missing.
	BatchUpdate(ctx context.Context, collection string, ids []string, fields map[string]interface{}) error
	Close() error
}

// StorageManager provides access to the storage backends.
type StorageManager interface {
	Documents() DocumentGateway
	KeyValueStorage() KeyValueStorage
	Close() error
}

// KeyValueStorage provides basic key-value operations.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

// ErrKeyNotFound is returned by KeyValueStorage.Get for a missing key.
var ErrKeyNotFound = errors.New("key not found")
