package badger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
)

func setupDocumentStore(t *testing.T) *DocumentStore {
	t.Helper()
	_, db := openKV(t, t.TempDir())
	store := NewDocumentStore(db, common.NewSilentLogger())
	t.Cleanup(func() {
		store.Close()
		db.Close()
	})
	return store
}

// snapshotRecorder collects snapshots delivered to a subscription.
type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots [][]interfaces.Document
	errs      []error
	ch        chan struct{}
}

func newSnapshotRecorder() *snapshotRecorder {
	return &snapshotRecorder{ch: make(chan struct{}, 64)}
}

func (r *snapshotRecorder) onSnapshot(docs []interfaces.Document) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, docs)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *snapshotRecorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// waitFor blocks until a snapshot satisfying pred arrives.
func (r *snapshotRecorder) waitFor(t *testing.T, pred func([]interfaces.Document) bool) []interfaces.Document {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		r.mu.Lock()
		if n := len(r.snapshots); n > 0 && pred(r.snapshots[n-1]) {
			last := r.snapshots[n-1]
			r.mu.Unlock()
			return last
		}
		r.mu.Unlock()
		select {
		case <-r.ch:
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func messageFields(clientID, content, ts string, fromAdvisor, read bool) map[string]interface{} {
	return map[string]interface{}{
		"clientId":      clientID,
		"content":       content,
		"timestamp":     ts,
		"isFromAdvisor": fromAdvisor,
		"read":          read,
	}
}

func TestDocumentStore_AppendAndFind(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "second", "2024-05-02T10:00:00Z", true, false))
	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "first", "2024-05-01T10:00:00Z", false, false))
	store.Append(ctx, interfaces.CollectionMessages, messageFields("c2", "other", "2024-05-01T09:00:00Z", true, false))

	docs, err := store.Find(ctx, interfaces.Query{
		Collection: interfaces.CollectionMessages,
		Where:      []interfaces.Filter{{Field: "clientId", Value: "c1"}},
		OrderBy:    "timestamp",
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Fields["content"] != "first" || docs[1].Fields["content"] != "second" {
		t.Errorf("expected ascending order, got %v then %v", docs[0].Fields["content"], docs[1].Fields["content"])
	}
}

func TestDocumentStore_FindBooleanFilters(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "a", "2024-05-01T10:00:00Z", true, false))
	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "b", "2024-05-01T11:00:00Z", true, true))
	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "c", "2024-05-01T12:00:00Z", false, false))

	docs, err := store.Find(ctx, interfaces.Query{
		Collection: interfaces.CollectionMessages,
		Where: []interfaces.Filter{
			{Field: "clientId", Value: "c1"},
			{Field: "isFromAdvisor", Value: true},
			{Field: "read", Value: false},
		},
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Fields["content"] != "a" {
		t.Errorf("expected only the unread advisor message, got %v", docs)
	}
}

func TestDocumentStore_FindDescending(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	store.Set(ctx, interfaces.CollectionReports, "r1", map[string]interface{}{"clientId": "c1", "date": "2024-01-01T00:00:00Z"}, false)
	store.Set(ctx, interfaces.CollectionReports, "r2", map[string]interface{}{"clientId": "c1", "date": "2024-03-01T00:00:00Z"}, false)
	store.Set(ctx, interfaces.CollectionReports, "r3", map[string]interface{}{"clientId": "c1", "date": "2024-02-01T00:00:00Z"}, false)

	docs, err := store.Find(ctx, interfaces.Query{Collection: interfaces.CollectionReports, OrderBy: "date", Descending: true})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	got := []string{docs[0].ID, docs[1].ID, docs[2].ID}
	want := []string{"r2", "r3", "r1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDocumentStore_GetOneMissing(t *testing.T) {
	store := setupDocumentStore(t)

	doc, err := store.GetOne(context.Background(), interfaces.CollectionClients, "nobody")
	if err != nil {
		t.Fatalf("GetOne failed: %v", err)
	}
	if doc != nil {
		t.Errorf("expected nil document, got %+v", doc)
	}
}

func TestDocumentStore_SetMerge(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, interfaces.CollectionClients, "c1", map[string]interface{}{"firstName": "Ada", "email": "ada@example.com"}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, interfaces.CollectionClients, "c1", map[string]interface{}{"phone": "555"}, true); err != nil {
		t.Fatalf("merge Set failed: %v", err)
	}

	doc, err := store.GetOne(ctx, interfaces.CollectionClients, "c1")
	if err != nil || doc == nil {
		t.Fatalf("GetOne failed: %v", err)
	}
	if doc.Fields["firstName"] != "Ada" || doc.Fields["phone"] != "555" {
		t.Errorf("merge lost fields: %v", doc.Fields)
	}

	if err := store.Set(ctx, interfaces.CollectionClients, "c1", map[string]interface{}{"phone": "777"}, false); err != nil {
		t.Fatalf("replace Set failed: %v", err)
	}
	doc, _ = store.GetOne(ctx, interfaces.CollectionClients, "c1")
	if _, ok := doc.Fields["firstName"]; ok {
		t.Errorf("replace should drop unlisted fields: %v", doc.Fields)
	}
}

func TestDocumentStore_ServerTimestamp(t *testing.T) {
	store := setupDocumentStore(t)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	id, err := store.Append(ctx, interfaces.CollectionMessages, map[string]interface{}{
		"clientId":  "c1",
		"timestamp": interfaces.ServerTimestamp,
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	doc, _ := store.GetOne(ctx, interfaces.CollectionMessages, id)
	if doc.Fields["timestamp"] != "2024-06-01T12:00:00Z" {
		t.Errorf("expected resolved server timestamp, got %v", doc.Fields["timestamp"])
	}
}

func TestDocumentStore_BatchUpdate(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	a, _ := store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "a", "2024-05-01T10:00:00Z", true, false))
	b, _ := store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "b", "2024-05-01T11:00:00Z", true, false))

	if err := store.BatchUpdate(ctx, interfaces.CollectionMessages, []string{a, b}, map[string]interface{}{"read": true}); err != nil {
		t.Fatalf("BatchUpdate failed: %v", err)
	}

	for _, id := range []string{a, b} {
		doc, _ := store.GetOne(ctx, interfaces.CollectionMessages, id)
		if doc.Fields["read"] != true {
			t.Errorf("expected %s read, got %v", id, doc.Fields["read"])
		}
		if doc.Fields["content"] == nil {
			t.Errorf("batch update dropped fields on %s", id)
		}
	}
}

func TestDocumentStore_BatchUpdateMissingIsAtomic(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	a, _ := store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "a", "2024-05-01T10:00:00Z", true, false))

	err := store.BatchUpdate(ctx, interfaces.CollectionMessages, []string{a, "missing"}, map[string]interface{}{"read": true})
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	doc, _ := store.GetOne(ctx, interfaces.CollectionMessages, a)
	if doc.Fields["read"] != false {
		t.Errorf("failed batch must not apply partial writes, read=%v", doc.Fields["read"])
	}
}

func TestDocumentStore_SubscribeDeliversInitialAndUpdates(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "hello", "2024-05-01T10:00:00Z", true, false))

	rec := newSnapshotRecorder()
	cancel := store.Subscribe(interfaces.Query{
		Collection: interfaces.CollectionMessages,
		Where:      []interfaces.Filter{{Field: "clientId", Value: "c1"}},
		OrderBy:    "timestamp",
	}, rec.onSnapshot, rec.onError)
	defer cancel()

	rec.waitFor(t, func(docs []interfaces.Document) bool { return len(docs) == 1 })

	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "again", "2024-05-01T11:00:00Z", false, false))
	last := rec.waitFor(t, func(docs []interfaces.Document) bool { return len(docs) == 2 })
	if last[1].Fields["content"] != "again" {
		t.Errorf("expected newest message last, got %v", last[1].Fields["content"])
	}
}

func TestDocumentStore_CancelStopsDelivery(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	rec := newSnapshotRecorder()
	cancel := store.Subscribe(interfaces.Query{Collection: interfaces.CollectionMessages}, rec.onSnapshot, rec.onError)
	rec.waitFor(t, func(docs []interfaces.Document) bool { return len(docs) == 0 })

	cancel()
	cancel()
	before := rec.count()

	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "late", "2024-05-01T10:00:00Z", true, false))
	time.Sleep(50 * time.Millisecond)

	if got := rec.count(); got != before {
		t.Errorf("expected no deliveries after cancel, got %d more", got-before)
	}
}

func TestDocumentStore_OtherCollectionDoesNotWake(t *testing.T) {
	store := setupDocumentStore(t)
	ctx := context.Background()

	rec := newSnapshotRecorder()
	cancel := store.Subscribe(interfaces.Query{Collection: interfaces.CollectionReports}, rec.onSnapshot, rec.onError)
	defer cancel()
	rec.waitFor(t, func(docs []interfaces.Document) bool { return true })
	before := rec.count()

	store.Append(ctx, interfaces.CollectionMessages, messageFields("c1", "x", "2024-05-01T10:00:00Z", true, false))
	time.Sleep(50 * time.Millisecond)

	if got := rec.count(); got != before {
		t.Errorf("report subscription woke on a message write")
	}
}

func TestDocumentStore_SubscribeAfterClose(t *testing.T) {
	store := setupDocumentStore(t)
	store.Close()

	errCh := make(chan error, 1)
	cancel := store.Subscribe(interfaces.Query{Collection: interfaces.CollectionMessages},
		func([]interfaces.Document) { t.Error("unexpected snapshot after close") },
		func(err error) { errCh <- err })
	defer cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an error callback")
	}
}
