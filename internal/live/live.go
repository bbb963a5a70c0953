// Package live opens owner-scoped standing queries over the document
// gateway and delivers mapped entity lists.
//
// Every callback receives the complete current set. An empty owner never
// reaches the gateway: the callback fires synchronously with an empty result
// and the returned handle does nothing.
package live

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/mapper"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

// Clock supplies the fallback time for unparseable timestamps.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// Subscriber opens live queries against a gateway.
type Subscriber struct {
	gateway interfaces.DocumentGateway
	now     Clock
}

// NewSubscriber creates a Subscriber on gateway.
func NewSubscriber(gateway interfaces.DocumentGateway) *Subscriber {
	return &Subscriber{gateway: gateway, now: utcNow}
}

func messagesQuery(ownerID string) interfaces.Query {
	return interfaces.Query{
		Collection: interfaces.CollectionMessages,
		Where:      []interfaces.Filter{{Field: mapper.FieldClientID, Value: ownerID}},
		OrderBy:    mapper.FieldTimestamp,
	}
}

func reportsQuery(ownerID string) interfaces.Query {
	return interfaces.Query{
		Collection: interfaces.CollectionReports,
		Where:      []interfaces.Filter{{Field: mapper.FieldClientID, Value: ownerID}},
		OrderBy:    mapper.FieldDate,
		Descending: true,
	}
}

func unreadQuery(ownerID string) interfaces.Query {
	return interfaces.Query{
		Collection: interfaces.CollectionMessages,
		Where: []interfaces.Filter{
			{Field: mapper.FieldClientID, Value: ownerID},
			{Field: mapper.FieldIsFromAdvisor, Value: true},
			{Field: mapper.FieldRead, Value: false},
		},
	}
}

// SubscribeMessages delivers the owner's messages in ascending time order.
func (s *Subscriber) SubscribeMessages(ownerID string, onData func([]models.Message), onError func(error)) interfaces.CancelFunc {
	if ownerID == "" {
		onData([]models.Message{})
		return noop
	}
	return s.open(messagesQuery(ownerID), func(docs []interfaces.Document) {
		onData(s.messages(docs))
	}, onError)
}

// SubscribeReports delivers the owner's reports, newest first. Reports
// without a file URL are left out.
func (s *Subscriber) SubscribeReports(ownerID string, onData func([]models.Report), onError func(error)) interfaces.CancelFunc {
	if ownerID == "" {
		onData([]models.Report{})
		return noop
	}
	return s.open(reportsQuery(ownerID), func(docs []interfaces.Document) {
		onData(s.reports(docs))
	}, onError)
}

// SubscribeUnreadCount delivers the number of unread advisor messages,
// filtered by the store rather than by mapping the full message list.
func (s *Subscriber) SubscribeUnreadCount(ownerID string, onData func(int), onError func(error)) interfaces.CancelFunc {
	if ownerID == "" {
		onData(0)
		return noop
	}
	return s.open(unreadQuery(ownerID), func(docs []interfaces.Document) {
		onData(len(docs))
	}, onError)
}

// CountUnread reads the number of unread advisor messages once. The store
// filters the messages, so none are mapped.
func (s *Subscriber) CountUnread(ctx context.Context, ownerID string) (int, error) {
	if ownerID == "" {
		return 0, nil
	}
	docs, err := s.gateway.Find(ctx, unreadQuery(ownerID))
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// FetchMessages reads the owner's messages once.
func (s *Subscriber) FetchMessages(ctx context.Context, ownerID string) ([]models.Message, error) {
	if ownerID == "" {
		return []models.Message{}, nil
	}
	docs, err := s.gateway.Find(ctx, messagesQuery(ownerID))
	if err != nil {
		return nil, err
	}
	return s.messages(docs), nil
}

// FetchReports reads the owner's reports once.
func (s *Subscriber) FetchReports(ctx context.Context, ownerID string) ([]models.Report, error) {
	if ownerID == "" {
		return []models.Report{}, nil
	}
	docs, err := s.gateway.Find(ctx, reportsQuery(ownerID))
	if err != nil {
		return nil, err
	}
	return s.reports(docs), nil
}

func (s *Subscriber) messages(docs []interfaces.Document) []models.Message {
	msgs := mapper.ToMessages(docs, s.now())
	SortMessages(msgs)
	return msgs
}

func (s *Subscriber) reports(docs []interfaces.Document) []models.Report {
	reports := mapper.ToReports(docs, s.now())
	SortReports(reports)
	return reports
}

// SortMessages orders messages by timestamp, oldest first. The store already
// orders them; sorting again keeps display order stable if it stops doing so.
func SortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// SortReports orders reports by date, newest first.
func SortReports(reports []models.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Date.After(reports[j].Date)
	})
}

func noop() {}

// open wraps the gateway subscription so that once the returned handle is
// called no later delivery reaches the callbacks, even if the gateway has
// one queued.
func (s *Subscriber) open(q interfaces.Query, onSnapshot interfaces.SnapshotFunc, onError func(error)) interfaces.CancelFunc {
	var stopped atomic.Bool

	cancel := s.gateway.Subscribe(q,
		func(docs []interfaces.Document) {
			if stopped.Load() {
				return
			}
			onSnapshot(docs)
		},
		func(err error) {
			if onError == nil || stopped.Load() {
				return
			}
			onError(err)
		},
	)

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			cancel()
		})
	}
}
