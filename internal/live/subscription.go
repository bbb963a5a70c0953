package live

import (
	"sync"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
)

// OpenFunc opens a subscription for ownerID.
type OpenFunc func(ownerID string) interfaces.CancelFunc

// Subscription holds at most one live handle and replaces it when the owner
// changes. The previous handle is always cancelled before the next opens, so
// callbacks bound to an earlier owner cannot deliver into the new one.
type Subscription struct {
	open OpenFunc

	mu     sync.Mutex
	owner  string
	cancel interfaces.CancelFunc
	active bool
	closed bool
}

// NewSubscription creates an idle holder around open.
func NewSubscription(open OpenFunc) *Subscription {
	return &Subscription{open: open}
}

// Switch points the subscription at ownerID. Switching to the current owner
// keeps the existing handle. After Close, Switch opens nothing.
func (s *Subscription) Switch(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.active && s.owner == ownerID {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.owner = ownerID
	s.active = true
	s.cancel = s.open(ownerID)
}

// Close cancels the current handle and retires the holder. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active = false
	s.closed = true
}
