package reconcile

import (
	"context"
	"sync"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

// ReadMarker persists the read flag on a batch of messages.
type ReadMarker interface {
	MarkMessagesRead(ctx context.Context, ids []string) error
}

// MessageState tracks one owner's message snapshot plus the read marks the
// client has issued but the store has not yet confirmed.
//
// A mark moves through pending (write in flight) and settled (write finished,
// with or without error). Pending marks survive any snapshot. Settled marks
// are dropped by the next snapshot, which is authoritative from then on.
type MessageState struct {
	writer ReadMarker
	logger *common.Logger

	mu       sync.Mutex
	snapshot []models.Message
	overlay  map[string]bool // id -> settled
	loaded   bool
}

// NewMessageState creates an empty state.
func NewMessageState(writer ReadMarker, logger *common.Logger) *MessageState {
	return &MessageState{
		writer:  writer,
		logger:  logger,
		overlay: make(map[string]bool),
	}
}

// Apply replaces the snapshot.
func (s *MessageState) Apply(msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = append([]models.Message(nil), msgs...)
	s.loaded = true
	for id, settled := range s.overlay {
		if settled {
			delete(s.overlay, id)
		}
	}
}

// Loaded reports whether a snapshot has been applied.
func (s *MessageState) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Messages returns the snapshot with optimistic read marks applied.
func (s *MessageState) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *MessageState) view() []models.Message {
	out := make([]models.Message, len(s.snapshot))
	copy(out, s.snapshot)
	for i := range out {
		if _, ok := s.overlay[out[i].ID]; ok {
			out[i].Read = true
		}
	}
	return out
}

// UnreadCount is derived from the current view, never stored.
func (s *MessageState) UnreadCount() int {
	return UnreadCount(s.Messages())
}

// MarkViewed marks every unread advisor message in the current view as read
// with a single batch write and returns the IDs it marked. The optimistic
// marks are kept when the write fails.
func (s *MessageState) MarkViewed(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	ids := UnreadAdvisorIDs(s.view())
	for _, id := range ids {
		s.overlay[id] = false
	}
	s.mu.Unlock()

	if len(ids) == 0 {
		return nil, nil
	}

	err := s.writer.MarkMessagesRead(ctx, ids)

	s.mu.Lock()
	for _, id := range ids {
		if _, ok := s.overlay[id]; ok {
			s.overlay[id] = true
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().
			Int("count", len(ids)).
			Str("error", err.Error()).
			Msg("mark-as-read failed, keeping optimistic state")
		return ids, err
	}

	s.logger.Debug().Int("count", len(ids)).Msg("messages marked read")
	return ids, nil
}
