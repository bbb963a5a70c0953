// Package notify decides which new messages and reports surface as desktop
// notifications, and remembers what was already shown.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
)

// Defaults for DedupConfig.
const (
	DefaultRetention  = 7 * 24 * time.Hour
	DefaultMaxRecords = 50
)

// DedupConfig bounds the persisted record set.
type DedupConfig struct {
	Retention  time.Duration
	MaxRecords int
}

type record struct {
	Key     string    `json:"key"`
	ShownAt time.Time `json:"shown_at"`
}

// StorageKey returns the key/value key holding ownerID's records.
func StorageKey(ownerID string) string {
	return "notifications:" + ownerID
}

// DedupStore remembers which notification keys were shown for one owner.
//
// The persisted list is shared by every session of the owner. Writes reload
// it, merge and save, so sequential sessions see each other's records;
// concurrent sessions are last-writer-wins and may show one duplicate.
type DedupStore struct {
	kv     interfaces.KeyValueStorage
	key    string
	cfg    DedupConfig
	logger *common.Logger
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDedupStore loads ownerID's records into memory. Unreadable persisted
// state is logged and treated as empty.
func NewDedupStore(ctx context.Context, kv interfaces.KeyValueStorage, ownerID string, cfg DedupConfig, logger *common.Logger) *DedupStore {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}

	s := &DedupStore{
		kv:     kv,
		key:    StorageKey(ownerID),
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		seen:   make(map[string]time.Time),
	}

	records, err := s.load(ctx)
	if err != nil {
		logger.Warn().Str("key", s.key).Str("error", err.Error()).Msg("notification records unreadable, starting empty")
	}
	for _, r := range records {
		s.seen[r.Key] = r.ShownAt
	}
	return s
}

// HasBeenNotified checks the in-memory mirror.
func (s *DedupStore) HasBeenNotified(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// MarkNotified records key as shown now and persists the merged set.
func (s *DedupStore) MarkNotified(ctx context.Context, key string) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[key] = now

	persisted, err := s.load(ctx)
	if err != nil {
		s.logger.Warn().Str("key", s.key).Str("error", err.Error()).Msg("overwriting unreadable notification records")
	}
	merged := make(map[string]time.Time, len(persisted)+len(s.seen))
	for _, r := range persisted {
		merged[r.Key] = r.ShownAt
	}
	for k, at := range s.seen {
		if prev, ok := merged[k]; !ok || at.After(prev) {
			merged[k] = at
		}
	}

	kept := s.newest(merged)
	s.seen = make(map[string]time.Time, len(kept))
	for _, r := range kept {
		s.seen[r.Key] = r.ShownAt
	}
	return s.save(ctx, kept)
}

// PruneExpired drops records older than the retention window, in memory and
// in storage.
func (s *DedupStore) PruneExpired(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.Retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	persisted, err := s.load(ctx)
	if err != nil {
		s.logger.Warn().Str("key", s.key).Str("error", err.Error()).Msg("discarding unreadable notification records")
	}
	merged := make(map[string]time.Time, len(persisted)+len(s.seen))
	for _, r := range persisted {
		merged[r.Key] = r.ShownAt
	}
	for k, at := range s.seen {
		merged[k] = at
	}

	removed := 0
	for k, at := range merged {
		if at.Before(cutoff) {
			delete(merged, k)
			removed++
		}
	}

	kept := s.newest(merged)
	s.seen = make(map[string]time.Time, len(kept))
	for _, r := range kept {
		s.seen[r.Key] = r.ShownAt
	}

	if removed > 0 {
		s.logger.Debug().Str("key", s.key).Int("removed", removed).Msg("pruned notification records")
	}
	return s.save(ctx, kept)
}

// newest returns at most MaxRecords records, newest first.
func (s *DedupStore) newest(m map[string]time.Time) []record {
	records := make([]record, 0, len(m))
	for k, at := range m {
		records = append(records, record{Key: k, ShownAt: at})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].ShownAt.Equal(records[j].ShownAt) {
			return records[i].Key < records[j].Key
		}
		return records[i].ShownAt.After(records[j].ShownAt)
	})
	if len(records) > s.cfg.MaxRecords {
		records = records[:s.cfg.MaxRecords]
	}
	return records
}

func (s *DedupStore) load(ctx context.Context) ([]record, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return records, nil
}

func (s *DedupStore) save(ctx context.Context, records []record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("persist %s: %w", s.key, err)
	}
	return nil
}
