package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

// ErrUnknownReport is returned when marking a report that is not in the
// current snapshot.
var ErrUnknownReport = errors.New("report not found")

// ReportMarker persists report flags.
type ReportMarker interface {
	MarkReportDownloaded(ctx context.Context, ownerID, reportID string) error
	MarkReportViewed(ctx context.Context, ownerID, reportID string) error
}

type reportMark struct {
	downloadedAt *time.Time
	viewedAt     *time.Time
	settled      bool
}

// ReportState tracks one owner's report snapshot plus optimistic
// downloaded/viewed marks, with the same pending/settled rules as
// MessageState. Downloaded is terminal: a report already downloaded in the
// current view is never written again.
type ReportState struct {
	ownerID string
	writer  ReportMarker
	logger  *common.Logger
	now     func() time.Time

	mu       sync.Mutex
	snapshot []models.Report
	overlay  map[string]*reportMark
	loaded   bool
}

// NewReportState creates an empty state for ownerID.
func NewReportState(ownerID string, writer ReportMarker, logger *common.Logger) *ReportState {
	return &ReportState{
		ownerID: ownerID,
		writer:  writer,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		overlay: make(map[string]*reportMark),
	}
}

// Apply replaces the snapshot.
func (s *ReportState) Apply(reports []models.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = append([]models.Report(nil), reports...)
	s.loaded = true
	for id, mark := range s.overlay {
		if mark.settled {
			delete(s.overlay, id)
		}
	}
}

// Loaded reports whether a snapshot has been applied.
func (s *ReportState) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Reports returns the snapshot with optimistic marks applied.
func (s *ReportState) Reports() []models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *ReportState) view() []models.Report {
	out := make([]models.Report, len(s.snapshot))
	copy(out, s.snapshot)
	for i := range out {
		mark, ok := s.overlay[out[i].ID]
		if !ok {
			continue
		}
		if mark.downloadedAt != nil && !out[i].Downloaded {
			out[i].Downloaded = true
			out[i].DownloadedAt = mark.downloadedAt
		}
		if mark.viewedAt != nil && !out[i].Viewed {
			out[i].Viewed = true
			out[i].ViewedAt = mark.viewedAt
		}
	}
	return out
}

// Latest returns the most recent report in the current view.
func (s *ReportState) Latest() *models.Report {
	return LatestReport(s.Reports())
}

// Badge is 1 when the latest report is not downloaded.
func (s *ReportState) Badge() int {
	return BadgeCount(s.Reports())
}

// MarkDownloaded records an explicit download of reportID.
func (s *ReportState) MarkDownloaded(ctx context.Context, reportID string) error {
	return s.mark(ctx, reportID, true)
}

// MarkViewed records that the client opened reportID.
func (s *ReportState) MarkViewed(ctx context.Context, reportID string) error {
	return s.mark(ctx, reportID, false)
}

func (s *ReportState) mark(ctx context.Context, reportID string, download bool) error {
	s.mu.Lock()
	var current *models.Report
	view := s.view()
	for i := range view {
		if view[i].ID == reportID {
			current = &view[i]
			break
		}
	}
	if current == nil {
		s.mu.Unlock()
		return ErrUnknownReport
	}
	if (download && current.Downloaded) || (!download && current.Viewed) {
		s.mu.Unlock()
		return nil
	}

	mark, ok := s.overlay[reportID]
	if !ok {
		mark = &reportMark{}
		s.overlay[reportID] = mark
	}
	now := s.now()
	if download {
		mark.downloadedAt = &now
	} else {
		mark.viewedAt = &now
	}
	mark.settled = false
	s.mu.Unlock()

	var err error
	action := "viewed"
	if download {
		action = "downloaded"
		err = s.writer.MarkReportDownloaded(ctx, s.ownerID, reportID)
	} else {
		err = s.writer.MarkReportViewed(ctx, s.ownerID, reportID)
	}

	s.mu.Lock()
	mark.settled = true
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().
			Str("report_id", reportID).
			Str("action", action).
			Str("error", err.Error()).
			Msg("report write-back failed, keeping optimistic state")
		return err
	}
	return nil
}
