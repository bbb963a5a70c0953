package notify

import (
	"context"
	"sync"

	"github.com/bobmcallan/advisor-portal/internal/models"
)

// MessageWatcher diffs successive message snapshots. The first snapshot is
// the baseline and never notifies; later snapshots notify for unread advisor
// messages whose ID was not in the previous snapshot.
type MessageWatcher struct {
	dispatcher *Dispatcher

	mu       sync.Mutex
	baseline bool
	previous map[string]struct{}
}

// NewMessageWatcher creates a watcher that shows through d.
func NewMessageWatcher(d *Dispatcher) *MessageWatcher {
	return &MessageWatcher{dispatcher: d}
}

// Observe processes one snapshot and returns the IDs it notified for.
func (w *MessageWatcher) Observe(ctx context.Context, msgs []models.Message) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		current[m.ID] = struct{}{}
	}

	if !w.baseline {
		w.baseline = true
		w.previous = current
		return nil
	}

	var shown []string
	for _, m := range msgs {
		if !m.IsUnreadAdvisor() {
			continue
		}
		if _, seen := w.previous[m.ID]; seen {
			continue
		}
		if w.dispatcher.Dispatch(ctx, MessageKey(m.ID), MessageNotification(m, w.dispatcher.dismissAfter)) {
			shown = append(shown, m.ID)
		}
	}
	w.previous = current
	return shown
}

// ReportWatcher applies the same baseline and diffing rules to reports,
// notifying for new reports that have not been downloaded.
type ReportWatcher struct {
	dispatcher *Dispatcher

	mu       sync.Mutex
	baseline bool
	previous map[string]struct{}
}

// NewReportWatcher creates a watcher that shows through d.
func NewReportWatcher(d *Dispatcher) *ReportWatcher {
	return &ReportWatcher{dispatcher: d}
}

// Observe processes one snapshot and returns the IDs it notified for.
func (w *ReportWatcher) Observe(ctx context.Context, reports []models.Report) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		current[r.ID] = struct{}{}
	}

	if !w.baseline {
		w.baseline = true
		w.previous = current
		return nil
	}

	var shown []string
	for _, r := range reports {
		if r.Downloaded {
			continue
		}
		if _, seen := w.previous[r.ID]; seen {
			continue
		}
		if w.dispatcher.Dispatch(ctx, ReportKey(r.ID), ReportNotification(r)) {
			shown = append(shown, r.ID)
		}
	}
	w.previous = current
	return shown
}
