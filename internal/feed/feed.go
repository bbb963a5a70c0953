// Package feed runs one browser session's live view: it keeps the message
// and report subscriptions for the signed-in owner, derives badges, marks
// messages read while the chat is open and raises desktop notifications.
//
// All state changes run on the goroutine that calls Run, in the order they
// were posted, so gateway callbacks and browser commands never race.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/live"
	"github.com/bobmcallan/advisor-portal/internal/models"
	"github.com/bobmcallan/advisor-portal/internal/notify"
	"github.com/bobmcallan/advisor-portal/internal/portal"
	"github.com/bobmcallan/advisor-portal/internal/reconcile"
)

// Deps are the collaborators shared by all feeds.
type Deps struct {
	Subscriber   *live.Subscriber
	Service      *portal.Service
	KV           interfaces.KeyValueStorage
	Dedup        notify.DedupConfig
	DismissAfter time.Duration
	Logger       *common.Logger
}

// session is the state bound to one owner. It is replaced wholesale when
// the owner changes.
type session struct {
	gen      uint64
	owner    string
	messages *reconcile.MessageState
	reports  *reconcile.ReportState
	msgWatch *notify.MessageWatcher
	rptWatch *notify.ReportWatcher
}

// Feed is one browser session.
type Feed struct {
	deps    Deps
	emitter Emitter
	logger  *common.Logger

	msgSub    *live.Subscription
	reportSub *live.Subscription

	// Owned by the Run goroutine.
	ctx        context.Context
	current    *session
	gen        uint64
	view       string
	permission notify.Permission

	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
	done   chan struct{}
	closed bool
}

// New creates an idle feed. Call Run to start processing and SwitchOwner to
// point it at a client.
func New(deps Deps, emitter Emitter) *Feed {
	f := &Feed{
		deps:       deps,
		emitter:    emitter,
		logger:     deps.Logger,
		ctx:        context.Background(),
		permission: notify.PermissionDefault,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	f.msgSub = live.NewSubscription(f.openMessages)
	f.reportSub = live.NewSubscription(f.openReports)
	return f
}

// Run processes posted work until ctx is done or Close is called.
func (f *Feed) Run(ctx context.Context) {
	f.ctx = ctx
	defer f.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return
		case <-f.signal:
		}

		for {
			f.mu.Lock()
			if len(f.queue) == 0 || f.closed {
				f.mu.Unlock()
				break
			}
			task := f.queue[0]
			f.queue = f.queue[1:]
			f.mu.Unlock()
			task()
		}
	}
}

// post schedules fn on the Run goroutine. Work posted after Close is
// dropped.
func (f *Feed) post(fn func()) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, fn)
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Close cancels the subscriptions and stops Run. It is safe to call more
// than once.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.queue = nil
	close(f.done)
	f.mu.Unlock()

	f.msgSub.Close()
	f.reportSub.Close()
}

// SwitchOwner rebinds the feed to ownerID. The previous owner's
// subscriptions are cancelled before the new ones open.
func (f *Feed) SwitchOwner(ownerID string) {
	f.post(func() { f.switchOwner(ownerID) })
}

// SetView records which view the browser shows.
func (f *Feed) SetView(view string) {
	f.post(func() {
		f.view = view
		if view == ViewMessages {
			f.markViewed()
		}
	})
}

// SetPermission records the browser's notification permission.
func (f *Feed) SetPermission(p notify.Permission) {
	f.post(func() { f.permission = p })
}

// MarkReportDownloaded records an explicit download.
func (f *Feed) MarkReportDownloaded(reportID string) {
	f.post(func() { f.markReport(reportID, true) })
}

// MarkReportViewed records that a report was opened.
func (f *Feed) MarkReportViewed(reportID string) {
	f.post(func() { f.markReport(reportID, false) })
}

func (f *Feed) switchOwner(ownerID string) {
	if f.current != nil && f.current.owner == ownerID {
		return
	}

	f.gen++
	s := &session{
		gen:      f.gen,
		owner:    ownerID,
		messages: reconcile.NewMessageState(f.deps.Service, f.logger),
		reports:  reconcile.NewReportState(ownerID, f.deps.Service, f.logger),
	}

	dedup := notify.NewDedupStore(f.ctx, f.deps.KV, ownerID, f.deps.Dedup, f.logger)
	if err := dedup.PruneExpired(f.ctx); err != nil {
		f.logger.Warn().Str("client_id", ownerID).Str("error", err.Error()).Msg("failed to prune notification records")
	}
	dispatcher := notify.NewDispatcher(f, dedup, f.deps.DismissAfter, f.logger)
	s.msgWatch = notify.NewMessageWatcher(dispatcher)
	s.rptWatch = notify.NewReportWatcher(dispatcher)

	// Close may have run while the dedup records loaded.
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}

	f.current = s
	f.emit(Frame{Type: FrameLoading})

	f.msgSub.Switch(ownerID)
	f.reportSub.Switch(ownerID)

	f.logger.Debug().Str("client_id", ownerID).Msg("feed bound to owner")
}

func (f *Feed) openMessages(ownerID string) interfaces.CancelFunc {
	gen := f.gen
	return f.deps.Subscriber.SubscribeMessages(ownerID,
		func(msgs []models.Message) { f.post(func() { f.onMessages(gen, msgs) }) },
		func(err error) { f.post(func() { f.onError(gen, FrameMessages, err) }) },
	)
}

func (f *Feed) openReports(ownerID string) interfaces.CancelFunc {
	gen := f.gen
	return f.deps.Subscriber.SubscribeReports(ownerID,
		func(reports []models.Report) { f.post(func() { f.onReports(gen, reports) }) },
		func(err error) { f.post(func() { f.onError(gen, FrameReports, err) }) },
	)
}

// sessionFor returns the current session if gen is still current.
func (f *Feed) sessionFor(gen uint64) *session {
	if f.current == nil || f.current.gen != gen {
		return nil
	}
	return f.current
}

func (f *Feed) onMessages(gen uint64, msgs []models.Message) {
	s := f.sessionFor(gen)
	if s == nil {
		return
	}
	s.messages.Apply(msgs)

	if f.view == ViewMessages {
		if _, err := s.messages.MarkViewed(f.ctx); err != nil {
			f.emit(Frame{Type: FrameError, Source: "mark_read", Error: "Could not mark messages as read"})
		}
	}

	view := s.messages.Messages()
	s.msgWatch.Observe(f.ctx, view)

	f.emit(Frame{Type: FrameMessages, Messages: view})
	f.emitBadges(s)
}

func (f *Feed) onReports(gen uint64, reports []models.Report) {
	s := f.sessionFor(gen)
	if s == nil {
		return
	}
	s.reports.Apply(reports)

	view := s.reports.Reports()
	s.rptWatch.Observe(f.ctx, view)

	f.emit(Frame{Type: FrameReports, Reports: view, LatestReport: reconcile.LatestReport(view)})
	f.emitBadges(s)
}

func (f *Feed) onError(gen uint64, source string, err error) {
	s := f.sessionFor(gen)
	if s == nil {
		return
	}
	f.logger.Warn().Str("client_id", s.owner).Str("source", source).Str("error", err.Error()).Msg("subscription error")
	f.emit(Frame{Type: FrameError, Source: source, Error: err.Error()})
}

func (f *Feed) markViewed() {
	s := f.current
	if s == nil || !s.messages.Loaded() {
		return
	}
	ids, err := s.messages.MarkViewed(f.ctx)
	if err != nil {
		f.emit(Frame{Type: FrameError, Source: "mark_read", Error: "Could not mark messages as read"})
	}
	if len(ids) > 0 {
		f.emit(Frame{Type: FrameMessages, Messages: s.messages.Messages()})
		f.emitBadges(s)
	}
}

func (f *Feed) markReport(reportID string, download bool) {
	s := f.current
	if s == nil || reportID == "" {
		return
	}

	var err error
	if download {
		err = s.reports.MarkDownloaded(f.ctx, reportID)
	} else {
		err = s.reports.MarkViewed(f.ctx, reportID)
	}
	if errors.Is(err, reconcile.ErrUnknownReport) {
		f.emit(Frame{Type: FrameError, Source: "report", Error: err.Error()})
		return
	}
	if err != nil {
		f.emit(Frame{Type: FrameError, Source: "report", Error: "Could not update the report"})
	}

	view := s.reports.Reports()
	f.emit(Frame{Type: FrameReports, Reports: view, LatestReport: reconcile.LatestReport(view)})
	f.emitBadges(s)
}

func (f *Feed) emitBadges(s *session) {
	b := reconcile.ComputeBadges(s.messages.Messages(), s.reports.Reports())
	f.emit(Frame{Type: FrameBadges, Badges: &b})
}

func (f *Feed) emit(frame Frame) {
	if err := f.emitter.Emit(frame); err != nil {
		f.logger.Debug().Str("frame", frame.Type).Str("error", err.Error()).Msg("emit failed")
	}
}

// Permission implements notify.Notifier.
func (f *Feed) Permission() notify.Permission { return f.permission }

// RequestPermission implements notify.Notifier.
func (f *Feed) RequestPermission() {
	f.emit(Frame{Type: FrameRequestPermission})
}

// Show implements notify.Notifier.
func (f *Feed) Show(n notify.Notification) error {
	return f.emitter.Emit(Frame{Type: FrameNotification, Notification: &n})
}
