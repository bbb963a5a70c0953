package notify

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

// Permission mirrors the browser's desktop notification permission.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission maps unknown values to PermissionDefault.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	}
	return PermissionDefault
}

// DefaultDismissAfter closes notifications that do not require interaction.
const DefaultDismissAfter = 5 * time.Second

const maxBodyRunes = 100

// Notification is one desktop alert.
type Notification struct {
	Title              string        `json:"title"`
	Body               string        `json:"body"`
	Tag                string        `json:"tag"`
	RequireInteraction bool          `json:"require_interaction"`
	DismissAfter       time.Duration `json:"-"`
	DismissAfterMS     int64         `json:"dismiss_after_ms,omitempty"`
}

// Notifier is the desktop notification surface of one session.
type Notifier interface {
	Permission() Permission
	RequestPermission()
	Show(n Notification) error
}

// MessageKey is the dedup key of a message notification.
func MessageKey(id string) string { return "message-" + id }

// ReportKey is the dedup key of a report notification.
func ReportKey(id string) string { return "report-" + id }

// Truncate shortens s to 100 characters plus an ellipsis.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxBodyRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxBodyRunes]) + "..."
}

// MessageNotification builds the alert for a new advisor message.
func MessageNotification(m models.Message, dismissAfter time.Duration) Notification {
	return Notification{
		Title:        "New message from your advisor",
		Body:         Truncate(m.Content),
		Tag:          MessageKey(m.ID),
		DismissAfter: dismissAfter,
	}
}

// ReportNotification builds the alert for a new report. It stays until the
// user interacts with it.
func ReportNotification(r models.Report) Notification {
	body := "You have a new report ready to download"
	if r.Name != "" {
		body += ": " + r.Name
	}
	return Notification{
		Title:              "New report available",
		Body:               body,
		Tag:                ReportKey(r.ID),
		RequireInteraction: true,
	}
}

// Dispatcher shows notifications through a Notifier, at most once per dedup
// key, asking for permission at most once per session.
type Dispatcher struct {
	notifier     Notifier
	dedup        *DedupStore
	dismissAfter time.Duration
	logger       *common.Logger

	mu        sync.Mutex
	requested bool
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(notifier Notifier, dedup *DedupStore, dismissAfter time.Duration, logger *common.Logger) *Dispatcher {
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}
	return &Dispatcher{notifier: notifier, dedup: dedup, dismissAfter: dismissAfter, logger: logger}
}

// EnsurePermission asks for permission if the session has not decided yet
// and has not been asked before.
func (d *Dispatcher) EnsurePermission() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.requested || d.notifier.Permission() != PermissionDefault {
		return
	}
	d.requested = true
	d.notifier.RequestPermission()
}

// Dispatch shows n unless key was already notified. Without permission
// nothing is shown or recorded. It reports whether n was shown.
func (d *Dispatcher) Dispatch(ctx context.Context, key string, n Notification) bool {
	if d.dedup.HasBeenNotified(key) {
		return false
	}

	d.EnsurePermission()
	if d.notifier.Permission() != PermissionGranted {
		return false
	}

	if !n.RequireInteraction {
		if n.DismissAfter <= 0 {
			n.DismissAfter = d.dismissAfter
		}
		n.DismissAfterMS = n.DismissAfter.Milliseconds()
	} else {
		n.DismissAfter = 0
		n.DismissAfterMS = 0
	}

	if err := d.notifier.Show(n); err != nil {
		d.logger.Warn().Str("tag", n.Tag).Str("error", err.Error()).Msg("failed to show notification")
		return false
	}
	if err := d.dedup.MarkNotified(ctx, key); err != nil {
		d.logger.Warn().Str("tag", n.Tag).Str("error", err.Error()).Msg("failed to persist notification record")
	}
	return true
}
