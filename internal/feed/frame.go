package feed

import (
	"encoding/json"
	"fmt"

	"github.com/bobmcallan/advisor-portal/internal/models"
	"github.com/bobmcallan/advisor-portal/internal/notify"
	"github.com/bobmcallan/advisor-portal/internal/reconcile"
)

// Frame types sent to the browser.
const (
	FrameLoading           = "loading"
	FrameMessages          = "messages"
	FrameReports           = "reports"
	FrameBadges            = "badges"
	FrameNotification      = "notification"
	FrameRequestPermission = "request_permission"
	FrameError             = "error"
)

// Views the browser can activate.
const (
	ViewHome     = "home"
	ViewMessages = "messages"
	ViewReports  = "reports"
)

// Frame is one server-to-browser event.
type Frame struct {
	Type         string               `json:"type"`
	Messages     []models.Message     `json:"messages,omitempty"`
	Reports      []models.Report      `json:"reports,omitempty"`
	LatestReport *models.Report       `json:"latest_report,omitempty"`
	Badges       *reconcile.Badges    `json:"badges,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Source       string               `json:"source,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// Emitter delivers frames to one browser session. Feed calls it from a
// single goroutine.
type Emitter interface {
	Emit(f Frame) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(f Frame) error

func (fn EmitterFunc) Emit(f Frame) error { return fn(f) }

// Command is one browser-to-server request.
type Command struct {
	Type       string `json:"type"`
	View       string `json:"view,omitempty"`
	Permission string `json:"permission,omitempty"`
	ReportID   string `json:"report_id,omitempty"`
}

// Command types.
const (
	CommandView       = "view"
	CommandPermission = "permission"
	CommandDownload   = "report_downloaded"
	CommandViewReport = "report_viewed"
)

// HandleCommand decodes and dispatches one browser command.
func (f *Feed) HandleCommand(raw []byte) error {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}
	switch cmd.Type {
	case CommandView:
		f.SetView(cmd.View)
	case CommandPermission:
		f.SetPermission(notify.ParsePermission(cmd.Permission))
	case CommandDownload:
		f.MarkReportDownloaded(cmd.ReportID)
	case CommandViewReport:
		f.MarkReportViewed(cmd.ReportID)
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}
