// Package reconcile derives unread counts and report badges from the latest
// snapshot and applies optimistic read/downloaded transitions on top of it.
package reconcile

import "github.com/bobmcallan/advisor-portal/internal/models"

// UnreadCount counts advisor messages the client has not read.
func UnreadCount(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		if m.IsUnreadAdvisor() {
			n++
		}
	}
	return n
}

// UnreadAdvisorIDs lists the IDs counted by UnreadCount, in snapshot order.
func UnreadAdvisorIDs(msgs []models.Message) []string {
	var ids []string
	for _, m := range msgs {
		if m.IsUnreadAdvisor() {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// LatestReport returns the report with the greatest date, or nil. Ties go to
// the earlier entry.
func LatestReport(reports []models.Report) *models.Report {
	var latest *models.Report
	for i := range reports {
		if latest == nil || reports[i].Date.After(latest.Date) {
			latest = &reports[i]
		}
	}
	return latest
}

// BadgeCount is 1 when the latest report has not been downloaded, else 0.
func BadgeCount(reports []models.Report) int {
	latest := LatestReport(reports)
	if latest != nil && !latest.Downloaded {
		return 1
	}
	return 0
}

// PendingReports counts reports not yet downloaded.
func PendingReports(reports []models.Report) int {
	n := 0
	for _, r := range reports {
		if !r.Downloaded {
			n++
		}
	}
	return n
}

// Badges is the derived indicator set shown in navigation.
type Badges struct {
	UnreadMessages int `json:"unread_messages"`
	NewReport      int `json:"new_report"`
	PendingReports int `json:"pending_reports"`
}

// ComputeBadges derives Badges from a message and report snapshot.
func ComputeBadges(msgs []models.Message, reports []models.Report) Badges {
	return BadgesWithUnread(UnreadCount(msgs), reports)
}

// BadgesWithUnread derives Badges from an unread count the store already
// filtered and a report snapshot.
func BadgesWithUnread(unread int, reports []models.Report) Badges {
	return Badges{
		UnreadMessages: unread,
		NewReport:      BadgeCount(reports),
		PendingReports: PendingReports(reports),
	}
}
