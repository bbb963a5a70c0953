package portal

import (
	"context"
	"fmt"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/mapper"
)

// MarkReportDownloaded flags ownerID's report as downloaded. A report that
// is already downloaded is left untouched.
func (s *Service) MarkReportDownloaded(ctx context.Context, ownerID, reportID string) error {
	return s.markReport(ctx, ownerID, reportID, mapper.FieldDownloaded, mapper.FieldDownloadedAt)
}

// MarkReportViewed flags ownerID's report as viewed.
func (s *Service) MarkReportViewed(ctx context.Context, ownerID, reportID string) error {
	return s.markReport(ctx, ownerID, reportID, mapper.FieldViewed, mapper.FieldViewedAt)
}

func (s *Service) markReport(ctx context.Context, ownerID, reportID, flag, stamp string) error {
	doc, err := s.docs.GetOne(ctx, interfaces.CollectionReports, reportID)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}
	if doc == nil || doc.Fields[mapper.FieldClientID] != ownerID {
		return ErrReportNotFound
	}
	if done, _ := doc.Fields[flag].(bool); done {
		return nil
	}

	err = s.docs.Set(ctx, interfaces.CollectionReports, reportID, map[string]interface{}{
		flag:                  true,
		stamp:                 interfaces.ServerTimestamp,
		mapper.FieldUpdatedAt: interfaces.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to mark report %s: %w", flag, err)
	}
	return nil
}
