// Package portal implements the client portal's write paths and profile
// provisioning on top of the document gateway.
package portal

import (
	"errors"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/cache"
	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrReportNotFound  = errors.New("report not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrMissingOwner    = errors.New("owner id is required")
)

const (
	brokerCacheTTL     = 10 * time.Minute
	brokerCacheEntries = 500
)

// Service is the portal's domain service. It is safe for concurrent use.
type Service struct {
	docs    interfaces.DocumentGateway
	brokers *cache.Cache[*models.Broker]
	logger  *common.Logger
}

// NewService creates a Service on docs.
func NewService(docs interfaces.DocumentGateway, logger *common.Logger) *Service {
	return &Service{
		docs:    docs,
		brokers: cache.New[*models.Broker](brokerCacheTTL, brokerCacheEntries),
		logger:  logger,
	}
}
