package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/config"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/storage/badger"
	"github.com/bobmcallan/advisor-portal/internal/storage/mongo"
)

// NewStorageManager creates a new storage manager based on config.
func NewStorageManager(ctx context.Context, logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	switch cfg.Storage.Backend {
	case "", "badger":
		return badger.NewManager(logger, &cfg.Storage.Badger)
	case "mongo":
		return mongo.NewManager(ctx, logger, &cfg.Storage.Mongo)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
