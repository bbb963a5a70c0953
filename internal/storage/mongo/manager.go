package mongo

import (
	"context"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/config"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
)

// Manager implements the StorageManager interface for MongoDB. Key/value
// data lives in its own collection next to the documents.
type Manager struct {
	gateway *Gateway
	kv      *KVStorage
}

// NewManager connects to MongoDB and builds both stores.
func NewManager(ctx context.Context, logger *common.Logger, cfg *config.MongoConfig) (interfaces.StorageManager, error) {
	gateway, err := Connect(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{
		gateway: gateway,
		kv:      &KVStorage{coll: gateway.db.Collection(kvCollection)},
	}, nil
}

func (m *Manager) Documents() interfaces.DocumentGateway { return m.gateway }

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage { return m.kv }

func (m *Manager) Close() error { return m.gateway.Close() }
