package badger

import (
	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/config"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db     *BadgerDB
	docs   *DocumentStore
	kv     interfaces.KeyValueStorage
	logger *common.Logger
}

// NewManager opens the Badger database and builds both stores on it.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		docs:   NewDocumentStore(db, logger),
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return manager, nil
}

// Documents returns the document gateway.
func (m *Manager) Documents() interfaces.DocumentGateway {
	return m.docs
}

// KeyValueStorage returns the KeyValue storage interface.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close stops subscriptions and closes the database.
func (m *Manager) Close() error {
	if m.docs != nil {
		m.docs.Close()
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
