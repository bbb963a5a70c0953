package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/advisor-portal/internal/cache"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/mapper"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

func brokerIDKey(id string) string     { return cache.MakeKey("broker", "id", id) }
func brokerNameKey(name string) string { return cache.MakeKey("broker", "name", name) }

// GetBrokerByID returns the broker or nil when it does not exist.
func (s *Service) GetBrokerByID(ctx context.Context, id string) (*models.Broker, error) {
	if id == "" {
		return nil, nil
	}
	if b, ok := s.brokers.Get(brokerIDKey(id)); ok {
		return b, nil
	}

	doc, err := s.docs.GetOne(ctx, interfaces.CollectionBrokers, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load broker: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	b := mapper.ToBroker(*doc)
	s.remember(&b)
	return &b, nil
}

// FindBrokerByName returns the broker with exactly this name, or nil.
func (s *Service) FindBrokerByName(ctx context.Context, name string) (*models.Broker, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if b, ok := s.brokers.Get(brokerNameKey(name)); ok {
		return b, nil
	}

	docs, err := s.docs.Find(ctx, interfaces.Query{
		Collection: interfaces.CollectionBrokers,
		Where:      []interfaces.Filter{{Field: mapper.FieldName, Value: name}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up broker: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	b := mapper.ToBroker(docs[0])
	s.remember(&b)
	return &b, nil
}

// EnsureBrokerByName returns the ID of the broker named name, creating it if
// needed. A blank name yields "".
func (s *Service) EnsureBrokerByName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}

	existing, err := s.FindBrokerByName(ctx, name)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	id, err := s.docs.Append(ctx, interfaces.CollectionBrokers, map[string]interface{}{
		mapper.FieldName:      name,
		mapper.FieldCreatedAt: interfaces.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create broker: %w", err)
	}
	s.remember(&models.Broker{ID: id, Name: name})
	s.logger.Info().Str("broker_id", id).Str("name", name).Msg("broker created")
	return id, nil
}

func (s *Service) remember(b *models.Broker) {
	s.brokers.Set(brokerIDKey(b.ID), b)
	s.brokers.Set(brokerNameKey(b.Name), b)
}
