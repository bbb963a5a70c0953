package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/mapper"
	"github.com/bobmcallan/advisor-portal/internal/models"
)

// AuthUser is what the identity layer knows about a signed-in client.
type AuthUser struct {
	UID         string
	Email       string
	DisplayName string
	Phone       string
}

// GuessNameParts splits a display name into first and last name. Without a
// display name the email's local part becomes the first name.
func GuessNameParts(displayName, email string) (string, string) {
	parts := strings.Fields(displayName)
	if len(parts) == 0 {
		if at := strings.Index(email, "@"); at > 0 {
			return email[:at], ""
		}
		return email, ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// EnsureProfile returns the client's profile, creating it with defaults on
// first sign-in. Empty name and contact fields of an existing profile are
// filled from user.
func (s *Service) EnsureProfile(ctx context.Context, user AuthUser) (*models.ClientProfile, error) {
	if user.UID == "" {
		return nil, ErrMissingOwner
	}

	doc, err := s.docs.GetOne(ctx, interfaces.CollectionClients, user.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	first, last := GuessNameParts(user.DisplayName, user.Email)

	if doc == nil {
		fields := map[string]interface{}{
			mapper.FieldFirstName:         first,
			mapper.FieldLastName:          last,
			mapper.FieldEmail:             user.Email,
			mapper.FieldPhone:             user.Phone,
			mapper.FieldInvestorProfile:   string(models.RiskModerate),
			mapper.FieldObjectives:        "",
			mapper.FieldInvestmentHorizon: "",
			mapper.FieldBroker:            "",
			mapper.FieldLastContact:       interfaces.ServerTimestamp,
			mapper.FieldCreatedAt:         interfaces.ServerTimestamp,
			mapper.FieldUpdatedAt:         interfaces.ServerTimestamp,
		}
		if err := s.docs.Set(ctx, interfaces.CollectionClients, user.UID, fields, false); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		s.logger.Info().Str("client_id", user.UID).Msg("client profile provisioned")
		return &models.ClientProfile{
			ID:           user.UID,
			FirstName:    first,
			LastName:     last,
			Email:        user.Email,
			Phone:        user.Phone,
			InvestorRisk: models.RiskModerate,
		}, nil
	}

	profile := mapper.ToProfile(*doc)
	updates := map[string]interface{}{}

	if profile.FirstName == "" && first != "" {
		profile.FirstName = first
		updates[mapper.FieldFirstName] = first
	}
	if profile.LastName == "" && last != "" {
		profile.LastName = last
		updates[mapper.FieldLastName] = last
	}
	if profile.Email == "" && user.Email != "" {
		profile.Email = user.Email
		updates[mapper.FieldEmail] = user.Email
	}
	if profile.Phone == "" && user.Phone != "" {
		profile.Phone = user.Phone
		updates[mapper.FieldPhone] = user.Phone
	}

	if len(updates) > 0 {
		updates[mapper.FieldUpdatedAt] = interfaces.ServerTimestamp
		if err := s.docs.Set(ctx, interfaces.CollectionClients, user.UID, updates, true); err != nil {
			return nil, fmt.Errorf("failed to patch profile: %w", err)
		}
	}

	s.attachBroker(ctx, &profile)
	return &profile, nil
}

// GetProfile loads the client's profile with its broker resolved.
func (s *Service) GetProfile(ctx context.Context, ownerID string) (*models.ClientProfile, error) {
	doc, err := s.docs.GetOne(ctx, interfaces.CollectionClients, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if doc == nil {
		return nil, ErrProfileNotFound
	}
	profile := mapper.ToProfile(*doc)
	s.attachBroker(ctx, &profile)
	return &profile, nil
}

// UpdateProfile writes the editable profile fields. A broker named in the
// profile is created if it does not exist yet.
func (s *Service) UpdateProfile(ctx context.Context, profile models.ClientProfile) error {
	if profile.ID == "" {
		return ErrMissingOwner
	}

	brokerName := strings.TrimSpace(profile.BrokerName)
	if brokerName != "" {
		if _, err := s.EnsureBrokerByName(ctx, brokerName); err != nil {
			return err
		}
	}

	risk := mapper.ParseRisk(string(profile.InvestorRisk))
	err := s.docs.Set(ctx, interfaces.CollectionClients, profile.ID, map[string]interface{}{
		mapper.FieldFirstName:         profile.FirstName,
		mapper.FieldLastName:          profile.LastName,
		mapper.FieldEmail:             profile.Email,
		mapper.FieldPhone:             profile.Phone,
		mapper.FieldInvestorProfile:   string(risk),
		mapper.FieldObjectives:        profile.Objectives,
		mapper.FieldInvestmentHorizon: profile.InvestmentHorizon,
		mapper.FieldBroker:            brokerName,
		mapper.FieldUpdatedAt:         interfaces.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// attachBroker resolves the profile's broker by name. Lookup failures leave
// the profile without a broker.
func (s *Service) attachBroker(ctx context.Context, profile *models.ClientProfile) {
	if profile.BrokerName == "" {
		return
	}
	broker, err := s.FindBrokerByName(ctx, profile.BrokerName)
	if err != nil {
		s.logger.Warn().Str("broker", profile.BrokerName).Str("error", err.Error()).Msg("broker lookup failed")
		return
	}
	if broker != nil {
		profile.BrokerID = broker.ID
		profile.Broker = broker
	}
}
