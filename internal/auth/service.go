// Package auth signs clients in with email and password and issues the
// session tokens that scope every other request to one owner.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/mapper"
	"github.com/bobmcallan/advisor-portal/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnknownAccount = errors.New("no account for this email")
	ErrBadCredentials = errors.New("incorrect password")
	ErrRateLimited    = errors.New("too many failed attempts, try again later")
	ErrUnavailable    = errors.New("sign-in is temporarily unavailable")
	ErrAccountExists  = errors.New("account already exists")
	ErrMissingFields  = errors.New("email and password are required")
)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

// ErrorField names the login form field an error belongs to: "email",
// "password" or "" for form-level errors.
func ErrorField(err error) string {
	switch {
	case errors.Is(err, ErrUnknownAccount):
		return "email"
	case errors.Is(err, ErrBadCredentials):
		return "password"
	}
	return ""
}

// AccountKey is the document ID of the account for email.
func AccountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword bcrypt-hashes password. bcrypt reads at most 72 bytes, so
// longer input is truncated.
func HashPassword(password string) (string, error) {
	pwd := []byte(password)
	if len(pwd) > 72 {
		pwd = pwd[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(pwd, hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// NewAccount describes an account to create.
type NewAccount struct {
	Email       string
	Password    string
	ClientID    string
	DisplayName string
	Phone       string
}

// Service verifies credentials against the accounts collection.
type Service struct {
	docs    interfaces.DocumentGateway
	lockout *LockoutTracker
	logger  *common.Logger
}

// NewService creates a Service.
func NewService(docs interfaces.DocumentGateway, lockout *LockoutTracker, logger *common.Logger) *Service {
	return &Service{docs: docs, lockout: lockout, logger: logger}
}

// Login checks email and password. A locked email is refused before the
// password is looked at.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Account, error) {
	key := AccountKey(email)
	if key == "" || password == "" {
		return nil, ErrMissingFields
	}
	if s.lockout.Locked(key) {
		s.logger.Warn().Str("email", key).Msg("login refused, email locked")
		return nil, ErrRateLimited
	}

	doc, err := s.docs.GetOne(ctx, interfaces.CollectionAccounts, key)
	if err != nil {
		s.logger.Error().Str("email", key).Str("error", err.Error()).Msg("account lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var account *models.Account
	if doc != nil {
		account = mapper.ToAccount(*doc)
	}
	if account == nil {
		s.recordFailure(key)
		return nil, ErrUnknownAccount
	}

	pwd := []byte(password)
	if len(pwd) > 72 {
		pwd = pwd[:72]
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), pwd); err != nil {
		s.recordFailure(key)
		return nil, ErrBadCredentials
	}

	s.lockout.Clear(key)
	s.logger.Info().Str("email", key).Str("client_id", account.ClientID).Msg("client signed in")
	return account, nil
}

func (s *Service) recordFailure(email string) {
	n := s.lockout.RecordFailure(email)
	s.logger.Warn().Str("email", email).Int("attempts", n).Msg("failed login attempt")
}

// CreateAccount stores a new account. It fails with ErrAccountExists when
// the email is taken.
func (s *Service) CreateAccount(ctx context.Context, acc NewAccount) (*models.Account, error) {
	key := AccountKey(acc.Email)
	if key == "" || acc.Password == "" || acc.ClientID == "" {
		return nil, ErrMissingFields
	}

	existing, err := s.docs.GetOne(ctx, interfaces.CollectionAccounts, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check account %s: %w", key, err)
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	hash, err := HashPassword(acc.Password)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		mapper.FieldClientID:     acc.ClientID,
		mapper.FieldEmail:        key,
		mapper.FieldPasswordHash: hash,
		mapper.FieldDisplayName:  strings.TrimSpace(acc.DisplayName),
		mapper.FieldPhone:        strings.TrimSpace(acc.Phone),
		mapper.FieldCreatedAt:    interfaces.ServerTimestamp,
	}
	if err := s.docs.Set(ctx, interfaces.CollectionAccounts, key, fields, false); err != nil {
		return nil, fmt.Errorf("failed to store account %s: %w", key, err)
	}

	return &models.Account{
		Email:        key,
		ClientID:     acc.ClientID,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(acc.DisplayName),
		Phone:        strings.TrimSpace(acc.Phone),
	}, nil
}
